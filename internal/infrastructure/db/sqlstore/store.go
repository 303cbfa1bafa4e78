// Package sqlstore is the relational entity store: generic repositories and
// the unit of work that shares one transaction between them, plus the SQL
// principal repository. PostgreSQL (pgx) serves production; SQLite
// (modernc) serves local development and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/islandman/hotel-listing/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Dialect captures what differs between the supported SQL engines.
type Dialect struct {
	Name        string
	Driver      string
	Placeholder sq.PlaceholderFormat
}

var (
	Postgres = Dialect{Name: "postgres", Driver: "pgx", Placeholder: sq.Dollar}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite", Placeholder: sq.Question}
)

// DialectFor resolves a configured dialect name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case Postgres.Name, "pgx", "postgresql":
		return Postgres, nil
	case SQLite.Name, "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("sqlstore: unsupported dialect %q", name)
	}
}

// Config captures the settings required to open the store.
type Config struct {
	Dialect         string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Timeout         time.Duration
}

// Store owns the connection pool and hands out units of work.
type Store struct {
	db      *sql.DB
	dsn     string
	dialect Dialect
	qb      sq.StatementBuilderType
	log     zerolog.Logger
}

var _ ports.UnitOfWorkFactory = (*Store)(nil)

// Open connects, applies pool limits and verifies connectivity with a ping.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	dialect, err := DialectFor(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	dsn := withTxLock(dialect, cfg.DSN)
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open %s: %w", dialect.Name, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql ping %s: %w", dialect.Name, err)
	}

	return &Store{
		db:      db,
		dsn:     dsn,
		dialect: dialect,
		qb:      sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		log:     log.With().Str("component", "sqlstore").Str("dialect", dialect.Name).Logger(),
	}, nil
}

// withTxLock makes SQLite transactions take the write lock at BEGIN. A
// deferred transaction that reads and then writes fails with SQLITE_BUSY
// when another connection wrote first, and busy_timeout cannot retry it.
func withTxLock(d Dialect, dsn string) string {
	if d.Name != SQLite.Name || strings.Contains(dsn, "_txlock=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_txlock=immediate"
}

// Dialect reports which engine the store talks to.
func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewUnitOfWork returns a unit with no open transaction; one is started on
// first use.
func (s *Store) NewUnitOfWork() ports.UnitOfWork {
	return newUnitOfWork(s.db, s.qb, s.log)
}

// Principals returns the SQL-backed principal repository.
func (s *Store) Principals() *PrincipalRepository {
	return &PrincipalRepository{db: s.db, qb: s.qb, log: s.log}
}

func traceSQL(log zerolog.Logger, op, query string, args []any) {
	log.Trace().Str("op", op).Str("sql", query).Int("args", len(args)).Msg("exec")
}
