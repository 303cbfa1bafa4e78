package sqlstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embeddedMigrations embed.FS

// Migrate applies every pending migration for the store's dialect. It runs
// on its own connection because closing the migrator closes the database
// handle it was given.
func (s *Store) Migrate() error {
	db, err := sql.Open(s.dialect.Driver, s.dsn)
	if err != nil {
		return fmt.Errorf("migrate: open: %w", err)
	}

	var driver database.Driver
	switch s.dialect.Name {
	case Postgres.Name:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case SQLite.Name:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		err = fmt.Errorf("no migration driver for %s", s.dialect.Name)
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: driver: %w", err)
	}

	src, err := iofs.New(embeddedMigrations, "migrations/"+s.dialect.Name)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect.Name, driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			s.log.Debug().Msg("no new migrations to apply")
			return nil
		}
		return fmt.Errorf("migrate: up: %w", err)
	}

	version, _, _ := m.Version()
	s.log.Info().Uint("version", version).Msg("migrations applied")
	return nil
}
