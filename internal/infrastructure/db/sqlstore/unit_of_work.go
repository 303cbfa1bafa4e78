package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

// UnitOfWork shares one *sql.Tx between its repositories.
//
// The transaction is opened lazily with the context of the first operation
// and is committed by Save or rolled back by Close. A failed statement
// aborts the whole transaction: every later call reports it, and Save
// rolls back and returns domain.ErrCommitFailed.
type UnitOfWork struct {
	db  *sql.DB
	qb  sq.StatementBuilderType
	log zerolog.Logger

	mu       sync.Mutex
	tx       *sql.Tx
	affected int64
	failed   error
	closed   bool

	countries *repository[domain.Country]
	hotels    *repository[domain.Hotel]
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

func newUnitOfWork(db *sql.DB, qb sq.StatementBuilderType, log zerolog.Logger) *UnitOfWork {
	u := &UnitOfWork{db: db, qb: qb, log: log}
	u.countries = &repository[domain.Country]{u: u, t: countryTable}
	u.hotels = &repository[domain.Hotel]{u: u, t: hotelTable}
	return u
}

func (u *UnitOfWork) Countries() ports.Repository[domain.Country] { return u.countries }
func (u *UnitOfWork) Hotels() ports.Repository[domain.Hotel]       { return u.hotels }

// Save commits the open transaction, if any, and reports how many rows the
// staged statements touched.
func (u *UnitOfWork) Save(ctx context.Context) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return 0, domain.ErrUnitClosed
	}
	if u.failed != nil {
		cause := u.failed
		u.rollbackLocked()
		return 0, fmt.Errorf("%w: %w", domain.ErrCommitFailed, cause)
	}
	if u.tx == nil {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		u.rollbackLocked()
		return 0, fmt.Errorf("%w: %w", domain.ErrCommitFailed, err)
	}

	n := u.affected
	err := u.tx.Commit()
	u.tx, u.affected = nil, 0
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrCommitFailed, err)
	}

	u.log.Debug().Int64("rows", n).Msg("unit of work committed")
	return n, nil
}

// Close discards anything staged since the last Save. Closing twice is a no-op.
func (u *UnitOfWork) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	u.closed = true
	if u.tx == nil {
		return nil
	}

	discarded := u.affected
	err := u.tx.Rollback()
	u.tx, u.affected, u.failed = nil, 0, nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	if discarded > 0 {
		u.log.Debug().Int64("rows", discarded).Msg("unit of work discarded unsaved changes")
	}
	return nil
}

func (u *UnitOfWork) rollbackLocked() {
	if u.tx != nil {
		if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			u.log.Warn().Err(err).Msg("rollback failed")
		}
	}
	u.tx, u.affected, u.failed = nil, 0, nil
}

// withTx runs fn inside the unit's transaction, opening it if needed.
// Calls are serialised so a request's concurrent goroutines cannot
// interleave statements on the same transaction.
func (u *UnitOfWork) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return domain.ErrUnitClosed
	}
	if u.failed != nil {
		return fmt.Errorf("unit of work aborted: %w", u.failed)
	}
	if u.tx == nil {
		tx, err := u.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		u.tx = tx
	}

	if err := fn(u.tx); err != nil {
		if !benign(err) {
			u.failed = err
		}
		return err
	}
	return nil
}
