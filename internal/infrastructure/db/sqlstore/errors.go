package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/islandman/hotel-listing/internal/core/domain"
)

// isConstraintViolation reports integrity errors (unique, foreign key,
// check, not null) from either engine.
func isConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// mutationError classifies a failed write: integrity violations mean the
// staged change can never be committed.
func mutationError(op, table string, err error) error {
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrCommitFailed, op, table, err)
	}
	return fmt.Errorf("%s %s: %w", op, table, err)
}

// benign errors are caller mistakes detected before or without touching
// the transaction, so they do not abort the unit of work.
func benign(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrUnknownField) ||
		errors.Is(err, domain.ErrUnknownRelation)
}
