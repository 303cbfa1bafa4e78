package ports

import (
	"context"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/query"
)

// Repository is CRUD plus store-evaluated filtering over one entity type.
//
// Mutations are staged on the owning UnitOfWork: they are visible to reads
// through the same unit at once, and to everyone else only after Save.
type Repository[T any] interface {
	// GetAll lists entities in primary-key order unless opts say otherwise.
	GetAll(ctx context.Context, opts ...query.Option) ([]*T, error)
	// Get returns the first entity matching p, or domain.ErrNotFound.
	Get(ctx context.Context, p query.Predicate, includes ...domain.Relation) (*T, error)
	// Insert stages e; the store assigns its identity and writes it back to e.
	Insert(ctx context.Context, e *T) error
	// Update stages the new field values of an existing entity.
	Update(ctx context.Context, e *T) error
	// Delete stages removal by identity. A missing entity is a no-op.
	Delete(ctx context.Context, id int64) error
}

// UnitOfWork groups repositories sharing one transactional session.
type UnitOfWork interface {
	Countries() Repository[domain.Country]
	Hotels() Repository[domain.Hotel]
	// Save commits everything staged since the previous Save and reports
	// the number of affected rows. Failures wrap domain.ErrCommitFailed.
	Save(ctx context.Context) (int64, error)
	// Close releases the session, discarding anything not saved.
	Close() error
}

// UnitOfWorkFactory hands out one UnitOfWork per request.
type UnitOfWorkFactory interface {
	NewUnitOfWork() UnitOfWork
}
