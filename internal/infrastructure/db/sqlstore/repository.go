package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
	"github.com/islandman/hotel-listing/internal/core/query"
)

type scanner interface {
	Scan(dest ...any) error
}

// relationLoader attaches one association to a batch of already-loaded
// entities using a single extra query.
type relationLoader[T any] func(ctx context.Context, tx *sql.Tx, qb sq.StatementBuilderType, items []*T) error

// table maps an entity type onto a relational table with an integer "id"
// primary key assigned by the database.
type table[T any] struct {
	name      string
	columns   []string
	id        func(*T) int64
	setID     func(*T, int64)
	values    func(*T) []any
	scan      func(scanner) (*T, error)
	relations map[domain.Relation]relationLoader[T]
}

func (t *table[T]) selectColumns() []string {
	return append([]string{"id"}, t.columns...)
}

func (t *table[T]) hasColumn(name string) bool {
	if name == "id" {
		return true
	}
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

func (t *table[T]) checkRelations(rels []domain.Relation) error {
	for _, rel := range rels {
		if _, ok := t.relations[rel]; !ok {
			return fmt.Errorf("%w: %s on %s", domain.ErrUnknownRelation, rel, t.name)
		}
	}
	return nil
}

func (t *table[T]) selectFrom(qb sq.StatementBuilderType) sq.SelectBuilder {
	return qb.Select(t.selectColumns()...).From(t.name)
}

func (t *table[T]) queryAll(ctx context.Context, tx *sql.Tx, b sq.SelectBuilder) ([]*T, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", t.name, err)
	}

	rows, err := tx.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		e, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return out, nil
}

func (t *table[T]) load(ctx context.Context, tx *sql.Tx, qb sq.StatementBuilderType, items []*T, rels []domain.Relation) error {
	if len(items) == 0 {
		return nil
	}
	for _, rel := range rels {
		if err := t.relations[rel](ctx, tx, qb, items); err != nil {
			return fmt.Errorf("load %s.%s: %w", t.name, rel, err)
		}
	}
	return nil
}

// repository implements ports.Repository for one table inside a unit of work.
type repository[T any] struct {
	u *UnitOfWork
	t *table[T]
}

var (
	_ ports.Repository[domain.Country] = (*repository[domain.Country])(nil)
	_ ports.Repository[domain.Hotel]   = (*repository[domain.Hotel])(nil)
)

func (r *repository[T]) GetAll(ctx context.Context, opts ...query.Option) ([]*T, error) {
	o := query.Apply(opts...)
	if err := r.t.checkRelations(o.Includes); err != nil {
		return nil, err
	}

	b := r.t.selectFrom(r.u.qb)
	if o.Where != nil {
		cond, err := compile(*o.Where, r.t.hasColumn)
		if err != nil {
			return nil, err
		}
		b = b.Where(cond)
	}
	for _, ord := range o.OrderBy {
		if !r.t.hasColumn(ord.Field) {
			return nil, fmt.Errorf("%w: order by %q", domain.ErrUnknownField, ord.Field)
		}
		if ord.Desc {
			b = b.OrderBy(ord.Field + " DESC")
		} else {
			b = b.OrderBy(ord.Field + " ASC")
		}
	}
	b = b.OrderBy("id ASC")
	if o.Limit > 0 {
		b = b.Limit(o.Limit)
	}

	var out []*T
	err := r.u.withTx(ctx, func(tx *sql.Tx) error {
		items, err := r.t.queryAll(ctx, tx, b)
		if err != nil {
			return err
		}
		out = items
		return r.t.load(ctx, tx, r.u.qb, out, o.Includes)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*T{}
	}
	return out, nil
}

func (r *repository[T]) Get(ctx context.Context, p query.Predicate, includes ...domain.Relation) (*T, error) {
	if err := r.t.checkRelations(includes); err != nil {
		return nil, err
	}
	cond, err := compile(p, r.t.hasColumn)
	if err != nil {
		return nil, err
	}
	b := r.t.selectFrom(r.u.qb).Where(cond).OrderBy("id ASC").Limit(1)

	var found *T
	err = r.u.withTx(ctx, func(tx *sql.Tx) error {
		items, err := r.t.queryAll(ctx, tx, b)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%s: %w", r.t.name, domain.ErrNotFound)
		}
		if err := r.t.load(ctx, tx, r.u.qb, items, includes); err != nil {
			return err
		}
		found = items[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository[T]) Insert(ctx context.Context, e *T) error {
	sqlStr, args, err := r.u.qb.Insert(r.t.name).
		Columns(r.t.columns...).
		Values(r.t.values(e)...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", r.t.name, err)
	}
	traceSQL(r.u.log, "insert", sqlStr, args)

	return r.u.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
			return mutationError("insert", r.t.name, err)
		}
		r.t.setID(e, id)
		r.u.affected++
		return nil
	})
}

func (r *repository[T]) Update(ctx context.Context, e *T) error {
	id := r.t.id(e)
	if id <= 0 {
		return fmt.Errorf("update %s id=%d: %w", r.t.name, id, domain.ErrNotFound)
	}

	set := make(map[string]any, len(r.t.columns))
	for i, v := range r.t.values(e) {
		set[r.t.columns[i]] = v
	}
	sqlStr, args, err := r.u.qb.Update(r.t.name).SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", r.t.name, err)
	}
	traceSQL(r.u.log, "update", sqlStr, args)

	return r.u.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return mutationError("update", r.t.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update %s: rows affected: %w", r.t.name, err)
		}
		if n == 0 {
			return fmt.Errorf("update %s id=%d: %w", r.t.name, id, domain.ErrNotFound)
		}
		r.u.affected += n
		return nil
	})
}

func (r *repository[T]) Delete(ctx context.Context, id int64) error {
	sqlStr, args, err := r.u.qb.Delete(r.t.name).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", r.t.name, err)
	}
	traceSQL(r.u.log, "delete", sqlStr, args)

	return r.u.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return mutationError("delete", r.t.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete %s: rows affected: %w", r.t.name, err)
		}
		r.u.affected += n
		return nil
	})
}
