package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

// PrincipalRepository stores principals and their role grants.
type PrincipalRepository struct {
	db  *sql.DB
	qb  sq.StatementBuilderType
	log zerolog.Logger
}

var _ ports.PrincipalRepository = (*PrincipalRepository)(nil)

var principalColumns = []string{
	"id", "username", "email", "first_name", "last_name", "password_hash", "created_at", "updated_at",
}

// FindByIdentifier matches the identifier against the username first and
// the e-mail address second, ignoring case.
func (r *PrincipalRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error) {
	norm := domain.Normalize(identifier)
	if norm == "" {
		return nil, domain.ErrUserNotFound
	}

	p, err := r.findOne(ctx, sq.Eq{"normalized_username": norm})
	if errors.Is(err, domain.ErrUserNotFound) {
		p, err = r.findOne(ctx, sq.Eq{"normalized_email": norm})
	}
	if err != nil {
		return nil, err
	}

	roles, err := r.rolesOf(ctx, r.db, p.ID)
	if err != nil {
		return nil, err
	}
	p.Roles = roles
	return p, nil
}

func (r *PrincipalRepository) findOne(ctx context.Context, where sq.Eq) (*domain.Principal, error) {
	sqlStr, args, err := r.qb.Select(principalColumns...).From("principals").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build principal lookup: %w", err)
	}

	var (
		p                domain.Principal
		created, updated int64
	)
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&p.ID, &p.UserName, &p.Email, &p.FirstName, &p.LastName, &p.PasswordHash, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("principal lookup: %w", err)
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return &p, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *PrincipalRepository) rolesOf(ctx context.Context, q queryer, principalID string) ([]string, error) {
	sqlStr, args, err := r.qb.Select("r.name").
		From("roles r").
		Join("principal_roles pr ON pr.role_id = r.id").
		Where(sq.Eq{"pr.principal_id": principalID}).
		OrderBy("r.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build role lookup: %w", err)
	}

	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("role lookup: %w", err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// Create inserts the principal and its roles in one transaction.
func (r *PrincipalRepository) Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	if p == nil {
		return nil, errors.New("principal is nil")
	}

	var email any
	if n := domain.Normalize(p.Email); n != "" {
		email = n
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		sqlStr, args, err := r.qb.Insert("principals").
			Columns(
				"id", "username", "normalized_username", "email", "normalized_email",
				"first_name", "last_name", "password_hash", "created_at", "updated_at",
			).
			Values(
				p.ID, p.UserName, domain.Normalize(p.UserName), p.Email, email,
				p.FirstName, p.LastName, p.PasswordHash, p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("build principal insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrUserExists
			}
			return fmt.Errorf("insert principal: %w", err)
		}
		return r.grant(ctx, tx, p.ID, p.Roles)
	})
	if err != nil {
		return nil, err
	}

	r.log.Debug().Str("principal_id", p.ID).Strs("roles", p.Roles).Msg("principal created")
	out := *p
	out.Roles = append([]string(nil), p.Roles...)
	return &out, nil
}

// AssignRoles grants roles to an existing principal. Roles already held are
// left untouched.
func (r *PrincipalRepository) AssignRoles(ctx context.Context, principalID string, roles ...string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		sqlStr, args, err := r.qb.Select("1").From("principals").Where(sq.Eq{"id": principalID}).ToSql()
		if err != nil {
			return fmt.Errorf("build principal check: %w", err)
		}
		var one int
		if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("principal check: %w", err)
		}
		return r.grant(ctx, tx, principalID, roles)
	})
}

func (r *PrincipalRepository) grant(ctx context.Context, tx *sql.Tx, principalID string, roles []string) error {
	if len(roles) == 0 {
		return nil
	}

	normalized := make([]string, len(roles))
	for i, role := range roles {
		normalized[i] = domain.Normalize(role)
	}
	sqlStr, args, err := r.qb.Select("id", "normalized_name").From("roles").Where(sq.Eq{"normalized_name": normalized}).ToSql()
	if err != nil {
		return fmt.Errorf("build role resolve: %w", err)
	}
	rows, err := tx.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("resolve roles: %w", err)
	}
	ids := make(map[string]int64, len(roles))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return fmt.Errorf("scan role: %w", err)
		}
		ids[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("resolve roles: %w", err)
	}

	for i, name := range normalized {
		id, ok := ids[name]
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrInvalidRole, roles[i])
		}
		sqlStr, args, err := r.qb.Insert("principal_roles").
			Columns("principal_id", "role_id").
			Values(principalID, id).
			Suffix("ON CONFLICT DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build role grant: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("grant role %s: %w", roles[i], err)
		}
	}
	return nil
}

func (r *PrincipalRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
