package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

const principalCollection = "principals"

// PrincipalRepository keeps principals as single documents with their roles
// embedded.
type PrincipalRepository struct {
	coll *mongo.Collection
}

var _ ports.PrincipalRepository = (*PrincipalRepository)(nil)

func NewPrincipalRepository(db *mongo.Database) *PrincipalRepository {
	return &PrincipalRepository{coll: db.Collection(principalCollection)}
}

type principalDoc struct {
	ID                 string   `bson:"_id"`
	UserName           string   `bson:"username"`
	NormalizedUserName string   `bson:"normalized_username"`
	Email              string   `bson:"email,omitempty"`
	NormalizedEmail    string   `bson:"normalized_email,omitempty"`
	FirstName          string   `bson:"first_name,omitempty"`
	LastName           string   `bson:"last_name,omitempty"`
	PasswordHash       string   `bson:"password_hash"`
	Roles              []string `bson:"roles"`
	CreatedAt          int64    `bson:"created_at"`
	UpdatedAt          int64    `bson:"updated_at"`
}

// EnsureIndexes creates the unique lookup indexes. Documents without an
// e-mail are skipped by the e-mail index.
func (r *PrincipalRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "normalized_username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "normalized_email", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"normalized_email": bson.M{"$type": "string"}}),
		},
	})
	if err != nil {
		return fmt.Errorf("create principal indexes: %w", err)
	}
	return nil
}

func (r *PrincipalRepository) Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	if p == nil {
		return nil, errors.New("principal is nil")
	}
	for _, role := range p.Roles {
		if !domain.IsKnownRole(role) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
		}
	}

	doc := principalDoc{
		ID:                 p.ID,
		UserName:           p.UserName,
		NormalizedUserName: domain.Normalize(p.UserName),
		Email:              p.Email,
		NormalizedEmail:    domain.Normalize(p.Email),
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		PasswordHash:       p.PasswordHash,
		Roles:              append([]string{}, p.Roles...),
		CreatedAt:          p.CreatedAt.Unix(),
		UpdatedAt:          p.UpdatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert principal: %w", err)
	}
	return doc.toDomain(), nil
}

// FindByIdentifier matches the username first, then the e-mail address.
func (r *PrincipalRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error) {
	norm := domain.Normalize(identifier)
	if norm == "" {
		return nil, domain.ErrUserNotFound
	}

	p, err := r.findOne(ctx, bson.M{"normalized_username": norm})
	if errors.Is(err, domain.ErrUserNotFound) {
		p, err = r.findOne(ctx, bson.M{"normalized_email": norm})
	}
	return p, err
}

func (r *PrincipalRepository) findOne(ctx context.Context, filter bson.M) (*domain.Principal, error) {
	var doc principalDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *PrincipalRepository) AssignRoles(ctx context.Context, principalID string, roles ...string) error {
	for _, role := range roles {
		if !domain.IsKnownRole(role) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
		}
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": principalID},
		bson.M{
			"$addToSet": bson.M{"roles": bson.M{"$each": roles}},
			"$set":      bson.M{"updated_at": time.Now().UTC().Unix()},
		},
	)
	if err != nil {
		return fmt.Errorf("assign roles: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (d principalDoc) toDomain() *domain.Principal {
	roles := d.Roles
	if roles == nil {
		roles = []string{}
	}
	return &domain.Principal{
		ID:           d.ID,
		UserName:     d.UserName,
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		PasswordHash: d.PasswordHash,
		Roles:        roles,
		CreatedAt:    unixToTime(d.CreatedAt),
		UpdatedAt:    unixToTime(d.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
