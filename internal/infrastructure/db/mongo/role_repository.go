package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nivaas/property-system/internal/core/domain"
)

const (
	collectionRoles      = "roles"
	collectionRoleLimits = "role_limits"
)

type RoleRepository struct {
	col *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{col: db.Collection(collectionRoles)}
}

type mongoRole struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Slug        string             `bson:"slug"`
	Rank        int                `bson:"rank"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (mr *mongoRole) toDomain() *domain.Role {
	return &domain.Role{
		ID:          mr.ID.Hex(),
		Name:        mr.Name,
		Slug:        mr.Slug,
		Rank:        mr.Rank,
		Description: mr.Description,
		CreatedAt:   mr.CreatedAt,
		UpdatedAt:   mr.UpdatedAt,
	}
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrRoleNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *RoleRepository) FindBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *RoleRepository) findOne(ctx context.Context, filter bson.M) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mr mongoRole
	if err := r.col.FindOne(ctx, filter).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return mr.toDomain(), nil
}

// Upsert writes the role keyed by slug. Used by the bootstrap seeder so
// reruns converge instead of duplicating.
func (r *RoleRepository) Upsert(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":        role.Name,
			"rank":        role.Rank,
			"description": role.Description,
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{"slug": role.Slug, "created_at": now},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"slug": role.Slug}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("upsert role: %w", err)
	}
	return r.FindBySlug(ctx, role.Slug)
}

func (r *RoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "rank", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.Role
	for cursor.Next(ctx) {
		var mr mongoRole
		if err := cursor.Decode(&mr); err != nil {
			return nil, fmt.Errorf("decode role: %w", err)
		}
		out = append(out, mr.toDomain())
	}
	return out, cursor.Err()
}

// EnsureIndexes creates the unique slug index.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type RoleLimitRepository struct {
	col *mongo.Collection
}

func NewRoleLimitRepository(db *mongo.Database) *RoleLimitRepository {
	return &RoleLimitRepository{col: db.Collection(collectionRoleLimits)}
}

type mongoRoleLimit struct {
	RoleSlug      string   `bson:"role_slug"`
	MaxHouses     int      `bson:"max_houses"`
	MaxCaretakers int      `bson:"max_caretakers"`
	MaxFlats      int      `bson:"max_flats"`
	CanLoginAs    []string `bson:"can_login_as,omitempty"`
}

func (r *RoleLimitRepository) FindBySlug(ctx context.Context, roleSlug string) (*domain.RoleLimit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ml mongoRoleLimit
	if err := r.col.FindOne(ctx, bson.M{"role_slug": roleSlug}).Decode(&ml); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role limit: %w", err)
	}
	return &domain.RoleLimit{
		RoleSlug:      ml.RoleSlug,
		MaxHouses:     ml.MaxHouses,
		MaxCaretakers: ml.MaxCaretakers,
		MaxFlats:      ml.MaxFlats,
		CanLoginAs:    ml.CanLoginAs,
	}, nil
}

func (r *RoleLimitRepository) Upsert(ctx context.Context, limit *domain.RoleLimit) (*domain.RoleLimit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoRoleLimit{
		RoleSlug:      limit.RoleSlug,
		MaxHouses:     limit.MaxHouses,
		MaxCaretakers: limit.MaxCaretakers,
		MaxFlats:      limit.MaxFlats,
		CanLoginAs:    limit.CanLoginAs,
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"role_slug": limit.RoleSlug}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("upsert role limit: %w", err)
	}
	return limit, nil
}

// EnsureIndexes creates the unique role_slug index.
func (r *RoleLimitRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "role_slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
