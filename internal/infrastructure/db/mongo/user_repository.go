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
	"github.com/nivaas/property-system/internal/core/ports"
)

const collectionUsers = "users"

type UserRepository struct {
	col   *mongo.Collection
	roles *RoleRepository
}

// NewUserRepository builds the user store. Find operations hydrate the role
// relation through the role repository.
func NewUserRepository(db *mongo.Database, roles *RoleRepository) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers), roles: roles}
}

type mongoUser struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	UUID               string             `bson:"uuid"`
	Email              string             `bson:"email"`
	PasswordHash       string             `bson:"password_hash,omitempty"`
	GoogleID           string             `bson:"google_id,omitempty"`
	Name               string             `bson:"name,omitempty"`
	Phone              string             `bson:"phone,omitempty"`
	RoleID             string             `bson:"role_id"`
	ParentID           string             `bson:"parent_id,omitempty"`
	Status             string             `bson:"status"`
	NeedsPasswordSetup bool               `bson:"needs_password_setup"`
	Metadata           map[string]any     `bson:"metadata,omitempty"`
	LastLoginAt        *time.Time         `bson:"last_login_at,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		UUID:               u.UUID,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		GoogleID:           u.GoogleID,
		Name:               u.Name,
		Phone:              u.Phone,
		RoleID:             u.RoleID,
		ParentID:           u.ParentID,
		Status:             string(u.Status),
		NeedsPasswordSetup: u.NeedsPasswordSetup,
		Metadata:           u.Metadata,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:                 mu.ID.Hex(),
		UUID:               mu.UUID,
		Email:              mu.Email,
		PasswordHash:       mu.PasswordHash,
		GoogleID:           mu.GoogleID,
		Name:               mu.Name,
		Phone:              mu.Phone,
		RoleID:             mu.RoleID,
		ParentID:           mu.ParentID,
		Status:             domain.UserStatus(mu.Status),
		NeedsPasswordSetup: mu.NeedsPasswordSetup,
		Metadata:           mu.Metadata,
		LastLoginAt:        mu.LastLoginAt,
		CreatedAt:          mu.CreatedAt,
		UpdatedAt:          mu.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, toMongoUser(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, _ := res.InsertedID.(primitive.ObjectID)
	return r.FindByID(ctx, id.Hex())
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"google_id": googleID})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	user := mu.toDomain()
	return r.hydrateRole(ctx, user)
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": oid}, toMongoUser(user))
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrUserNotFound
	}
	return r.FindByID(ctx, user.ID)
}

func (r *UserRepository) List(ctx context.Context, filter ports.UserFilter) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.RoleSlug != "" {
		role, err := r.roles.FindBySlug(ctx, filter.RoleSlug)
		if err != nil {
			return nil, err
		}
		query["role_id"] = role.ID
	}

	cursor, err := r.col.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.User
	for cursor.Next(ctx) {
		var mu mongoUser
		if err := cursor.Decode(&mu); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		user, err := r.hydrateRole(ctx, mu.toDomain())
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, cursor.Err()
}

func (r *UserRepository) hydrateRole(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.RoleID == "" {
		return user, nil
	}
	role, err := r.roles.FindByID(ctx, user.RoleID)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return user, nil
		}
		return nil, err
	}
	user.Role = role
	return user, nil
}

// EnsureIndexes creates the indexes the user lookups depend on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "role_id", Value: 1}}},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
