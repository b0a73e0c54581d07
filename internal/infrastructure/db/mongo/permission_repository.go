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
	collectionPermissions      = "permissions"
	collectionRolePermissions  = "role_permissions"
	collectionStaffPermissions = "staff_permissions"
)

type PermissionRepository struct {
	col *mongo.Collection
}

func NewPermissionRepository(db *mongo.Database) *PermissionRepository {
	return &PermissionRepository{col: db.Collection(collectionPermissions)}
}

type mongoPermission struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Key         string             `bson:"key"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (mp *mongoPermission) toDomain() *domain.Permission {
	return &domain.Permission{
		ID:          mp.ID.Hex(),
		Key:         mp.Key,
		Description: mp.Description,
		CreatedAt:   mp.CreatedAt,
		UpdatedAt:   mp.UpdatedAt,
	}
}

func (r *PermissionRepository) FindByID(ctx context.Context, id string) (*domain.Permission, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrPermissionNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *PermissionRepository) FindByKey(ctx context.Context, key string) (*domain.Permission, error) {
	return r.findOne(ctx, bson.M{"key": key})
}

func (r *PermissionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoPermission
	if err := r.col.FindOne(ctx, filter).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("find permission: %w", err)
	}
	return mp.toDomain(), nil
}

// Upsert writes the permission keyed by its dot-namespaced key.
func (r *PermissionRepository) Upsert(ctx context.Context, perm *domain.Permission) (*domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"description": perm.Description, "updated_at": now},
		"$setOnInsert": bson.M{"key": perm.Key, "created_at": now},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"key": perm.Key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("upsert permission: %w", err)
	}
	return r.FindByKey(ctx, perm.Key)
}

func (r *PermissionRepository) List(ctx context.Context) ([]*domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.Permission
	for cursor.Next(ctx) {
		var mp mongoPermission
		if err := cursor.Decode(&mp); err != nil {
			return nil, fmt.Errorf("decode permission: %w", err)
		}
		out = append(out, mp.toDomain())
	}
	return out, cursor.Err()
}

// EnsureIndexes creates the unique key index.
func (r *PermissionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type RolePermissionRepository struct {
	col *mongo.Collection
}

func NewRolePermissionRepository(db *mongo.Database) *RolePermissionRepository {
	return &RolePermissionRepository{col: db.Collection(collectionRolePermissions)}
}

type mongoRolePermission struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	RoleID        string             `bson:"role_id"`
	PermissionID  string             `bson:"permission_id"`
	PermissionKey string             `bson:"permission_key"`
	CreatedAt     time.Time          `bson:"created_at"`
}

// KeysForRole returns the denormalized permission keys assigned to a role.
func (r *RolePermissionRepository) KeysForRole(ctx context.Context, roleID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{"role_id": roleID})
	if err != nil {
		return nil, fmt.Errorf("role permissions: %w", err)
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var mrp mongoRolePermission
		if err := cursor.Decode(&mrp); err != nil {
			return nil, fmt.Errorf("decode role permission: %w", err)
		}
		keys = append(keys, mrp.PermissionKey)
	}
	return keys, cursor.Err()
}

func (r *RolePermissionRepository) Assign(ctx context.Context, assoc *domain.RolePermission) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"permission_key": assoc.PermissionKey},
		"$setOnInsert": bson.M{"created_at": now},
	}
	filter := bson.M{"role_id": assoc.RoleID, "permission_id": assoc.PermissionID}
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("assign role permission: %w", err)
	}
	return nil
}

func (r *RolePermissionRepository) Remove(ctx context.Context, roleID, permissionID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteOne(ctx, bson.M{"role_id": roleID, "permission_id": permissionID})
	if err != nil {
		return fmt.Errorf("remove role permission: %w", err)
	}
	return nil
}

// EnsureIndexes creates the compound role/permission index.
func (r *RolePermissionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "role_id", Value: 1}, {Key: "permission_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type StaffPermissionRepository struct {
	col *mongo.Collection
}

func NewStaffPermissionRepository(db *mongo.Database) *StaffPermissionRepository {
	return &StaffPermissionRepository{col: db.Collection(collectionStaffPermissions)}
}

type mongoStaffPermission struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UserID        string             `bson:"user_id"`
	PermissionID  string             `bson:"permission_id"`
	PermissionKey string             `bson:"permission_key"`
	GrantedBy     string             `bson:"granted_by"`
	GrantedAt     time.Time          `bson:"granted_at"`
	RevokedBy     string             `bson:"revoked_by,omitempty"`
	RevokedAt     *time.Time         `bson:"revoked_at,omitempty"`
}

func (msp *mongoStaffPermission) toDomain() *domain.StaffPermission {
	return &domain.StaffPermission{
		ID:            msp.ID.Hex(),
		UserID:        msp.UserID,
		PermissionID:  msp.PermissionID,
		PermissionKey: msp.PermissionKey,
		GrantedBy:     msp.GrantedBy,
		GrantedAt:     msp.GrantedAt,
		RevokedBy:     msp.RevokedBy,
		RevokedAt:     msp.RevokedAt,
	}
}

func (r *StaffPermissionRepository) Create(ctx context.Context, grant *domain.StaffPermission) (*domain.StaffPermission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoStaffPermission{
		UserID:        grant.UserID,
		PermissionID:  grant.PermissionID,
		PermissionKey: grant.PermissionKey,
		GrantedBy:     grant.GrantedBy,
		GrantedAt:     grant.GrantedAt,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert grant: %w", err)
	}

	id, _ := res.InsertedID.(primitive.ObjectID)
	out := *grant
	out.ID = id.Hex()
	return &out, nil
}

func (r *StaffPermissionRepository) FindActive(ctx context.Context, userID, permissionID string) (*domain.StaffPermission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID, "permission_id": permissionID, "revoked_at": nil}
	var msp mongoStaffPermission
	if err := r.col.FindOne(ctx, filter).Decode(&msp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrGrantNotFound
		}
		return nil, fmt.Errorf("find grant: %w", err)
	}
	return msp.toDomain(), nil
}

func (r *StaffPermissionRepository) ActiveForUser(ctx context.Context, userID string) ([]*domain.StaffPermission, error) {
	return r.find(ctx, bson.M{"user_id": userID, "revoked_at": nil})
}

func (r *StaffPermissionRepository) HistoryForUser(ctx context.Context, userID string) ([]*domain.StaffPermission, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *StaffPermissionRepository) find(ctx context.Context, filter bson.M) ([]*domain.StaffPermission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "granted_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find grants: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.StaffPermission
	for cursor.Next(ctx) {
		var msp mongoStaffPermission
		if err := cursor.Decode(&msp); err != nil {
			return nil, fmt.Errorf("decode grant: %w", err)
		}
		out = append(out, msp.toDomain())
	}
	return out, cursor.Err()
}

// Revoke stamps the grant row; history is retained, nothing is deleted.
func (r *StaffPermissionRepository) Revoke(ctx context.Context, grantID, revokedBy string, revokedAt time.Time) (*domain.StaffPermission, error) {
	oid, err := primitive.ObjectIDFromHex(grantID)
	if err != nil {
		return nil, domain.ErrGrantNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "revoked_at": nil}
	update := bson.M{"$set": bson.M{"revoked_by": revokedBy, "revoked_at": revokedAt}}
	var msp mongoStaffPermission
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrGrantNotFound
		}
		return nil, fmt.Errorf("revoke grant: %w", err)
	}
	return msp.toDomain(), nil
}

// EnsureIndexes creates the grant lookup indexes.
func (r *StaffPermissionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "revoked_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "permission_id", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
