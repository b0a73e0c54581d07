package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

const collectionRegistrationTokens = "registration_tokens"

type RegistrationTokenRepository struct {
	col *mongo.Collection
}

func NewRegistrationTokenRepository(db *mongo.Database) *RegistrationTokenRepository {
	return &RegistrationTokenRepository{col: db.Collection(collectionRegistrationTokens)}
}

type mongoToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	Email     string             `bson:"email,omitempty"`
	RoleSlug  string             `bson:"role_slug"`
	CreatedBy string             `bson:"created_by"`
	ExpiresAt time.Time          `bson:"expires_at"`
	Used      bool               `bson:"used"`
	UsedAt    *time.Time         `bson:"used_at,omitempty"`
	UsedBy    string             `bson:"used_by,omitempty"`
	Metadata  map[string]any     `bson:"metadata,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (mt *mongoToken) toDomain() *domain.RegistrationToken {
	return &domain.RegistrationToken{
		ID:        mt.ID.Hex(),
		Token:     mt.Token,
		Email:     mt.Email,
		RoleSlug:  mt.RoleSlug,
		CreatedBy: mt.CreatedBy,
		ExpiresAt: mt.ExpiresAt,
		Used:      mt.Used,
		UsedAt:    mt.UsedAt,
		UsedBy:    mt.UsedBy,
		Metadata:  mt.Metadata,
		CreatedAt: mt.CreatedAt,
	}
}

func (r *RegistrationTokenRepository) Create(ctx context.Context, token *domain.RegistrationToken) (*domain.RegistrationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoToken{
		Token:     token.Token,
		Email:     token.Email,
		RoleSlug:  token.RoleSlug,
		CreatedBy: token.CreatedBy,
		ExpiresAt: token.ExpiresAt,
		Metadata:  token.Metadata,
		CreatedAt: token.CreatedAt,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}

	id, _ := res.InsertedID.(primitive.ObjectID)
	out := *token
	out.ID = id.Hex()
	return &out, nil
}

func (r *RegistrationTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RegistrationToken, error) {
	return r.findOne(ctx, bson.M{"token": token})
}

func (r *RegistrationTokenRepository) FindByID(ctx context.Context, id string) (*domain.RegistrationToken, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *RegistrationTokenRepository) findOne(ctx context.Context, filter bson.M) (*domain.RegistrationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mt mongoToken
	if err := r.col.FindOne(ctx, filter).Decode(&mt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return mt.toDomain(), nil
}

// MarkUsed consumes the token. The used:false filter makes consumption
// atomic: a second concurrent consumer matches nothing.
func (r *RegistrationTokenRepository) MarkUsed(ctx context.Context, id, usedBy string, usedAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrTokenInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "used": false}
	update := bson.M{"$set": bson.M{"used": true, "used_by": usedBy, "used_at": usedAt}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return ferr
		}
		return domain.ErrTokenUsed
	}
	return nil
}

// MarkUnused releases a consumed token after a failed downstream creation.
func (r *RegistrationTokenRepository) MarkUnused(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrTokenInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"used": false},
		"$unset": bson.M{"used_by": "", "used_at": ""},
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("mark token unused: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTokenInvalid
	}
	return nil
}

func (r *RegistrationTokenRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrTokenInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTokenInvalid
	}
	return nil
}

// tokenListQuery translates a listing filter into a mongo query. The email
// filter is a case-insensitive substring match; the value is quoted so user
// input never executes as a regular expression.
func tokenListQuery(creatorID string, filter ports.TokenFilter) bson.M {
	query := bson.M{"created_by": creatorID}
	if filter.Used != nil {
		query["used"] = *filter.Used
	}
	if filter.RoleSlug != "" {
		query["role_slug"] = filter.RoleSlug
	}
	if filter.Email != "" {
		query["email"] = bson.M{"$regex": regexp.QuoteMeta(filter.Email), "$options": "i"}
	}
	return query
}

func (r *RegistrationTokenRepository) ListByCreator(ctx context.Context, creatorID string, filter ports.TokenFilter) ([]*domain.RegistrationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, tokenListQuery(creatorID, filter), options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.RegistrationToken
	for cursor.Next(ctx) {
		var mt mongoToken
		if err := cursor.Decode(&mt); err != nil {
			return nil, fmt.Errorf("decode token: %w", err)
		}
		out = append(out, mt.toDomain())
	}
	return out, cursor.Err()
}

// EnsureIndexes creates the token lookup indexes.
func (r *RegistrationTokenRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
