package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nivaas/property-system/internal/core/domain"
)

const collectionLoginAsSessions = "login_as_sessions"

type LoginAsSessionRepository struct {
	col *mongo.Collection
}

func NewLoginAsSessionRepository(db *mongo.Database) *LoginAsSessionRepository {
	return &LoginAsSessionRepository{col: db.Collection(collectionLoginAsSessions)}
}

type mongoSession struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ActorID       string             `bson:"actor_id"`
	TargetID      string             `bson:"target_id"`
	ActorRoleID   string             `bson:"actor_role_id"`
	ActorRoleSlug string             `bson:"actor_role_slug"`
	Reason        string             `bson:"reason"`
	ExpiresAt     time.Time          `bson:"expires_at"`
	CreatedAt     time.Time          `bson:"created_at"`
}

func (ms *mongoSession) toDomain() *domain.LoginAsSession {
	return &domain.LoginAsSession{
		ID:            ms.ID.Hex(),
		ActorID:       ms.ActorID,
		TargetID:      ms.TargetID,
		ActorRoleID:   ms.ActorRoleID,
		ActorRoleSlug: ms.ActorRoleSlug,
		Reason:        ms.Reason,
		ExpiresAt:     ms.ExpiresAt,
		CreatedAt:     ms.CreatedAt,
	}
}

func (r *LoginAsSessionRepository) Create(ctx context.Context, session *domain.LoginAsSession) (*domain.LoginAsSession, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoSession{
		ActorID:       session.ActorID,
		TargetID:      session.TargetID,
		ActorRoleID:   session.ActorRoleID,
		ActorRoleSlug: session.ActorRoleSlug,
		Reason:        session.Reason,
		ExpiresAt:     session.ExpiresAt,
		CreatedAt:     session.CreatedAt,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	id, _ := res.InsertedID.(primitive.ObjectID)
	out := *session
	out.ID = id.Hex()
	return &out, nil
}

func (r *LoginAsSessionRepository) FindByID(ctx context.Context, id string) (*domain.LoginAsSession, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoSession
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return ms.toDomain(), nil
}

func (r *LoginAsSessionRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// EnsureIndexes creates the actor lookup index.
func (r *LoginAsSessionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "actor_id", Value: 1}},
	})
	return err
}
