package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	chaterrors "medportal/internal/chat/errors"
	"medportal/pkg/config"
	"medportal/pkg/model"
)

const CollectionName = "chat_sessions"

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.ChatSession, error)
	FindByUser(ctx context.Context, userID string) ([]*model.ChatSession, error)
	Create(ctx context.Context, session *model.ChatSession) error
	ReplaceMessages(ctx context.Context, id string, messages []model.ChatMessage) error
	Delete(ctx context.Context, id string) error
}

type mongoSessionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSessionRepository(cfg *config.Config) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSessionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*model.ChatSession, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var session model.ChatSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, chaterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find chat session: %w", err)
	}
	return &session, nil
}

func (r *mongoSessionRepository) FindByUser(ctx context.Context, userID string) ([]*model.ChatSession, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chat sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.ChatSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode chat sessions: %w", err)
	}
	return sessions, nil
}

func (r *mongoSessionRepository) Create(ctx context.Context, session *model.ChatSession) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	session.CreatedAt = now
	session.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create chat session: %w", err)
	}
	return nil
}

func (r *mongoSessionRepository) ReplaceMessages(ctx context.Context, id string, messages []model.ChatMessage) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"messages":   messages,
			"updated_at": time.Now().UTC(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to replace chat messages: %w", err)
	}
	if result.MatchedCount == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *mongoSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	if result.DeletedCount == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}
