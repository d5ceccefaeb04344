package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/amirbiron/prompt-enhancer/model"
	"github.com/amirbiron/prompt-enhancer/services"
	"github.com/amirbiron/prompt-enhancer/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepo struct {
	MongoCollection *mongo.Collection
}

func GetSessionRepo(client *mongo.Client) *SessionRepo {
	return &SessionRepo{
		MongoCollection: client.Database(os.Getenv("MONGO_DB")).Collection("user_sessions"),
	}
}

// GetSession returns the user's conversation session, or nil when none
// exists. The Redis cache is consulted first; a cache failure falls
// through to the store.
func (r *SessionRepo) GetSession(ctx context.Context, userID string) (*model.Session, error) {
	timer := utils.TrackDBOperation("find", "user_sessions")
	defer timer.ObserveDuration()

	if userID == "" {
		return nil, fmt.Errorf("%w: userID cannot be empty", ErrInvalidArgument)
	}

	if services.GlobalSessionCache != nil {
		if session, err := services.GlobalSessionCache.GetSession(ctx, userID); err == nil && session != nil {
			utils.TrackCacheOperation("session", true)
			return session, nil
		}
		utils.TrackCacheOperation("session", false)
	}

	var session model.Session
	err := r.MongoCollection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, classify(err)
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, nil
	}

	if services.GlobalSessionCache != nil {
		if err := services.GlobalSessionCache.SetSession(ctx, &session); err != nil {
			log.Printf("Warning: Failed to cache session: %v", err)
		}
	}

	return &session, nil
}

// SaveSession upserts the user's session document and refreshes the
// cache entry.
func (r *SessionRepo) SaveSession(ctx context.Context, session *model.Session) error {
	timer := utils.TrackDBOperation("upsert", "user_sessions")
	defer timer.ObserveDuration()

	if session == nil {
		return fmt.Errorf("%w: session cannot be nil", ErrInvalidArgument)
	}
	if session.UserID == "" {
		return fmt.Errorf("%w: session is missing a user id", ErrInvalidArgument)
	}

	session.UpdatedAt = time.Now()
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = session.UpdatedAt.Add(24 * time.Hour)
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.MongoCollection.UpdateOne(ctx,
		bson.M{"user_id": session.UserID},
		bson.M{"$set": session}, opts)
	if err != nil {
		return classify(err)
	}

	if services.GlobalSessionCache != nil {
		if err := services.GlobalSessionCache.SetSession(ctx, session); err != nil {
			log.Printf("Warning: Failed to cache session: %v", err)
		}
	}

	return nil
}

// ClearSession removes the user's session from the store and the cache.
// Clearing a session that does not exist is a no-op success.
func (r *SessionRepo) ClearSession(ctx context.Context, userID string) error {
	timer := utils.TrackDBOperation("delete", "user_sessions")
	defer timer.ObserveDuration()

	if userID == "" {
		return fmt.Errorf("%w: userID cannot be empty", ErrInvalidArgument)
	}

	_, err := r.MongoCollection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return classify(err)
	}

	if services.GlobalSessionCache != nil {
		if err := services.GlobalSessionCache.DeleteSession(ctx, userID); err != nil {
			log.Printf("Warning: Failed to evict cached session: %v", err)
		}
	}

	return nil
}
