package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetupIndexes provisions every index the read paths depend on. Index
// creation is idempotent: creating an existing index is a no-op, so this
// is safe to run on every startup and from migration.
func SetupIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	promptsCollection := db.Collection("prompt_history")
	sessionsCollection := db.Collection("user_sessions")

	promptIndexes := []mongo.IndexModel{
		// Owner scoping
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("user_id_index"),
		},
		// History listing
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().
				SetName("user_prompts_date").
				SetUnique(false),
		},
		// Tag lookups, multikey over the tags array
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "tags", Value: 1},
			},
			Options: options.Index().
				SetName("user_tags"),
		},
		// Collection name lookups
		{
			Keys: bson.D{{Key: "collection_name", Value: 1}},
			Options: options.Index().
				SetName("collection_name_index"),
		},
		// Ordered collection listings
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "collection_name", Value: 1},
				{Key: "priority_order", Value: 1},
			},
			Options: options.Index().
				SetName("user_collection_order").
				SetUnique(false),
		},
		// Archive visibility filter
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "is_archived", Value: 1},
			},
			Options: options.Index().
				SetName("user_archived_prompts"),
		},
	}

	sessionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("user_id_index").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("session_expiry").
				SetExpireAfterSeconds(0),
		},
	}

	_, err := promptsCollection.Indexes().CreateMany(ctx, promptIndexes)
	if err != nil {
		return fmt.Errorf("failed to create prompt indexes: %w", err)
	}

	_, err = sessionsCollection.Indexes().CreateMany(ctx, sessionIndexes)
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	log.Println("Successfully created all indexes")
	return nil
}
