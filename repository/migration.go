package repository

import (
	"context"

	"github.com/amirbiron/prompt-enhancer/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// Migrate backfills the organizational fields onto legacy prompts and
// (re)provisions the indexes. The filter matches only documents that
// still lack the tags field, so re-running is a no-op on anything already
// migrated or created with defaults; that also makes it safe to resolve a
// partially applied run by running again. Returns the number of documents
// updated.
func (r *PromptsRepo) Migrate(ctx context.Context) (int64, error) {
	timer := utils.TrackDBOperation("update_many", "prompt_history")
	defer timer.ObserveDuration()

	filter := bson.M{"tags": bson.M{"$exists": false}}
	update := bson.M{
		"$set": bson.M{
			"tags":            []string{},
			"collection_name": nil,
			"priority_order":  nil,
			"is_archived":     false,
			"notes":           nil,
		},
	}

	result, err := r.MongoCollection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, classify(err)
	}

	if err := SetupIndexes(r.MongoCollection.Database()); err != nil {
		return result.ModifiedCount, classify(err)
	}

	return result.ModifiedCount, nil
}
