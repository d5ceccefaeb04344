package repository

import (
	"context"
	"os"
	"time"

	"github.com/amirbiron/prompt-enhancer/model"
	"github.com/amirbiron/prompt-enhancer/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// unorderedRank sorts prompts without a priority_order after every
// explicitly ordered one.
const unorderedRank = 1 << 30

type PromptsRepo struct {
	MongoCollection *mongo.Collection
}

func GetPromptsRepo(client *mongo.Client) *PromptsRepo {
	return &PromptsRepo{
		MongoCollection: client.Database(os.Getenv("MONGO_DB")).Collection("prompt_history"),
	}
}

// ownerFilter scopes every single-document operation by both id and user
// so one user can never touch another user's prompt.
func ownerFilter(promptID, userID string) bson.M {
	return bson.M{
		"_id":     promptID,
		"user_id": userID,
	}
}

// CreatePrompt stores a new refinement result with default organizational
// fields.
func (r *PromptsRepo) CreatePrompt(ctx context.Context, prompt *model.Prompt) error {
	timer := utils.TrackDBOperation("insert", "prompt_history")
	defer timer.ObserveDuration()

	now := time.Now()
	prompt.CreatedAt = now
	prompt.UpdatedAt = now
	if prompt.Tags == nil {
		prompt.Tags = []string{}
	}

	_, err := r.MongoCollection.InsertOne(ctx, prompt)
	return classify(err)
}

// GetPrompt retrieves one prompt by id, scoped to its owner. Archived
// prompts stay retrievable by direct id.
func (r *PromptsRepo) GetPrompt(ctx context.Context, promptID, userID string) (*model.Prompt, error) {
	timer := utils.TrackDBOperation("find", "prompt_history")
	defer timer.ObserveDuration()

	var prompt model.Prompt
	err := r.MongoCollection.FindOne(ctx, ownerFilter(promptID, userID)).Decode(&prompt)
	if err != nil {
		return nil, classify(err)
	}
	return &prompt, nil
}

// GetUserHistory returns the user's non-archived prompts, newest first.
func (r *PromptsRepo) GetUserHistory(ctx context.Context, userID string, limit int) ([]*model.Prompt, error) {
	timer := utils.TrackDBOperation("find", "prompt_history")
	defer timer.ObserveDuration()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.MongoCollection.Find(ctx,
		bson.M{"user_id": userID, "is_archived": false}, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var prompts []*model.Prompt
	if err = cursor.All(ctx, &prompts); err != nil {
		return nil, classify(err)
	}
	return prompts, nil
}

// AddTag inserts tag into the prompt's tag set. Adding a tag that is
// already present is a no-op success; $addToSet makes the call idempotent
// and free of read-modify-write races.
func (r *PromptsRepo) AddTag(ctx context.Context, promptID, userID, tag string) error {
	timer := utils.TrackDBOperation("update", "prompt_history")
	defer timer.ObserveDuration()

	update := bson.M{
		"$addToSet": bson.M{"tags": tag},
		"$set":      bson.M{"updated_at": time.Now()},
	}

	result, err := r.MongoCollection.UpdateOne(ctx, ownerFilter(promptID, userID), update)
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveTag removes tag from the prompt's tag set; removing an absent tag
// is a no-op success.
func (r *PromptsRepo) RemoveTag(ctx context.Context, promptID, userID, tag string) error {
	timer := utils.TrackDBOperation("update", "prompt_history")
	defer timer.ObserveDuration()

	update := bson.M{
		"$pull": bson.M{"tags": tag},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := r.MongoCollection.UpdateOne(ctx, ownerFilter(promptID, userID), update)
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceTags overwrites the prompt's tag set. The caller is expected to
// have de-duplicated tags already; racing ReplaceTags against AddTag or
// RemoveTag on the same prompt resolves by store serialization order.
func (r *PromptsRepo) ReplaceTags(ctx context.Context, promptID, userID string, tags []string) error {
	timer := utils.TrackDBOperation("update", "prompt_history")
	defer timer.ObserveDuration()

	if tags == nil {
		tags = []string{}
	}

	update := bson.M{
		"$set": bson.M{
			"tags":       tags,
			"updated_at": time.Now(),
		},
	}

	result, err := r.MongoCollection.UpdateOne(ctx, ownerFilter(promptID, userID), update)
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByTag returns the user's non-archived prompts carrying tag, newest
// first, truncated at limit.
func (r *PromptsRepo) ListByTag(ctx context.Context, userID, tag string, limit int) ([]*model.Prompt, error) {
	timer := utils.TrackDBOperation("find", "prompt_history")
	defer timer.ObserveDuration()

	filter := bson.M{
		"user_id":     userID,
		"tags":        tag,
		"is_archived": false,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.MongoCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var prompts []*model.Prompt
	if err = cursor.All(ctx, &prompts); err != nil {
		return nil, classify(err)
	}
	return prompts, nil
}

// TagInventory returns each distinct tag across the user's non-archived
// prompts with its occurrence count, most used first. Count ties break by
// tag value so the listing is deterministic.
func (r *PromptsRepo) TagInventory(ctx context.Context, userID string) ([]model.TagCount, error) {
	timer := utils.TrackDBOperation("aggregate", "prompt_history")
	defer timer.ObserveDuration()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID, "is_archived": false}}},
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$tags",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "count", Value: -1},
			{Key: "_id", Value: 1},
		}}},
	}

	cursor, err := r.MongoCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var inventory []model.TagCount
	if err = cursor.All(ctx, &inventory); err != nil {
		return nil, classify(err)
	}
	return inventory, nil
}

// AssignToCollection sets the prompt's collection membership. A nil name
// removes the prompt from any collection; priority_order is only written
// when order is non-nil, so a stale order survives removal but stays
// inert (collection listings never see uncollected prompts).
func (r *PromptsRepo) AssignToCollection(ctx context.Context, promptID, userID string, name *string, order *int) error {
	timer := utils.TrackDBOperation("update", "prompt_history")
	defer timer.ObserveDuration()

	fields := bson.M{
		"collection_name": name,
		"updated_at":      time.Now(),
	}
	if order != nil {
		fields["priority_order"] = order
	}

	result, err := r.MongoCollection.UpdateOne(ctx, ownerFilter(promptID, userID), bson.M{"$set": fields})
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCollectionMembers returns the user's non-archived prompts in the
// named collection, ordered by priority_order ascending with unordered
// prompts last, then by creation time ascending. Mongo sorts nulls first,
// so the rank is computed server-side with $ifNull.
func (r *PromptsRepo) ListCollectionMembers(ctx context.Context, userID, name string) ([]*model.Prompt, error) {
	timer := utils.TrackDBOperation("aggregate", "prompt_history")
	defer timer.ObserveDuration()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":         userID,
			"collection_name": name,
			"is_archived":     false,
		}}},
		{{Key: "$addFields", Value: bson.M{
			"order_rank": bson.M{"$ifNull": bson.A{"$priority_order", unorderedRank}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "order_rank", Value: 1},
			{Key: "created_at", Value: 1},
		}}},
		{{Key: "$unset", Value: "order_rank"}},
	}

	cursor, err := r.MongoCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var prompts []*model.Prompt
	if err = cursor.All(ctx, &prompts); err != nil {
		return nil, classify(err)
	}
	return prompts, nil
}

// ListCollections returns the distinct collection names the user has
// non-archived prompts in, with member count and the newest member's
// creation time, most recently touched collection first.
func (r *PromptsRepo) ListCollections(ctx context.Context, userID string) ([]model.CollectionInfo, error) {
	timer := utils.TrackDBOperation("aggregate", "prompt_history")
	defer timer.ObserveDuration()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":         userID,
			"is_archived":     false,
			"collection_name": bson.M{"$type": "string"},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$collection_name",
			"count":  bson.M{"$sum": 1},
			"latest": bson.M{"$max": "$created_at"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "latest", Value: -1}}}},
	}

	cursor, err := r.MongoCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var collections []model.CollectionInfo
	if err = cursor.All(ctx, &collections); err != nil {
		return nil, classify(err)
	}
	return collections, nil
}

// SetArchived flips the archive flag. Archiving an already-archived
// prompt is a no-op success; the flag never touches tags, collection
// membership, or ordering.
func (r *PromptsRepo) SetArchived(ctx context.Context, promptID, userID string, archived bool) error {
	timer := utils.TrackDBOperation("update", "prompt_history")
	defer timer.ObserveDuration()

	update := bson.M{
		"$set": bson.M{
			"is_archived": archived,
			"updated_at":  time.Now(),
		},
	}

	result, err := r.MongoCollection.UpdateOne(ctx, ownerFilter(promptID, userID), update)
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddFeedback records a user rating and optional feedback text on a
// prompt.
func (r *PromptsRepo) AddFeedback(ctx context.Context, promptID, userID string, rating int, feedback *string) error {
	timer := utils.TrackDBOperation("update", "prompt_history")
	defer timer.ObserveDuration()

	update := bson.M{
		"$set": bson.M{
			"rating":      rating,
			"feedback":    feedback,
			"feedback_at": time.Now(),
			"updated_at":  time.Now(),
		},
	}

	result, err := r.MongoCollection.UpdateOne(ctx, ownerFilter(promptID, userID), update)
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// TopImprovements returns the prompts with the largest score delta,
// optionally filtered by category. Used for community examples.
func (r *PromptsRepo) TopImprovements(ctx context.Context, category string, minImprovement, limit int) ([]model.Improvement, error) {
	timer := utils.TrackDBOperation("aggregate", "prompt_history")
	defer timer.ObserveDuration()

	match := bson.M{}
	if category != "" {
		match["category"] = category
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{
			"improvement": bson.M{"$subtract": bson.A{"$score_after", "$score_before"}},
		}}},
		{{Key: "$match", Value: bson.M{"improvement": bson.M{"$gte": minImprovement}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "improvement", Value: -1},
			{Key: "score_after", Value: -1},
		}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{
			"original_prompt": 1,
			"improved_prompt": 1,
			"category":        1,
			"score_before":    1,
			"score_after":     1,
			"improvement":     1,
		}}},
	}

	cursor, err := r.MongoCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var improvements []model.Improvement
	if err = cursor.All(ctx, &improvements); err != nil {
		return nil, classify(err)
	}
	return improvements, nil
}

// GetStats computes store-wide totals and averages.
func (r *PromptsRepo) GetStats(ctx context.Context) (*model.ServiceStats, error) {
	timer := utils.TrackDBOperation("aggregate", "prompt_history")
	defer timer.ObserveDuration()

	var stats model.ServiceStats

	total, err := r.MongoCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, classify(err)
	}
	stats.TotalPrompts = total

	avgPipeline := mongo.Pipeline{
		{{Key: "$addFields", Value: bson.M{
			"improvement": bson.M{"$subtract": bson.A{"$score_after", "$score_before"}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":              nil,
			"avg_improvement":  bson.M{"$avg": "$improvement"},
			"avg_score_before": bson.M{"$avg": "$score_before"},
			"avg_score_after":  bson.M{"$avg": "$score_after"},
		}}},
	}

	cursor, err := r.MongoCollection.Aggregate(ctx, avgPipeline)
	if err != nil {
		return nil, classify(err)
	}
	var averages []struct {
		Improvement float64 `bson:"avg_improvement"`
		ScoreBefore float64 `bson:"avg_score_before"`
		ScoreAfter  float64 `bson:"avg_score_after"`
	}
	if err = cursor.All(ctx, &averages); err != nil {
		return nil, classify(err)
	}
	if len(averages) > 0 {
		stats.Averages.Improvement = averages[0].Improvement
		stats.Averages.ScoreBefore = averages[0].ScoreBefore
		stats.Averages.ScoreAfter = averages[0].ScoreAfter
	}

	categoryPipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$category",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err = r.MongoCollection.Aggregate(ctx, categoryPipeline)
	if err != nil {
		return nil, classify(err)
	}
	var categories []struct {
		Category string `bson:"_id"`
		Count    int64  `bson:"count"`
	}
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, classify(err)
	}
	stats.ByCategory = make(map[string]int64, len(categories))
	for _, c := range categories {
		stats.ByCategory[c.Category] = c.Count
	}

	return &stats, nil
}

// CountUserPrompts counts every prompt a user owns, archived included.
func (r *PromptsRepo) CountUserPrompts(ctx context.Context, userID string) (int, error) {
	timer := utils.TrackDBOperation("count", "prompt_history")
	defer timer.ObserveDuration()

	count, err := r.MongoCollection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, classify(err)
	}
	return int(count), nil
}
