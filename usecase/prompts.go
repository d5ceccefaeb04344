package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amirbiron/prompt-enhancer/model"
	"github.com/amirbiron/prompt-enhancer/repository"
	"github.com/amirbiron/prompt-enhancer/services"
	"github.com/amirbiron/prompt-enhancer/utils"

	"github.com/google/uuid"
)

const (
	// defaultOpTimeout bounds any call the handler did not already put a
	// deadline on.
	defaultOpTimeout = 10 * time.Second

	defaultHistoryLimit = 10
	maxListLimit        = 100
	maxTagsPerPrompt    = 30
	maxCollectionName   = 100
	maxPriorityOrder    = 1_000_000
	maxScore            = 10
)

// PromptsStore is the persistence contract the service drives. The
// Mongo-backed repository satisfies it; tests swap in an in-memory fake.
type PromptsStore interface {
	CreatePrompt(ctx context.Context, prompt *model.Prompt) error
	GetPrompt(ctx context.Context, promptID, userID string) (*model.Prompt, error)
	GetUserHistory(ctx context.Context, userID string, limit int) ([]*model.Prompt, error)

	AddTag(ctx context.Context, promptID, userID, tag string) error
	RemoveTag(ctx context.Context, promptID, userID, tag string) error
	ReplaceTags(ctx context.Context, promptID, userID string, tags []string) error
	ListByTag(ctx context.Context, userID, tag string, limit int) ([]*model.Prompt, error)
	TagInventory(ctx context.Context, userID string) ([]model.TagCount, error)

	AssignToCollection(ctx context.Context, promptID, userID string, name *string, order *int) error
	ListCollectionMembers(ctx context.Context, userID, name string) ([]*model.Prompt, error)
	ListCollections(ctx context.Context, userID string) ([]model.CollectionInfo, error)

	SetArchived(ctx context.Context, promptID, userID string, archived bool) error

	AddFeedback(ctx context.Context, promptID, userID string, rating int, feedback *string) error
	TopImprovements(ctx context.Context, category string, minImprovement, limit int) ([]model.Improvement, error)
	GetStats(ctx context.Context) (*model.ServiceStats, error)

	Migrate(ctx context.Context) (int64, error)
}

type PromptsService struct {
	Store PromptsStore
	Cache *services.InventoryCache
}

// withDeadline ensures every store call carries a deadline.
func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultOpTimeout)
}

func invalidArg(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", repository.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// normalizeTag validates and trims one tag label.
func normalizeTag(tag string) (string, error) {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return "", invalidArg("tag cannot be empty")
	}
	if !utils.ValidateTag(trimmed) {
		return "", invalidArg("tag exceeds %d characters", utils.MaxTagLength)
	}
	return trimmed, nil
}

func normalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return defaultHistoryLimit, nil
	}
	if limit < 0 || limit > maxListLimit {
		return 0, invalidArg("limit must be between 1 and %d", maxListLimit)
	}
	return limit, nil
}

// invalidateInventory drops the user's cached aggregates after a
// mutation. Best effort: a cache failure never fails the mutation.
func (svc *PromptsService) invalidateInventory(ctx context.Context, userID string) {
	if svc.Cache == nil {
		return
	}
	if err := svc.Cache.InvalidateUser(ctx, userID); err != nil {
		utils.TrackError("cache")
		log.Printf("Warning: failed to invalidate inventory cache for user %s: %v", userID, err)
	}
}

// CreatePrompt validates and stores a new refinement result.
func (svc *PromptsService) CreatePrompt(ctx context.Context, prompt *model.Prompt) error {
	if prompt.UserID == "" {
		return invalidArg("user ID is required")
	}
	if strings.TrimSpace(prompt.OriginalPrompt) == "" {
		return invalidArg("original prompt is required")
	}
	if strings.TrimSpace(prompt.ImprovedPrompt) == "" {
		return invalidArg("improved prompt is required")
	}
	if prompt.Category == "" {
		prompt.Category = model.CategoryGeneral
	}
	if prompt.ScoreBefore < 0 || prompt.ScoreBefore > maxScore ||
		prompt.ScoreAfter < 0 || prompt.ScoreAfter > maxScore {
		return invalidArg("scores must be between 0 and %d", maxScore)
	}
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}
	prompt.Tags = dedupeTags(prompt.Tags)
	if len(prompt.Tags) > maxTagsPerPrompt {
		return invalidArg("maximum %d tags allowed", maxTagsPerPrompt)
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if err := svc.Store.CreatePrompt(ctx, prompt); err != nil {
		return err
	}
	utils.TrackPromptOperation("create")
	svc.invalidateInventory(ctx, prompt.UserID)
	return nil
}

func (svc *PromptsService) GetPrompt(ctx context.Context, promptID, userID string) (*model.Prompt, error) {
	if promptID == "" || userID == "" {
		return nil, invalidArg("prompt ID and user ID are required")
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()
	return svc.Store.GetPrompt(ctx, promptID, userID)
}

func (svc *PromptsService) GetUserHistory(ctx context.Context, userID string, limit int) ([]*model.Prompt, error) {
	if userID == "" {
		return nil, invalidArg("user ID is required")
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()
	return svc.Store.GetUserHistory(ctx, userID, limit)
}

// AddTag inserts one tag into a prompt's tag set. Idempotent: tagging an
// already-tagged prompt succeeds without change.
func (svc *PromptsService) AddTag(ctx context.Context, promptID, userID, tag string) error {
	if promptID == "" || userID == "" {
		return invalidArg("prompt ID and user ID are required")
	}
	tag, err := normalizeTag(tag)
	if err != nil {
		return err
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if err := svc.Store.AddTag(ctx, promptID, userID, tag); err != nil {
		return err
	}
	utils.TrackPromptOperation("tag")
	svc.invalidateInventory(ctx, userID)
	return nil
}

// RemoveTag removes one tag; removing an absent tag succeeds without
// change.
func (svc *PromptsService) RemoveTag(ctx context.Context, promptID, userID, tag string) error {
	if promptID == "" || userID == "" {
		return invalidArg("prompt ID and user ID are required")
	}
	tag, err := normalizeTag(tag)
	if err != nil {
		return err
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if err := svc.Store.RemoveTag(ctx, promptID, userID, tag); err != nil {
		return err
	}
	utils.TrackPromptOperation("tag")
	svc.invalidateInventory(ctx, userID)
	return nil
}

// ReplaceTags sets the tag set to exactly tags, de-duplicated, replacing
// whatever was there before.
func (svc *PromptsService) ReplaceTags(ctx context.Context, promptID, userID string, tags []string) error {
	if promptID == "" || userID == "" {
		return invalidArg("prompt ID and user ID are required")
	}

	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		t, err := normalizeTag(tag)
		if err != nil {
			return err
		}
		normalized = append(normalized, t)
	}
	normalized = dedupeTags(normalized)
	if len(normalized) > maxTagsPerPrompt {
		return invalidArg("maximum %d tags allowed", maxTagsPerPrompt)
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if err := svc.Store.ReplaceTags(ctx, promptID, userID, normalized); err != nil {
		return err
	}
	utils.TrackPromptOperation("tag")
	svc.invalidateInventory(ctx, userID)
	return nil
}

func (svc *PromptsService) ListByTag(ctx context.Context, userID, tag string, limit int) ([]*model.Prompt, error) {
	if userID == "" {
		return nil, invalidArg("user ID is required")
	}
	tag, err := normalizeTag(tag)
	if err != nil {
		return nil, err
	}
	limit, err = normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()
	return svc.Store.ListByTag(ctx, userID, tag, limit)
}

// TagInventory returns the user's tag counts, served from the Redis
// cache when warm.
func (svc *PromptsService) TagInventory(ctx context.Context, userID string) ([]model.TagCount, error) {
	if userID == "" {
		return nil, invalidArg("user ID is required")
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if svc.Cache != nil {
		if inventory, ok := svc.Cache.GetTagInventory(ctx, userID); ok {
			utils.TrackCacheOperation("inventory", true)
			return inventory, nil
		}
		utils.TrackCacheOperation("inventory", false)
	}

	inventory, err := svc.Store.TagInventory(ctx, userID)
	if err != nil {
		return nil, err
	}

	if svc.Cache != nil {
		if err := svc.Cache.SetTagInventory(ctx, userID, inventory); err != nil {
			log.Printf("Warning: failed to cache tag inventory: %v", err)
		}
	}
	return inventory, nil
}

// AssignToCollection moves a prompt into (or out of) a named collection.
// A nil name removes it; a nil order leaves the stored order untouched.
func (svc *PromptsService) AssignToCollection(ctx context.Context, promptID, userID string, name *string, order *int) error {
	if promptID == "" || userID == "" {
		return invalidArg("prompt ID and user ID are required")
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return invalidArg("collection name cannot be blank")
		}
		if len(trimmed) > maxCollectionName {
			return invalidArg("collection name exceeds %d characters", maxCollectionName)
		}
		name = &trimmed
	}
	if order != nil && (*order < 0 || *order > maxPriorityOrder) {
		return invalidArg("priority order must be between 0 and %d", maxPriorityOrder)
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if err := svc.Store.AssignToCollection(ctx, promptID, userID, name, order); err != nil {
		return err
	}
	utils.TrackPromptOperation("collection")
	svc.invalidateInventory(ctx, userID)
	return nil
}

func (svc *PromptsService) ListCollectionMembers(ctx context.Context, userID, name string) ([]*model.Prompt, error) {
	if userID == "" {
		return nil, invalidArg("user ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArg("collection name is required")
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()
	return svc.Store.ListCollectionMembers(ctx, userID, name)
}

// ListCollections returns the user's collection summaries, cached like
// the tag inventory.
func (svc *PromptsService) ListCollections(ctx context.Context, userID string) ([]model.CollectionInfo, error) {
	if userID == "" {
		return nil, invalidArg("user ID is required")
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if svc.Cache != nil {
		if collections, ok := svc.Cache.GetCollections(ctx, userID); ok {
			utils.TrackCacheOperation("inventory", true)
			return collections, nil
		}
		utils.TrackCacheOperation("inventory", false)
	}

	collections, err := svc.Store.ListCollections(ctx, userID)
	if err != nil {
		return nil, err
	}

	if svc.Cache != nil {
		if err := svc.Cache.SetCollections(ctx, userID, collections); err != nil {
			log.Printf("Warning: failed to cache collections: %v", err)
		}
	}
	return collections, nil
}

// ArchivePrompt hides a prompt from every default listing without
// touching its tags, collection, or ordering.
func (svc *PromptsService) ArchivePrompt(ctx context.Context, promptID, userID string) error {
	return svc.setArchived(ctx, promptID, userID, true)
}

// UnarchivePrompt makes a prompt visible again.
func (svc *PromptsService) UnarchivePrompt(ctx context.Context, promptID, userID string) error {
	return svc.setArchived(ctx, promptID, userID, false)
}

func (svc *PromptsService) setArchived(ctx context.Context, promptID, userID string, archived bool) error {
	if promptID == "" || userID == "" {
		return invalidArg("prompt ID and user ID are required")
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if err := svc.Store.SetArchived(ctx, promptID, userID, archived); err != nil {
		return err
	}
	utils.TrackPromptOperation("archive")
	svc.invalidateInventory(ctx, userID)
	return nil
}

// AddFeedback records a 1-5 rating and optional text on a prompt.
func (svc *PromptsService) AddFeedback(ctx context.Context, promptID, userID string, rating int, feedback *string) error {
	if promptID == "" || userID == "" {
		return invalidArg("prompt ID and user ID are required")
	}
	if rating < 1 || rating > 5 {
		return invalidArg("rating must be between 1 and 5")
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if err := svc.Store.AddFeedback(ctx, promptID, userID, rating, feedback); err != nil {
		return err
	}
	utils.TrackPromptOperation("feedback")
	return nil
}

func (svc *PromptsService) TopImprovements(ctx context.Context, category string, minImprovement, limit int) ([]model.Improvement, error) {
	if category != "" && !model.IsValidCategory(category) {
		return nil, invalidArg("unknown category %q", category)
	}
	if minImprovement < 0 {
		minImprovement = 0
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withDeadline(ctx)
	defer cancel()
	return svc.Store.TopImprovements(ctx, category, minImprovement, limit)
}

func (svc *PromptsService) GetStats(ctx context.Context) (*model.ServiceStats, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()
	return svc.Store.GetStats(ctx)
}

// Migrate backfills legacy prompts and provisions indexes. Safe to call
// repeatedly; a second run reports zero updates.
func (svc *PromptsService) Migrate(ctx context.Context) (int64, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	updated, err := svc.Store.Migrate(ctx)
	if err != nil {
		return updated, err
	}
	utils.TrackPromptOperation("migrate")
	return updated, nil
}

// dedupeTags drops duplicate labels, keeping first-occurrence order.
func dedupeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}
