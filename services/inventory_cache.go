package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirbiron/prompt-enhancer/model"

	"github.com/redis/go-redis/v9"
)

// inventoryTTL bounds staleness of the read-side aggregates; mutations
// invalidate eagerly, the TTL covers missed invalidations.
const inventoryTTL = 5 * time.Minute

// InventoryCache keeps per-user tag and collection aggregates in Redis.
// Both are aggregation-pipeline results, the two most expensive read
// paths, and both change only through the mutation operations, which
// invalidate the user's entries.
type InventoryCache struct {
	client *redis.Client
}

var GlobalInventoryCache *InventoryCache

func NewInventoryCache(redisURL string) (*InventoryCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &InventoryCache{client: client}, nil
}

func tagInventoryKey(userID string) string {
	return fmt.Sprintf("inventory:tags:%s", userID)
}

func collectionsKey(userID string) string {
	return fmt.Sprintf("inventory:collections:%s", userID)
}

// GetTagInventory returns the cached inventory, or (nil, false) on a
// miss.
func (ic *InventoryCache) GetTagInventory(ctx context.Context, userID string) ([]model.TagCount, bool) {
	data, err := ic.client.Get(ctx, tagInventoryKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}

	var inventory []model.TagCount
	if err := json.Unmarshal(data, &inventory); err != nil {
		return nil, false
	}
	return inventory, true
}

func (ic *InventoryCache) SetTagInventory(ctx context.Context, userID string, inventory []model.TagCount) error {
	data, err := json.Marshal(inventory)
	if err != nil {
		return fmt.Errorf("failed to marshal tag inventory: %w", err)
	}
	return ic.client.Set(ctx, tagInventoryKey(userID), data, inventoryTTL).Err()
}

// GetCollections returns the cached collection listing, or (nil, false)
// on a miss.
func (ic *InventoryCache) GetCollections(ctx context.Context, userID string) ([]model.CollectionInfo, bool) {
	data, err := ic.client.Get(ctx, collectionsKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}

	var collections []model.CollectionInfo
	if err := json.Unmarshal(data, &collections); err != nil {
		return nil, false
	}
	return collections, true
}

func (ic *InventoryCache) SetCollections(ctx context.Context, userID string, collections []model.CollectionInfo) error {
	data, err := json.Marshal(collections)
	if err != nil {
		return fmt.Errorf("failed to marshal collections: %w", err)
	}
	return ic.client.Set(ctx, collectionsKey(userID), data, inventoryTTL).Err()
}

// InvalidateUser drops both aggregates for a user. Called after every
// successful mutation on one of the user's prompts.
func (ic *InventoryCache) InvalidateUser(ctx context.Context, userID string) error {
	return ic.client.Del(ctx, tagInventoryKey(userID), collectionsKey(userID)).Err()
}
