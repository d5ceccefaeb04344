package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirbiron/prompt-enhancer/model"

	"github.com/redis/go-redis/v9"
)

// SessionCache keeps the per-user conversation session in Redis so the
// chat layer's read-modify-write cycle on every turn rarely hits Mongo.
type SessionCache struct {
	client *redis.Client
}

var GlobalSessionCache *SessionCache

// NewSessionCache creates and initializes a new session cache
func NewSessionCache(redisURL string) (*SessionCache, error) {
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

	return &SessionCache{client: client}, nil
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

// SetSession caches a user's session with a TTL matching its expiry.
func (sc *SessionCache) SetSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return fmt.Errorf("cannot cache nil session")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session has already expired")
	}

	if err := sc.client.Set(ctx, sessionKey(session.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}

	return nil
}

// GetSession retrieves a user's session from the cache; a miss returns
// (nil, nil).
func (sc *SessionCache) GetSession(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}

	data, err := sc.client.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from cache: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		sc.DeleteSession(ctx, userID)
		return nil, nil
	}

	return &session, nil
}

// DeleteSession evicts a user's cached session.
func (sc *SessionCache) DeleteSession(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}
	return sc.client.Del(ctx, sessionKey(userID)).Err()
}
