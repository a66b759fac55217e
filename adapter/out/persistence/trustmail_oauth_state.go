package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// oauthStateKeyPrefix namespaces CSRF state records in Redis.
const oauthStateKeyPrefix = "oauth:state:"

// RedisOAuthStateStore stores one-time OAuth CSRF states in Redis.
type RedisOAuthStateStore struct {
	client *redis.Client
}

// NewRedisOAuthStateStore creates a Redis OAuth state store.
func NewRedisOAuthStateStore(client *redis.Client) *RedisOAuthStateStore {
	return &RedisOAuthStateStore{client: client}
}

// StoreState records a pending consent flow for the user.
func (s *RedisOAuthStateStore) StoreState(ctx context.Context, state string, userID uuid.UUID, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if userID == uuid.Nil {
		return errors.New("userID cannot be nil")
	}

	key := oauthStateKeyPrefix + state
	if err := s.client.Set(ctx, key, userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store OAuth state: %w", err)
	}
	return nil
}

// ValidateState resolves a state to its user and consumes it. GETDEL makes
// the state single-use.
func (s *RedisOAuthStateStore) ValidateState(ctx context.Context, state string) (uuid.UUID, error) {
	if state == "" {
		return uuid.Nil, errors.New("state cannot be empty")
	}

	userIDStr, err := s.client.GetDel(ctx, oauthStateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, errors.New("state not found or expired")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to validate OAuth state: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid userID in state: %w", err)
	}
	return userID, nil
}
