package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trustmail_server/core/domain"
	"trustmail_server/core/port/out"
)

// sessionKeyPrefix namespaces session records in Redis.
const sessionKeyPrefix = "session:user:"

// defaultSessionTTL bounds how long a primed session outlives its last write.
const defaultSessionTTL = 24 * time.Hour

// RedisSessionStore implements out.SessionStore on Redis. Sessions are stored
// as JSON under one key per user.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Get returns the session for a user, or (nil, nil) when none exists.
func (s *RedisSessionStore) Get(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+userID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Put stores the session under the user's key.
func (s *RedisSessionStore) Put(ctx context.Context, session *domain.Session) error {
	if session == nil || session.UserID == uuid.Nil {
		return errors.New("session requires a user id")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKeyPrefix+session.UserID.String(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Delete removes the session.
func (s *RedisSessionStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Interface compliance
var _ out.SessionStore = (*RedisSessionStore)(nil)
