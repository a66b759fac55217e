package out

import (
	"context"

	"github.com/google/uuid"

	"trustmail_server/core/domain"
)

// SessionStore resolves and primes per-user sessions. Implemented on Redis;
// the inbox path only ever calls Get.
type SessionStore interface {
	// Get returns the session for a user, or (nil, nil) when none exists.
	Get(ctx context.Context, userID uuid.UUID) (*domain.Session, error)

	// Put stores the session. Called by the OAuth callback.
	Put(ctx context.Context, session *domain.Session) error

	// Delete removes the session.
	Delete(ctx context.Context, userID uuid.UUID) error
}
