package in

import (
	"context"

	"github.com/google/uuid"

	"trustmail_server/core/domain"
)

// OAuthService is the inbound port for the provider connection flow.
type OAuthService interface {
	// GetAuthURL builds the provider consent URL for the given CSRF state.
	GetAuthURL(ctx context.Context, provider domain.OAuthProvider, state string) (string, error)

	// HandleCallback exchanges the authorization code, resolves the account
	// email, upserts the durable connection and primes the session store.
	HandleCallback(ctx context.Context, provider domain.OAuthProvider, code string, userID uuid.UUID) (*domain.OAuthConnection, error)

	// Disconnect marks the connection inactive and drops the session.
	Disconnect(ctx context.Context, userID uuid.UUID, provider domain.OAuthProvider) error
}
