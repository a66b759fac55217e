// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"

	"golang.org/x/oauth2"

	"trustmail_server/core/domain"
)

// =============================================================================
// Mail Provider Port
// =============================================================================

// MailProviderPort is the outbound port for the external mail provider.
// The inbox path uses exactly two operations: list references, then fetch
// detail per reference. All failures surface as *ProviderError.
type MailProviderPort interface {
	GetProviderType() string

	// ListMessages returns up to limit recent message references.
	ListMessages(ctx context.Context, token *oauth2.Token, limit int) ([]domain.MessageRef, error)

	// GetMessage fetches full detail for one reference.
	GetMessage(ctx context.Context, token *oauth2.Token, id string) (*domain.MessageDetail, error)

	// GetProfile resolves the account email for a token.
	GetProfile(ctx context.Context, token *oauth2.Token) (*ProviderProfile, error)
}

// MailAuthenticator handles the OAuth consent flow.
type MailAuthenticator interface {
	GetAuthURL(state string) string
	ExchangeToken(ctx context.Context, code string) (*oauth2.Token, error)
}

// ProviderProfile is the provider-side account identity.
type ProviderProfile struct {
	Email string
}

// =============================================================================
// Provider Error
// =============================================================================

// ProviderErrorCode classifies provider failures. The inbox handler maps
// these to user-facing error codes; nothing string-matches error text.
type ProviderErrorCode string

const (
	ProviderErrTokenExpired ProviderErrorCode = "token_expired"
	ProviderErrAuth         ProviderErrorCode = "auth_error"
	ProviderErrRateLimit    ProviderErrorCode = "rate_limit"
	ProviderErrInvalidInput ProviderErrorCode = "invalid_input"
	ProviderErrNotFound     ProviderErrorCode = "not_found"
	ProviderErrServer       ProviderErrorCode = "server_error"
)

// ProviderError represents a provider failure.
type ProviderError struct {
	Provider  string
	Code      ProviderErrorCode
	Message   string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new provider error.
func NewProviderError(provider string, code ProviderErrorCode, message string, err error, retryable bool) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}
