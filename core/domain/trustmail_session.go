package domain

import (
	"time"

	"github.com/google/uuid"
)

// OAuthProvider identifies a mail provider.
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google"
)

// Session is the per-user session record the inbox handler reads. It is
// written by the OAuth callback and owned by the auth layer; the inbox path
// never mutates it.
type Session struct {
	UserID       uuid.UUID     `json:"user_id"`
	Provider     OAuthProvider `json:"provider"`
	Email        string        `json:"email"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// HasAccessToken reports whether the session carries a provider credential.
func (s *Session) HasAccessToken() bool {
	return s != nil && s.AccessToken != ""
}

// OAuthConnection is the durable record of a provider authorization.
type OAuthConnection struct {
	ID           int64
	UserID       uuid.UUID
	Provider     OAuthProvider
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	IsConnected  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
