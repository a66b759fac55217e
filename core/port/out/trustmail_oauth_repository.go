package out

import (
	"context"
	"time"
)

// OAuthConnectionEntity is the persistence shape of a provider authorization.
type OAuthConnectionEntity struct {
	ID           int64      `db:"id"`
	UserID       string     `db:"user_id"`
	Provider     string     `db:"provider"`
	Email        string     `db:"email"`
	AccessToken  string     `db:"access_token"`
	RefreshToken string     `db:"refresh_token"`
	ExpiresAt    *time.Time `db:"expires_at"`
	IsConnected  bool       `db:"is_connected"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// OAuthRepository is the durable store for provider authorizations.
type OAuthRepository interface {
	Create(ctx context.Context, entity *OAuthConnectionEntity) error
	Update(ctx context.Context, entity *OAuthConnectionEntity) error
	GetByUser(ctx context.Context, userID string, provider string) (*OAuthConnectionEntity, error)
	GetByEmail(ctx context.Context, userID, provider, email string) (*OAuthConnectionEntity, error)
}
