// Package persistence provides database and cache adapters.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"trustmail_server/core/port/out"
)

// OAuthAdapter implements out.OAuthRepository using PostgreSQL.
type OAuthAdapter struct {
	db *sqlx.DB
}

// NewOAuthAdapter creates a new OAuthAdapter.
func NewOAuthAdapter(db *sqlx.DB) *OAuthAdapter {
	return &OAuthAdapter{db: db}
}

// Create inserts a new connection and sets the generated ID on the entity.
func (a *OAuthAdapter) Create(ctx context.Context, entity *out.OAuthConnectionEntity) error {
	query := `
		INSERT INTO oauth_connections
			(user_id, provider, email, access_token, refresh_token,
			 expires_at, is_connected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	return a.db.QueryRowxContext(ctx, query,
		entity.UserID, entity.Provider, entity.Email,
		entity.AccessToken, entity.RefreshToken,
		entity.ExpiresAt, entity.IsConnected,
		entity.CreatedAt, entity.UpdatedAt,
	).Scan(&entity.ID)
}

// Update replaces the mutable fields of an existing connection.
func (a *OAuthAdapter) Update(ctx context.Context, entity *out.OAuthConnectionEntity) error {
	entity.UpdatedAt = time.Now()
	query := `
		UPDATE oauth_connections
		SET access_token = $1, refresh_token = $2, expires_at = $3,
		    is_connected = $4, updated_at = $5
		WHERE id = $6`

	_, err := a.db.ExecContext(ctx, query,
		entity.AccessToken, entity.RefreshToken, entity.ExpiresAt,
		entity.IsConnected, entity.UpdatedAt, entity.ID,
	)
	return err
}

// GetByUser returns the most recent connection for a user and provider, or
// (nil, nil) when none exists.
func (a *OAuthAdapter) GetByUser(ctx context.Context, userID string, provider string) (*out.OAuthConnectionEntity, error) {
	var entity out.OAuthConnectionEntity
	query := `
		SELECT id, user_id, provider, email, access_token, refresh_token,
		       expires_at, is_connected, created_at, updated_at
		FROM oauth_connections
		WHERE user_id = $1 AND provider = $2
		ORDER BY updated_at DESC
		LIMIT 1`

	if err := a.db.GetContext(ctx, &entity, query, userID, provider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// GetByEmail returns a connection by user, provider and account email, or
// (nil, nil) when none exists.
func (a *OAuthAdapter) GetByEmail(ctx context.Context, userID, provider, email string) (*out.OAuthConnectionEntity, error) {
	var entity out.OAuthConnectionEntity
	query := `
		SELECT id, user_id, provider, email, access_token, refresh_token,
		       expires_at, is_connected, created_at, updated_at
		FROM oauth_connections
		WHERE user_id = $1 AND provider = $2 AND email = $3`

	if err := a.db.GetContext(ctx, &entity, query, userID, provider, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// Interface compliance
var _ out.OAuthRepository = (*OAuthAdapter)(nil)
