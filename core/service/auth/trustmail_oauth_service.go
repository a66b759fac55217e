// Package auth implements the provider connection flow.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trustmail_server/core/domain"
	"trustmail_server/core/port/in"
	"trustmail_server/core/port/out"
	"trustmail_server/pkg/logger"
)

// OAuthService wires the consent flow to the durable connection record and
// the session cache. Token material is never written to logs.
type OAuthService struct {
	authenticator out.MailAuthenticator
	provider      out.MailProviderPort
	oauthRepo     out.OAuthRepository
	sessions      out.SessionStore
}

// NewOAuthService creates the OAuth service.
func NewOAuthService(
	authenticator out.MailAuthenticator,
	provider out.MailProviderPort,
	oauthRepo out.OAuthRepository,
	sessions out.SessionStore,
) *OAuthService {
	return &OAuthService{
		authenticator: authenticator,
		provider:      provider,
		oauthRepo:     oauthRepo,
		sessions:      sessions,
	}
}

// GetAuthURL implements in.OAuthService.
func (s *OAuthService) GetAuthURL(ctx context.Context, provider domain.OAuthProvider, state string) (string, error) {
	switch provider {
	case domain.ProviderGoogle, "gmail":
		if s.authenticator == nil {
			return "", fmt.Errorf("google oauth not configured")
		}
		return s.authenticator.GetAuthURL(state), nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
}

// HandleCallback implements in.OAuthService.
func (s *OAuthService) HandleCallback(ctx context.Context, provider domain.OAuthProvider, code string, userID uuid.UUID) (*domain.OAuthConnection, error) {
	if provider != domain.ProviderGoogle && provider != "gmail" {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	if s.authenticator == nil {
		return nil, fmt.Errorf("google oauth not configured")
	}

	logger.WithFields(map[string]any{
		"provider": string(provider),
		"user_id":  userID.String(),
	}).Info("[OAuthService.HandleCallback] exchanging authorization code")

	token, err := s.authenticator.ExchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	profile, err := s.provider.GetProfile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get account profile: %w", err)
	}

	now := time.Now()
	conn := &domain.OAuthConnection{
		UserID:       userID,
		Provider:     domain.ProviderGoogle,
		Email:        profile.Email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		IsConnected:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.upsertConnection(ctx, conn); err != nil {
		return nil, err
	}

	if err := s.sessions.Put(ctx, sessionFromConnection(conn)); err != nil {
		// The durable record exists; the session can be rebuilt on demand.
		logger.WithError(err).Warn("[OAuthService.HandleCallback] failed to prime session store")
	}

	logger.WithFields(map[string]any{
		"connection_id": conn.ID,
		"email":         conn.Email,
	}).Info("[OAuthService.HandleCallback] connection established")

	return conn, nil
}

// Disconnect implements in.OAuthService.
func (s *OAuthService) Disconnect(ctx context.Context, userID uuid.UUID, provider domain.OAuthProvider) error {
	entity, err := s.oauthRepo.GetByUser(ctx, userID.String(), string(provider))
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	if entity != nil {
		entity.IsConnected = false
		entity.UpdatedAt = time.Now()
		if err := s.oauthRepo.Update(ctx, entity); err != nil {
			return fmt.Errorf("failed to update connection: %w", err)
		}
	}
	return s.sessions.Delete(ctx, userID)
}

// ResolveSession returns the cached session for a user, rebuilding it from
// the durable connection record on a cache miss. Returns (nil, nil) when the
// user has no active connection.
func (s *OAuthService) ResolveSession(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	entity, err := s.oauthRepo.GetByUser(ctx, userID.String(), string(domain.ProviderGoogle))
	if err != nil {
		return nil, err
	}
	if entity == nil || !entity.IsConnected {
		return nil, nil
	}

	session = sessionFromConnection(toDomainOAuth(entity))
	if err := s.sessions.Put(ctx, session); err != nil {
		logger.WithError(err).Warn("[OAuthService.ResolveSession] failed to re-prime session store")
	}
	return session, nil
}

func (s *OAuthService) upsertConnection(ctx context.Context, conn *domain.OAuthConnection) error {
	existing, _ := s.oauthRepo.GetByEmail(ctx, conn.UserID.String(), string(conn.Provider), conn.Email)
	if existing != nil {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
		if err := s.oauthRepo.Update(ctx, toOAuthEntity(conn)); err != nil {
			return fmt.Errorf("failed to update connection: %w", err)
		}
		return nil
	}

	entity := toOAuthEntity(conn)
	if err := s.oauthRepo.Create(ctx, entity); err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}
	conn.ID = entity.ID
	return nil
}

func sessionFromConnection(conn *domain.OAuthConnection) *domain.Session {
	return &domain.Session{
		UserID:       conn.UserID,
		Provider:     conn.Provider,
		Email:        conn.Email,
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		ExpiresAt:    conn.ExpiresAt,
	}
}

func toOAuthEntity(conn *domain.OAuthConnection) *out.OAuthConnectionEntity {
	expires := conn.ExpiresAt
	entity := &out.OAuthConnectionEntity{
		ID:           conn.ID,
		UserID:       conn.UserID.String(),
		Provider:     string(conn.Provider),
		Email:        conn.Email,
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		IsConnected:  conn.IsConnected,
		CreatedAt:    conn.CreatedAt,
		UpdatedAt:    conn.UpdatedAt,
	}
	if !expires.IsZero() {
		entity.ExpiresAt = &expires
	}
	return entity
}

func toDomainOAuth(entity *out.OAuthConnectionEntity) *domain.OAuthConnection {
	userID, _ := uuid.Parse(entity.UserID)
	conn := &domain.OAuthConnection{
		ID:           entity.ID,
		UserID:       userID,
		Provider:     domain.OAuthProvider(entity.Provider),
		Email:        entity.Email,
		AccessToken:  entity.AccessToken,
		RefreshToken: entity.RefreshToken,
		IsConnected:  entity.IsConnected,
		CreatedAt:    entity.CreatedAt,
		UpdatedAt:    entity.UpdatedAt,
	}
	if entity.ExpiresAt != nil {
		conn.ExpiresAt = *entity.ExpiresAt
	}
	return conn
}

// Interface compliance
var _ in.OAuthService = (*OAuthService)(nil)
