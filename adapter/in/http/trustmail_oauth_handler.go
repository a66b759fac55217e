package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"trustmail_server/core/domain"
	"trustmail_server/core/port/in"
	"trustmail_server/pkg/apperr"
	"trustmail_server/pkg/logger"
)

// OAuthStateStore stores one-time CSRF states for the consent flow.
type OAuthStateStore interface {
	StoreState(ctx context.Context, state string, userID uuid.UUID, ttl time.Duration) error
	ValidateState(ctx context.Context, state string) (uuid.UUID, error)
}

// oauthStateTTL bounds how long a pending consent flow stays valid.
const oauthStateTTL = 10 * time.Minute

// OAuthHandler serves the provider connection flow.
type OAuthHandler struct {
	oauthService in.OAuthService
	stateStore   OAuthStateStore
}

// NewOAuthHandler creates the OAuth handler.
func NewOAuthHandler(oauthService in.OAuthService, stateStore OAuthStateStore) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		stateStore:   stateStore,
	}
}

// Register mounts the authenticated OAuth routes. The callback is mounted
// separately before auth middleware; Google's redirect carries no bearer
// token and identity comes from the validated state instead.
func (h *OAuthHandler) Register(authed fiber.Router) {
	authed.Get("/oauth/connect/:provider", h.Connect)
	authed.Delete("/oauth/connections/:provider", h.Disconnect)
}

func generateSecureState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure state: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Connect handles GET /api/oauth/connect/:provider.
func (h *OAuthHandler) Connect(c *fiber.Ctx) error {
	provider := domain.OAuthProvider(c.Params("provider"))

	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	state, err := generateSecureState()
	if err != nil {
		return apperr.InternalWithError(err)
	}

	if err := h.stateStore.StoreState(c.Context(), state, userID, oauthStateTTL); err != nil {
		return apperr.InternalWithError(err)
	}

	authURL, err := h.oauthService.GetAuthURL(c.Context(), provider, state)
	if err != nil {
		return apperr.BadRequest(err.Error())
	}

	return c.JSON(fiber.Map{
		"auth_url": authURL,
	})
}

// Callback handles GET /api/oauth/callback/:provider.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	provider := domain.OAuthProvider(c.Params("provider"))
	code := c.Query("code")
	state := c.Query("state")

	if errorParam := c.Query("error"); errorParam != "" {
		logger.WithFields(map[string]any{
			"provider": string(provider),
			"reason":   errorParam,
		}).Warn("[OAuthHandler] provider returned consent error")
		return apperr.OAuthFailed(string(provider), fmt.Errorf("consent denied: %s", errorParam))
	}
	if code == "" {
		return apperr.BadRequest("missing authorization code")
	}
	if state == "" {
		return apperr.BadRequest("missing state")
	}

	userID, err := h.stateStore.ValidateState(c.Context(), state)
	if err != nil {
		return apperr.Unauthorized("invalid or expired state")
	}

	conn, err := h.oauthService.HandleCallback(c.Context(), provider, code, userID)
	if err != nil {
		return apperr.OAuthFailed(string(provider), err)
	}

	return c.JSON(fiber.Map{
		"connected": true,
		"provider":  conn.Provider,
		"email":     conn.Email,
	})
}

// Disconnect handles DELETE /api/oauth/connections/:provider.
func (h *OAuthHandler) Disconnect(c *fiber.Ctx) error {
	provider := domain.OAuthProvider(c.Params("provider"))

	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	if err := h.oauthService.Disconnect(c.Context(), userID, provider); err != nil {
		return apperr.DatabaseError("disconnect", err)
	}

	return c.JSON(fiber.Map{
		"disconnected": true,
		"provider":     provider,
	})
}
