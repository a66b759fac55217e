package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"trustmail_server/core/domain"
	"trustmail_server/core/port/in"
	"trustmail_server/core/port/out"
	"trustmail_server/core/service/inbox"
	"trustmail_server/pkg/apperr"
)

// SessionResolver resolves the provider session for an authenticated user.
// Returns (nil, nil) when the user has no mail provider connected.
type SessionResolver interface {
	ResolveSession(ctx context.Context, userID uuid.UUID) (*domain.Session, error)
}

// InboxHandler serves the fetch-and-score endpoint.
type InboxHandler struct {
	inboxService in.InboxService
	sessions     SessionResolver
}

// NewInboxHandler creates the inbox handler.
func NewInboxHandler(inboxService in.InboxService, sessions SessionResolver) *InboxHandler {
	return &InboxHandler{
		inboxService: inboxService,
		sessions:     sessions,
	}
}

// Register mounts the inbox routes.
func (h *InboxHandler) Register(router fiber.Router) {
	router.Get("/emails", h.FetchEmails)
}

// inboxResponse is the success envelope.
type inboxResponse struct {
	Emails       []domain.AnalyzedEmail `json:"emails"`
	TotalFetched int                    `json:"totalFetched"`
	Message      string                 `json:"message,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

// FetchEmails handles GET /api/emails.
//
// maxResults is optional; non-numeric values fall back to the default and
// out-of-range values are clamped rather than rejected.
func (h *InboxHandler) FetchEmails(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	session, err := h.sessions.ResolveSession(c.Context(), userID)
	if err != nil {
		return apperr.DatabaseError("resolve session", err)
	}
	if session == nil {
		return apperr.Unauthorized("no mail provider connected")
	}
	if !session.HasAccessToken() {
		return apperr.MissingToken("")
	}

	maxResults := c.QueryInt("maxResults", inbox.DefaultMaxResults)

	result, err := h.inboxService.FetchAndScore(c.Context(), session, maxResults)
	if err != nil {
		return classifyInboxError(err)
	}

	resp := inboxResponse{
		Emails:       result.Emails,
		TotalFetched: result.TotalFetched,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	if result.TotalFetched == 0 {
		resp.Message = "No recent emails found"
	}

	return c.JSON(resp)
}

// classifyInboxError maps listing-path failures to user-facing errors. Only
// typed codes drive the mapping; error text never does.
func classifyInboxError(err error) error {
	if errors.Is(err, inbox.ErrNoSession) {
		return apperr.Unauthorized("no mail provider connected")
	}
	if errors.Is(err, inbox.ErrMissingToken) {
		return apperr.MissingToken("")
	}

	var provErr *out.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case out.ProviderErrTokenExpired:
			return apperr.TokenExpired("")
		case out.ProviderErrAuth:
			return apperr.Forbidden("")
		case out.ProviderErrRateLimit:
			return apperr.RateLimited("")
		case out.ProviderErrInvalidInput:
			return apperr.BadRequest("invalid mail listing request")
		case out.ProviderErrServer:
			return apperr.ServerError(err)
		}
	}

	return apperr.Unknown(err)
}
