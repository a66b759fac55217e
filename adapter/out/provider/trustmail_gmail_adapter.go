// Package provider implements mail provider adapters.
package provider

import (
	"context"
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"trustmail_server/core/domain"
	"trustmail_server/core/port/out"
	"trustmail_server/pkg/logger"
)

// =============================================================================
// Gmail Adapter
// =============================================================================

// GmailAdapter implements out.MailProviderPort and out.MailAuthenticator for
// the Gmail API.
type GmailAdapter struct {
	config *oauth2.Config
	cb     *gobreaker.CircuitBreaker
}

// GmailConfig holds Gmail OAuth configuration.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewGmailAdapter creates a new Gmail adapter.
func NewGmailAdapter(cfg *GmailConfig) *GmailAdapter {
	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			gmail.GmailReadonlyScope,
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: google.Endpoint,
	}

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("[GmailAdapter] circuit breaker state changed")
		},
	}

	return &GmailAdapter{
		config: config,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// GetProviderType returns the provider type.
func (a *GmailAdapter) GetProviderType() string {
	return "gmail"
}

// =============================================================================
// Authentication
// =============================================================================

// GetAuthURL returns the OAuth authorization URL.
func (a *GmailAdapter) GetAuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeToken exchanges an authorization code for a token.
func (a *GmailAdapter) ExchangeToken(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, a.wrapError(err, "failed to exchange token")
	}
	return token, nil
}

// =============================================================================
// Mail Operations
// =============================================================================

// ListMessages returns up to limit recent inbox message references.
func (a *GmailAdapter) ListMessages(ctx context.Context, token *oauth2.Token, limit int) ([]domain.MessageRef, error) {
	svc, err := a.getService(ctx, token)
	if err != nil {
		return nil, a.wrapError(err, "failed to create gmail service")
	}

	var resp *gmail.ListMessagesResponse
	err = a.executeWithCircuitBreaker(ctx, "list_messages", func() error {
		var callErr error
		resp, callErr = svc.Users.Messages.List("me").
			LabelIds("INBOX").
			MaxResults(int64(limit)).
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, a.wrapError(err, "failed to list messages")
	}

	refs := make([]domain.MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, domain.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return refs, nil
}

// GetMessage fetches full detail for one message.
func (a *GmailAdapter) GetMessage(ctx context.Context, token *oauth2.Token, id string) (*domain.MessageDetail, error) {
	svc, err := a.getService(ctx, token)
	if err != nil {
		return nil, a.wrapError(err, "failed to create gmail service")
	}

	var msg *gmail.Message
	err = a.executeWithCircuitBreaker(ctx, "get_message", func() error {
		var callErr error
		msg, callErr = svc.Users.Messages.Get("me", id).
			Format("full").
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, a.wrapError(err, "failed to get message")
	}

	return parseDetail(msg), nil
}

// GetProfile resolves the account email for a token.
func (a *GmailAdapter) GetProfile(ctx context.Context, token *oauth2.Token) (*out.ProviderProfile, error) {
	svc, err := a.getService(ctx, token)
	if err != nil {
		return nil, a.wrapError(err, "failed to create gmail service")
	}

	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, a.wrapError(err, "failed to get profile")
	}

	return &out.ProviderProfile{Email: profile.EmailAddress}, nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

func (a *GmailAdapter) getService(ctx context.Context, token *oauth2.Token) (*gmail.Service, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	// The inbox path holds a session-scoped access token and never refreshes;
	// a static source keeps refresh attempts out of this adapter.
	return gmail.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(token),
	))
}

// nonCircuitError marks client-side failures that must not trip the breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string { return e.err.Error() }

// executeWithCircuitBreaker wraps an API call with circuit breaker protection.
// Server-side failures (5xx, 429) count toward opening the circuit; client
// errors pass through without affecting it.
func (a *GmailAdapter) executeWithCircuitBreaker(ctx context.Context, operation string, fn func() error) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok {
				switch apiErr.Code {
				case 500, 502, 503, 429:
					return nil, err
				case 400, 401, 403, 404:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}

	if err != nil {
		logger.WithError(err).WithFields(map[string]any{
			"operation": operation,
			"state":     a.cb.State().String(),
		}).Error("[GmailAdapter] circuit breaker error")
	}

	return err
}

// wrapError converts Gmail API failures into typed provider errors so callers
// classify by code, never by error text.
func (a *GmailAdapter) wrapError(err error, defaultMsg string) error {
	if err == nil {
		return nil
	}

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return out.NewProviderError("gmail", out.ProviderErrServer, "Provider temporarily unavailable", err, true)
	}

	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 400:
			return out.NewProviderError("gmail", out.ProviderErrInvalidInput, "Invalid request", err, false)
		case 401:
			return out.NewProviderError("gmail", out.ProviderErrTokenExpired, "Token expired", err, false)
		case 403:
			if strings.Contains(apiErr.Message, "Rate Limit") {
				return out.NewProviderError("gmail", out.ProviderErrRateLimit, "Rate limit exceeded", err, true)
			}
			return out.NewProviderError("gmail", out.ProviderErrAuth, "Access denied", err, false)
		case 404:
			return out.NewProviderError("gmail", out.ProviderErrNotFound, "Not found", err, false)
		case 429:
			return out.NewProviderError("gmail", out.ProviderErrRateLimit, "Too many requests", err, true)
		case 500, 502, 503:
			return out.NewProviderError("gmail", out.ProviderErrServer, "Server error", err, true)
		}
	}

	return out.NewProviderError("gmail", out.ProviderErrServer, defaultMsg, err, true)
}

// =============================================================================
// Message Parsing
// =============================================================================

func parseDetail(msg *gmail.Message) *domain.MessageDetail {
	detail := &domain.MessageDetail{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Headers:  map[string]string{},
	}
	if msg.InternalDate > 0 {
		detail.ReceivedAt = time.Unix(msg.InternalDate/1000, 0)
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			if _, exists := detail.Headers[h.Name]; !exists {
				detail.Headers[h.Name] = h.Value
			}
			switch h.Name {
			case "From":
				detail.FromName, detail.FromEmail = parseFrom(h.Value)
			case "To":
				detail.To = parseAddresses(h.Value)
			case "Subject":
				detail.Subject = h.Value
			}
		}

		detail.BodyHTML, detail.BodyText = parseBody(msg.Payload)
	}

	return detail
}

func parseFrom(value string) (name, email string) {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		// Malformed From headers still carry signal; keep the raw value.
		return "", strings.TrimSpace(value)
	}
	return addr.Name, addr.Address
}

func parseAddresses(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		addrs = append(addrs, strings.TrimSpace(p))
	}
	return addrs
}

func parseBody(payload *gmail.MessagePart) (html, text string) {
	if payload == nil {
		return "", ""
	}

	if payload.MimeType == "text/html" && payload.Body != nil {
		data, _ := base64.URLEncoding.DecodeString(payload.Body.Data)
		html = string(data)
	}
	if payload.MimeType == "text/plain" && payload.Body != nil {
		data, _ := base64.URLEncoding.DecodeString(payload.Body.Data)
		text = string(data)
	}

	for _, part := range payload.Parts {
		h, t := parseBody(part)
		if html == "" && h != "" {
			html = h
		}
		if text == "" && t != "" {
			text = t
		}
	}

	return html, text
}

// =============================================================================
// Interface Compliance
// =============================================================================

var (
	_ out.MailProviderPort  = (*GmailAdapter)(nil)
	_ out.MailAuthenticator = (*GmailAdapter)(nil)
)
