package provider

import (
	"encoding/base64"
	"errors"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"trustmail_server/core/port/out"
)

// TestWrapError tests the Gmail status to provider-error-code mapping.
func TestWrapError(t *testing.T) {
	a := NewGmailAdapter(&GmailConfig{ClientID: "id", ClientSecret: "secret"})

	tests := []struct {
		name      string
		err       error
		wantCode  out.ProviderErrorCode
		retryable bool
	}{
		{"401 maps to token expired", &googleapi.Error{Code: 401}, out.ProviderErrTokenExpired, false},
		{"403 maps to auth error", &googleapi.Error{Code: 403, Message: "Access Not Configured"}, out.ProviderErrAuth, false},
		{"403 rate limit maps to rate limit", &googleapi.Error{Code: 403, Message: "User Rate Limit Exceeded"}, out.ProviderErrRateLimit, true},
		{"429 maps to rate limit", &googleapi.Error{Code: 429}, out.ProviderErrRateLimit, true},
		{"400 maps to invalid input", &googleapi.Error{Code: 400}, out.ProviderErrInvalidInput, false},
		{"404 maps to not found", &googleapi.Error{Code: 404}, out.ProviderErrNotFound, false},
		{"500 maps to server error", &googleapi.Error{Code: 500}, out.ProviderErrServer, true},
		{"503 maps to server error", &googleapi.Error{Code: 503}, out.ProviderErrServer, true},
		{"opaque error maps to server error", errors.New("connection reset"), out.ProviderErrServer, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := a.wrapError(tt.err, "request failed")

			var provErr *out.ProviderError
			if !errors.As(wrapped, &provErr) {
				t.Fatalf("wrapError returned %T, want *out.ProviderError", wrapped)
			}
			if provErr.Code != tt.wantCode {
				t.Errorf("code = %v, want %v", provErr.Code, tt.wantCode)
			}
			if provErr.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", provErr.Retryable, tt.retryable)
			}
			if provErr.Provider != "gmail" {
				t.Errorf("provider = %q, want gmail", provErr.Provider)
			}
		})
	}

	if a.wrapError(nil, "x") != nil {
		t.Errorf("wrapError(nil) should return nil")
	}
}

// TestParseDetail tests payload flattening into message detail.
func TestParseDetail(t *testing.T) {
	body := base64.URLEncoding.EncodeToString([]byte("plain body"))
	htmlBody := base64.URLEncoding.EncodeToString([]byte("<p>html body</p>"))

	msg := &gmail.Message{
		Id:           "msg-1",
		ThreadId:     "thr-1",
		Snippet:      "plain body",
		InternalDate: 1700000000000,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "GitHub <noreply@github.com>"},
				{Name: "To", Value: "a@example.com, b@example.com"},
				{Name: "Subject", Value: "New release"},
				{Name: "List-Unsubscribe", Value: "<mailto:unsub@github.com>"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: body}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: htmlBody}},
			},
		},
	}

	detail := parseDetail(msg)

	if detail.ID != "msg-1" || detail.ThreadID != "thr-1" {
		t.Errorf("ids = %q/%q, want msg-1/thr-1", detail.ID, detail.ThreadID)
	}
	if detail.FromName != "GitHub" || detail.FromEmail != "noreply@github.com" {
		t.Errorf("from = %q <%q>, want GitHub <noreply@github.com>", detail.FromName, detail.FromEmail)
	}
	if detail.Subject != "New release" {
		t.Errorf("subject = %q", detail.Subject)
	}
	if len(detail.To) != 2 || detail.To[0] != "a@example.com" {
		t.Errorf("to = %v", detail.To)
	}
	if detail.BodyText != "plain body" {
		t.Errorf("bodyText = %q", detail.BodyText)
	}
	if detail.BodyHTML != "<p>html body</p>" {
		t.Errorf("bodyHTML = %q", detail.BodyHTML)
	}
	if detail.Headers["List-Unsubscribe"] == "" {
		t.Errorf("List-Unsubscribe header not captured")
	}
	if detail.ReceivedAt.IsZero() {
		t.Errorf("receivedAt not set from internal date")
	}
}

// TestParseFrom tests From header edge cases.
func TestParseFrom(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantEmail string
	}{
		{"GitHub <noreply@github.com>", "GitHub", "noreply@github.com"},
		{"noreply@github.com", "", "noreply@github.com"},
		{`"Doe, John" <john@example.com>`, "Doe, John", "john@example.com"},
		{"totally broken <<<", "", "totally broken <<<"},
	}

	for _, tt := range tests {
		name, email := parseFrom(tt.in)
		if name != tt.wantName || email != tt.wantEmail {
			t.Errorf("parseFrom(%q) = %q/%q, want %q/%q", tt.in, name, email, tt.wantName, tt.wantEmail)
		}
	}
}
