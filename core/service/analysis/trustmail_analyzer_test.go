// Package analysis implements the trust scoring pipeline for mail messages.
package analysis

import (
	"context"
	"testing"

	"trustmail_server/core/domain"
)

// TestHeuristicScoring tests the stage-1 header/sender/subject heuristics.
func TestHeuristicScoring(t *testing.T) {
	analyzer := NewAnalyzer()

	tests := []struct {
		name        string
		msg         *domain.MessageDetail
		wantVerdict domain.TrustVerdict
		wantSignal  string
	}{
		{
			name: "GitHub notification should be trusted",
			msg: &domain.MessageDetail{
				ID:        "m1",
				Subject:   "New comment on your PR",
				FromEmail: "noreply@github.com",
			},
			wantVerdict: domain.VerdictTrusted,
			wantSignal:  SignalTrustedDomain,
		},
		{
			name: "account verification phishing should be suspicious",
			msg: &domain.MessageDetail{
				ID:        "m2",
				Subject:   "URGENT ACTION REQUIRED: verify your account now",
				FromEmail: "security@paypa1-alerts.example",
			},
			wantVerdict: domain.VerdictSuspicious,
			wantSignal:  SignalSuspiciousSubject,
		},
		{
			name: "brand display name on freemail should be suspicious",
			msg: &domain.MessageDetail{
				ID:        "m3",
				Subject:   "Your receipt",
				FromName:  "PayPal Support",
				FromEmail: "paypal.help.desk@gmail.com",
			},
			wantVerdict: domain.VerdictSuspicious,
			wantSignal:  SignalFreemailLookalike,
		},
		{
			name: "plain personal mail stays neutral",
			msg: &domain.MessageDetail{
				ID:        "m4",
				Subject:   "Re: dinner plans",
				FromEmail: "john.doe@gmail.com",
			},
			wantVerdict: domain.VerdictNeutral,
		},
		{
			name: "newsletter with List-Unsubscribe stays neutral",
			msg: &domain.MessageDetail{
				ID:        "m5",
				Subject:   "Weekly digest",
				FromEmail: "news@store.example",
				Headers: map[string]string{
					"List-Unsubscribe": "<mailto:unsub@store.example>",
					"Precedence":       "bulk",
				},
			},
			wantVerdict: domain.VerdictNeutral,
		},
		{
			name: "gift card scam body should be suspicious",
			msg: &domain.MessageDetail{
				ID:        "m6",
				Subject:   "quick favor",
				FromEmail: "ceo.office.urgent@hotmail.com",
				BodyText:  "I need you to buy a gift card and send me the codes",
			},
			wantVerdict: domain.VerdictSuspicious,
			wantSignal:  SignalSuspiciousBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := analyzer.Analyze(context.Background(), tt.msg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Verdict != tt.wantVerdict {
				t.Errorf("verdict = %v (score=%.2f), want %v", result.Verdict, result.TrustScore, tt.wantVerdict)
			}
			if result.TrustScore < 0 || result.TrustScore > 1 {
				t.Errorf("score %.2f out of [0,1]", result.TrustScore)
			}
			if result.LLMUsed {
				t.Errorf("LLMUsed = true, want false without LLM scorer")
			}
			if result.MessageID != tt.msg.ID {
				t.Errorf("messageId = %q, want %q", result.MessageID, tt.msg.ID)
			}

			if tt.wantSignal != "" {
				found := false
				for _, s := range result.Signals {
					if s == tt.wantSignal {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("signals = %v, want to contain %q", result.Signals, tt.wantSignal)
				}
			}
		})
	}
}

// TestAnalyzeNilMessage tests the nil input guard.
func TestAnalyzeNilMessage(t *testing.T) {
	analyzer := NewAnalyzer()
	if _, err := analyzer.Analyze(context.Background(), nil); err == nil {
		t.Errorf("expected error for nil message")
	}
}

// TestNoReplyPatterns tests automated-sender detection.
func TestNoReplyPatterns(t *testing.T) {
	senders := []string{
		"noreply@github.com",
		"no-reply@notifications.google.com",
		"donotreply@bank.example",
		"do-not-reply@service.example",
		"mailer-daemon@mail.google.com",
		"notifications@linkedin.com",
		"alert@security.company.example",
	}

	for _, email := range senders {
		t.Run(email, func(t *testing.T) {
			if !isNoReplySender(email) {
				t.Errorf("isNoReplySender(%q) = false, want true", email)
			}
		})
	}

	if isNoReplySender("john.doe@gmail.com") {
		t.Errorf("isNoReplySender should not match a personal address")
	}
}

// TestVerdictForScore tests the score-to-verdict thresholds.
func TestVerdictForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.TrustVerdict
	}{
		{0.95, domain.VerdictTrusted},
		{0.70, domain.VerdictTrusted},
		{0.69, domain.VerdictNeutral},
		{0.50, domain.VerdictNeutral},
		{0.36, domain.VerdictNeutral},
		{0.35, domain.VerdictSuspicious},
		{0.00, domain.VerdictSuspicious},
	}

	for _, tt := range tests {
		if got := domain.VerdictForScore(tt.score); got != tt.want {
			t.Errorf("VerdictForScore(%.2f) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

// TestSenderDomain tests domain extraction edge cases.
func TestSenderDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"a@B.Com", "b.com"},
		{"weird@@github.com", "github.com"},
		{"no-at-sign", ""},
		{"trailing@", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := senderDomain(tt.email); got != tt.want {
			t.Errorf("senderDomain(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
