// Package domain holds the core domain model.
package domain

import "time"

// TrustVerdict is the analyzer's overall judgement of a message.
type TrustVerdict string

const (
	VerdictTrusted    TrustVerdict = "trusted"
	VerdictNeutral    TrustVerdict = "neutral"
	VerdictSuspicious TrustVerdict = "suspicious"
)

// VerdictForScore maps a trust score to a verdict.
// Thresholds: >= 0.70 trusted, <= 0.35 suspicious, otherwise neutral.
func VerdictForScore(score float64) TrustVerdict {
	switch {
	case score >= 0.70:
		return VerdictTrusted
	case score <= 0.35:
		return VerdictSuspicious
	default:
		return VerdictNeutral
	}
}

// MessageRef is a lightweight identifier returned by a provider listing call.
// Full content requires a follow-up GetMessage call.
type MessageRef struct {
	ID       string
	ThreadID string
}

// MessageDetail is the full provider payload for one message. It exists only
// for the duration of one request and is never persisted.
type MessageDetail struct {
	ID         string
	ThreadID   string
	Subject    string
	FromName   string
	FromEmail  string
	To         []string
	Snippet    string
	BodyText   string
	BodyHTML   string
	Headers    map[string]string
	ReceivedAt time.Time
}

// AnalyzedEmail is the analyzer's output for one message.
type AnalyzedEmail struct {
	MessageID  string       `json:"messageId"`
	Subject    string       `json:"subject"`
	FromName   string       `json:"fromName,omitempty"`
	FromEmail  string       `json:"fromEmail"`
	Snippet    string       `json:"snippet,omitempty"`
	TrustScore float64      `json:"trustScore"`
	Verdict    TrustVerdict `json:"verdict"`
	Signals    []string     `json:"signals,omitempty"`
	LLMUsed    bool         `json:"llmUsed"`
	AnalyzedAt time.Time    `json:"analyzedAt"`
}
