// Package analysis implements the trust scoring pipeline for mail messages.
package analysis

import (
	"context"
	"time"

	"trustmail_server/core/domain"
	"trustmail_server/pkg/logger"
)

// =============================================================================
// Analyzer
// =============================================================================

// Analyzer scores a message in two stages: cheap header/sender heuristics
// first, then an LLM fallback when the heuristic signal is weak. The LLM is
// optional; without it the heuristic score stands.
type Analyzer struct {
	llm *LLMScorer

	// Heuristic results at or beyond this distance from the neutral 0.5
	// are accepted without consulting the LLM.
	confidenceMargin float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLLMScorer enables the LLM fallback stage.
func WithLLMScorer(llm *LLMScorer) Option {
	return func(a *Analyzer) { a.llm = llm }
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{confidenceMargin: 0.25}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores one message. It never mutates the input and holds no state
// across calls, so a single Analyzer is safe for concurrent use.
func (a *Analyzer) Analyze(ctx context.Context, msg *domain.MessageDetail) (*domain.AnalyzedEmail, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}

	h := scoreHeuristics(msg)

	result := &domain.AnalyzedEmail{
		MessageID:  msg.ID,
		Subject:    msg.Subject,
		FromName:   msg.FromName,
		FromEmail:  msg.FromEmail,
		Snippet:    msg.Snippet,
		TrustScore: h.score,
		Signals:    h.signals,
		AnalyzedAt: time.Now().UTC(),
	}

	confident := h.score >= 0.5+a.confidenceMargin || h.score <= 0.5-a.confidenceMargin
	if !confident && a.llm != nil {
		llmScore, err := a.llm.ScoreTrust(ctx, msg)
		if err != nil {
			// LLM failure degrades to the heuristic score; it never fails
			// the message.
			logger.WithError(err).WithField("message_id", msg.ID).
				Warn("[Analyzer] LLM scoring failed, keeping heuristic score")
		} else {
			result.TrustScore = llmScore.Score
			result.Signals = append(result.Signals, llmScore.Signals...)
			result.LLMUsed = true
		}
	}

	result.TrustScore = clampScore(result.TrustScore)
	result.Verdict = domain.VerdictForScore(result.TrustScore)
	return result, nil
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
