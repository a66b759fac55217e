// Package inbox implements the fetch-and-score use case.
package inbox

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"trustmail_server/core/domain"
	"trustmail_server/core/port/in"
	"trustmail_server/core/port/out"
	"trustmail_server/pkg/logger"
)

// Sentinel errors for the pre-listing authentication checks.
var (
	ErrNoSession    = errors.New("inbox: no session")
	ErrMissingToken = errors.New("inbox: session has no access token")
)

const (
	// DefaultMaxResults applies when the caller omits or garbles the count.
	DefaultMaxResults = 10
	// MaxResultsCap is the inclusive upper bound on one listing.
	MaxResultsCap = 20

	// maxFetchConcurrency bounds the per-message fan-out so a burst of
	// detail fetches does not trip provider rate limits.
	maxFetchConcurrency = 5
)

// NormalizeMaxResults clamps a requested count to [1, MaxResultsCap],
// substituting the default for zero or negative input.
func NormalizeMaxResults(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	if n > MaxResultsCap {
		return MaxResultsCap
	}
	return n
}

// AnalyzerPort scores one fetched message.
type AnalyzerPort interface {
	Analyze(ctx context.Context, msg *domain.MessageDetail) (*domain.AnalyzedEmail, error)
}

// Service orchestrates list -> concurrent (fetch + analyze) -> aggregate.
// It is stateless and safe for concurrent use.
type Service struct {
	provider out.MailProviderPort
	analyzer AnalyzerPort
}

// NewService creates the inbox service.
func NewService(provider out.MailProviderPort, analyzer AnalyzerPort) *Service {
	return &Service{
		provider: provider,
		analyzer: analyzer,
	}
}

// FetchAndScore implements in.InboxService.
func (s *Service) FetchAndScore(ctx context.Context, session *domain.Session, maxResults int) (*in.InboxResult, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	if !session.HasAccessToken() {
		return nil, ErrMissingToken
	}

	maxResults = NormalizeMaxResults(maxResults)
	token := &oauth2.Token{AccessToken: session.AccessToken}

	start := time.Now()
	refs, err := s.provider.ListMessages(ctx, token, maxResults)
	if err != nil {
		// Listing failures propagate; the handler classifies them.
		return nil, err
	}

	if len(refs) == 0 {
		return &in.InboxResult{Emails: []domain.AnalyzedEmail{}, TotalFetched: 0}, nil
	}

	// Parallel fetch + analyze with bounded concurrency. Result slots are
	// indexed so the aggregate keeps listing order regardless of completion
	// order; failed items leave their slot nil and are dropped below.
	type slot struct {
		index int
		email *domain.AnalyzedEmail
		err   error
	}

	results := make(chan slot, len(refs))
	semaphore := make(chan struct{}, maxFetchConcurrency)

	for i, ref := range refs {
		go func(idx int, msgID string) {
			semaphore <- struct{}{}        // acquire
			defer func() { <-semaphore }() // release

			email, err := s.fetchAndAnalyze(ctx, token, msgID)
			results <- slot{index: idx, email: email, err: err}
		}(i, ref.ID)
	}

	ordered := make([]*domain.AnalyzedEmail, len(refs))
	for range refs {
		r := <-results
		if r.err != nil {
			// Per-message failure never fails the request; the item is
			// dropped and surfaced in logs only.
			logger.WithError(r.err).WithFields(map[string]any{
				"message_id": refs[r.index].ID,
				"user_id":    session.UserID.String(),
			}).Warn("[InboxService] dropping message after fetch/analyze failure")
			continue
		}
		ordered[r.index] = r.email
	}

	emails := make([]domain.AnalyzedEmail, 0, len(refs))
	for _, e := range ordered {
		if e != nil {
			emails = append(emails, *e)
		}
	}

	logger.WithDuration(time.Since(start)).WithFields(map[string]any{
		"listed":  len(refs),
		"scored":  len(emails),
		"dropped": len(refs) - len(emails),
	}).Info("[InboxService] fetch-and-score completed")

	return &in.InboxResult{
		Emails:       emails,
		TotalFetched: len(emails),
	}, nil
}

func (s *Service) fetchAndAnalyze(ctx context.Context, token *oauth2.Token, msgID string) (*domain.AnalyzedEmail, error) {
	detail, err := s.provider.GetMessage(ctx, token, msgID)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(ctx, detail)
}

// Interface compliance
var _ in.InboxService = (*Service)(nil)
