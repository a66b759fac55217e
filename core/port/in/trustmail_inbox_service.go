// Package in defines inbound ports (driving ports) for the application.
package in

import (
	"context"

	"trustmail_server/core/domain"
)

// InboxResult aggregates one fetch-and-score pass over the inbox.
type InboxResult struct {
	Emails []domain.AnalyzedEmail
	// TotalFetched counts messages that survived fetch + analysis,
	// not how many were attempted.
	TotalFetched int
}

// InboxService is the inbound port for the fetch-and-score operation.
type InboxService interface {
	// FetchAndScore lists up to maxResults recent messages for the session,
	// fetches detail and scores each concurrently, and returns survivors in
	// listing order. A nil or credential-less session fails before any
	// provider call; listing failures surface as *out.ProviderError.
	FetchAndScore(ctx context.Context, session *domain.Session, maxResults int) (*InboxResult, error)
}
