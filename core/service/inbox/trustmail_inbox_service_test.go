// Package inbox implements the fetch-and-score use case.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"trustmail_server/core/domain"
	"trustmail_server/core/port/out"
)

// fakeProvider implements out.MailProviderPort in memory.
type fakeProvider struct {
	mu sync.Mutex

	refs    []domain.MessageRef
	listErr error

	// failIDs makes GetMessage fail for these message IDs.
	failIDs map[string]bool

	// delays makes GetMessage sleep per ID, to force out-of-order completion.
	delays map[string]time.Duration

	listCalls int
	getCalls  int
}

func (f *fakeProvider) GetProviderType() string { return "fake" }

func (f *fakeProvider) ListMessages(ctx context.Context, token *oauth2.Token, limit int) ([]domain.MessageRef, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.refs) {
		return f.refs[:limit], nil
	}
	return f.refs, nil
}

func (f *fakeProvider) GetMessage(ctx context.Context, token *oauth2.Token, id string) (*domain.MessageDetail, error) {
	f.mu.Lock()
	f.getCalls++
	f.mu.Unlock()

	if d, ok := f.delays[id]; ok {
		time.Sleep(d)
	}
	if f.failIDs[id] {
		return nil, out.NewProviderError("fake", out.ProviderErrServer, "fetch failed", nil, true)
	}
	return &domain.MessageDetail{
		ID:        id,
		Subject:   "subject " + id,
		FromEmail: "sender@example.com",
	}, nil
}

func (f *fakeProvider) GetProfile(ctx context.Context, token *oauth2.Token) (*out.ProviderProfile, error) {
	return &out.ProviderProfile{Email: "user@example.com"}, nil
}

// fakeAnalyzer scores every message 0.5 and can fail per ID.
type fakeAnalyzer struct {
	failIDs map[string]bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, msg *domain.MessageDetail) (*domain.AnalyzedEmail, error) {
	if f.failIDs[msg.ID] {
		return nil, errors.New("analyzer blew up")
	}
	return &domain.AnalyzedEmail{
		MessageID:  msg.ID,
		Subject:    msg.Subject,
		FromEmail:  msg.FromEmail,
		TrustScore: 0.5,
		Verdict:    domain.VerdictNeutral,
	}, nil
}

func refs(ids ...string) []domain.MessageRef {
	out := make([]domain.MessageRef, len(ids))
	for i, id := range ids {
		out[i] = domain.MessageRef{ID: id}
	}
	return out
}

func testSession() *domain.Session {
	return &domain.Session{
		UserID:      uuid.New(),
		Provider:    domain.ProviderGoogle,
		Email:       "user@example.com",
		AccessToken: "ya29.test-token",
	}
}

// TestNormalizeMaxResults tests the clamp contract.
func TestNormalizeMaxResults(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 10},
		{-5, 10},
		{1, 1},
		{10, 10},
		{20, 20},
		{21, 20},
		{1000, 20},
	}

	for _, tt := range tests {
		if got := NormalizeMaxResults(tt.in); got != tt.want {
			t.Errorf("NormalizeMaxResults(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestFetchAndScoreAuthGuards tests the pre-listing session checks.
func TestFetchAndScoreAuthGuards(t *testing.T) {
	svc := NewService(&fakeProvider{}, &fakeAnalyzer{})

	if _, err := svc.FetchAndScore(context.Background(), nil, 10); !errors.Is(err, ErrNoSession) {
		t.Errorf("nil session: err = %v, want ErrNoSession", err)
	}

	sess := testSession()
	sess.AccessToken = ""
	if _, err := svc.FetchAndScore(context.Background(), sess, 10); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty token: err = %v, want ErrMissingToken", err)
	}
}

// TestFetchAndScoreEmptyInbox tests that an empty listing is a success.
func TestFetchAndScoreEmptyInbox(t *testing.T) {
	svc := NewService(&fakeProvider{}, &fakeAnalyzer{})

	result, err := svc.FetchAndScore(context.Background(), testSession(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalFetched != 0 {
		t.Errorf("totalFetched = %d, want 0", result.TotalFetched)
	}
	if result.Emails == nil || len(result.Emails) != 0 {
		t.Errorf("emails = %v, want empty non-nil slice", result.Emails)
	}
}

// TestFetchAndScoreOrderPreserved tests that results keep listing order even
// when detail fetches complete out of order.
func TestFetchAndScoreOrderPreserved(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	provider := &fakeProvider{
		refs: refs(ids...),
		delays: map[string]time.Duration{
			// First-listed messages finish last.
			"a": 30 * time.Millisecond,
			"b": 20 * time.Millisecond,
			"c": 10 * time.Millisecond,
		},
	}
	svc := NewService(provider, &fakeAnalyzer{})

	result, err := svc.FetchAndScore(context.Background(), testSession(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]string, len(result.Emails))
	for i, e := range result.Emails {
		got[i] = e.MessageID
	}
	if !reflect.DeepEqual(got, ids) {
		t.Errorf("order = %v, want %v", got, ids)
	}
	if result.TotalFetched != len(ids) {
		t.Errorf("totalFetched = %d, want %d", result.TotalFetched, len(ids))
	}
}

// TestFetchAndScorePartialFailure tests that per-message failures are dropped
// without failing the request.
func TestFetchAndScorePartialFailure(t *testing.T) {
	tests := []struct {
		name        string
		fetchFail   map[string]bool
		analyzeFail map[string]bool
		wantIDs     []string
	}{
		{
			name:      "fetch failures dropped",
			fetchFail: map[string]bool{"b": true, "d": true},
			wantIDs:   []string{"a", "c", "e"},
		},
		{
			name:        "analyzer failures dropped",
			analyzeFail: map[string]bool{"a": true},
			wantIDs:     []string{"b", "c", "d", "e"},
		},
		{
			name:        "mixed failures dropped",
			fetchFail:   map[string]bool{"e": true},
			analyzeFail: map[string]bool{"c": true},
			wantIDs:     []string{"a", "b", "d"},
		},
		{
			name:      "all failures yield empty success",
			fetchFail: map[string]bool{"a": true, "b": true, "c": true, "d": true, "e": true},
			wantIDs:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{
				refs:    refs("a", "b", "c", "d", "e"),
				failIDs: tt.fetchFail,
			}
			svc := NewService(provider, &fakeAnalyzer{failIDs: tt.analyzeFail})

			result, err := svc.FetchAndScore(context.Background(), testSession(), 10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := make([]string, 0, len(result.Emails))
			for _, e := range result.Emails {
				got = append(got, e.MessageID)
			}
			if !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
			if result.TotalFetched != len(tt.wantIDs) {
				t.Errorf("totalFetched = %d, want %d (survivors, not attempts)",
					result.TotalFetched, len(tt.wantIDs))
			}
		})
	}
}

// TestFetchAndScoreListingErrorPropagates tests that a listing failure
// surfaces unchanged for the handler to classify.
func TestFetchAndScoreListingErrorPropagates(t *testing.T) {
	listErr := out.NewProviderError("fake", out.ProviderErrAuth, "access denied", nil, false)
	svc := NewService(&fakeProvider{listErr: listErr}, &fakeAnalyzer{})

	_, err := svc.FetchAndScore(context.Background(), testSession(), 10)
	var provErr *out.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want *out.ProviderError", err)
	}
	if provErr.Code != out.ProviderErrAuth {
		t.Errorf("code = %v, want %v", provErr.Code, out.ProviderErrAuth)
	}
}

// TestFetchAndScoreClampsListing tests that the provider is never asked for
// more than the cap.
func TestFetchAndScoreClampsListing(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%02d", i)
	}
	provider := &fakeProvider{refs: refs(ids...)}
	svc := NewService(provider, &fakeAnalyzer{})

	result, err := svc.FetchAndScore(context.Background(), testSession(), 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalFetched != MaxResultsCap {
		t.Errorf("totalFetched = %d, want cap %d", result.TotalFetched, MaxResultsCap)
	}
}

// TestFetchAndScoreIdempotent tests that repeated identical requests against
// a stable provider produce structurally identical results.
func TestFetchAndScoreIdempotent(t *testing.T) {
	provider := &fakeProvider{refs: refs("a", "b", "c")}
	svc := NewService(provider, &fakeAnalyzer{})
	sess := testSession()

	first, err := svc.FetchAndScore(context.Background(), sess, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.FetchAndScore(context.Background(), sess, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.TotalFetched != second.TotalFetched {
		t.Errorf("totalFetched differs across calls: %d vs %d", first.TotalFetched, second.TotalFetched)
	}
	for i := range first.Emails {
		if first.Emails[i].MessageID != second.Emails[i].MessageID {
			t.Errorf("order differs at %d: %q vs %q", i, first.Emails[i].MessageID, second.Emails[i].MessageID)
		}
	}
}
