package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"trustmail_server/core/domain"
)

// =============================================================================
// LLM Fallback Scorer (Stage 2)
// =============================================================================

// LLMScorer asks a chat model for a trust score when heuristics are
// inconclusive. Responses are requested as a JSON object.
type LLMScorer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// LLMConfig holds LLM scorer configuration.
type LLMConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewLLMScorer creates an LLM scorer, or nil when no API key is configured.
func NewLLMScorer(cfg LLMConfig) *LLMScorer {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &LLMScorer{
		client:  openai.NewClient(cfg.APIKey),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// LLMScore is the model's judgement of one message.
type LLMScore struct {
	Score   float64
	Reason  string
	Signals []string
}

const trustPrompt = `You rate how trustworthy an email is on a scale from 0.0 (certain phishing or scam) to 1.0 (certainly legitimate).
Respond with a JSON object: {"score": <float>, "reason": "<short reason>"}.

From: %s <%s>
Subject: %s
Body (truncated):
%s`

// ScoreTrust scores one message with the chat model.
func (s *LLMScorer) ScoreTrust(ctx context.Context, msg *domain.MessageDetail) (*LLMScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body := msg.BodyText
	if body == "" {
		body = msg.Snippet
	}
	if len(body) > 2000 {
		body = body[:2000]
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(trustPrompt, msg.FromName, msg.FromEmail, msg.Subject, body),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("llm trust scoring: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm trust scoring: empty response")
	}

	var parsed struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("llm trust scoring: decode response: %w", err)
	}

	return &LLMScore{
		Score:   parsed.Score,
		Reason:  parsed.Reason,
		Signals: []string{SignalLLMScored},
	}, nil
}
