package answer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/radpushman/ct-knowledge/internal/search"
)

// Searcher finds documents relevant to a question.
type Searcher interface {
	Search(ctx context.Context, query string, n int, f search.Filter) []search.Result
}

// Response is the outcome of a question. Results are always present; Answer
// is empty when the model was skipped or failed, and Degraded says why.
type Response struct {
	Question string          `json:"question"`
	Results  []search.Result `json:"results"`
	Answer   string          `json:"answer,omitempty"`
	Degraded string          `json:"degraded,omitempty"`
	Usage    *UsageState     `json:"usage,omitempty"`
}

// Degraded reasons.
const (
	ReasonDisabled = "answer generation is not configured"
	ReasonFailed   = "answer generation failed"
)

// Service answers questions from the knowledge base.
type Service struct {
	searcher  Searcher
	answerer  Answerer
	usage     *Usage
	maxTokens int
	logger    *slog.Logger
}

// NewService creates a service. A nil answerer serves search results only;
// a nil usage counter means no quota.
func NewService(searcher Searcher, answerer Answerer, usage *Usage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		searcher:  searcher,
		answerer:  answerer,
		usage:     usage,
		maxTokens: DefaultMaxTokens,
		logger:    logger,
	}
}

// Usage returns the quota counter, or nil.
func (s *Service) Usage() *Usage {
	return s.usage
}

// Ask searches for question and, quota permitting, asks the model to answer
// from the results. Model failures degrade to search results.
func (s *Service) Ask(ctx context.Context, question string, n int) (*Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	resp := &Response{
		Question: question,
		Results:  s.searcher.Search(ctx, question, n, search.Filter{}),
	}
	if s.answerer == nil {
		resp.Degraded = ReasonDisabled
		return resp, nil
	}

	if s.usage != nil {
		allowed, err := s.usage.Allow()
		if err != nil {
			s.logger.Warn("Failed to read AI usage", "error", err)
			resp.Degraded = ReasonFailed + ": " + err.Error()
			return resp, nil
		}
		if !allowed {
			resp.Degraded = ErrUsageLimit.Error()
			return resp, nil
		}
	}

	refs := truncateContext(BuildContext(resp.Results), s.maxTokens, s.logger)
	text, err := s.answerer.Answer(ctx, Prompt(refs, question))
	if err != nil {
		s.logger.Warn("Answer generation failed", "error", err)
		resp.Degraded = ReasonFailed + ": " + err.Error()
		return resp, nil
	}
	resp.Answer = text

	if s.usage != nil {
		if _, err := s.usage.Increment(); err != nil {
			s.logger.Warn("Failed to record AI usage", "error", err)
		}
		if state, err := s.usage.Current(); err == nil {
			resp.Usage = &state
		}
	}
	return resp, nil
}
