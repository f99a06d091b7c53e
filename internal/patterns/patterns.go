// Package patterns condenses free-text client feedback into a short reusable
// pattern phrase with a category, for grouping recurring requests.
package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"feedback-translator/internal/llm"
	"feedback-translator/internal/shared/telemetry"
)

const (
	minFeedbackLen = 3
	maxFeedbackLen = 500
	maxPatternLen  = 100

	// fallbackPattern is returned whenever the model call or its output fails;
	// pattern extraction is best-effort and never surfaces model errors.
	fallbackPattern = "General feedback"
)

var validCategories = map[string]struct{}{
	"Style":         {},
	"Layout":        {},
	"Functionality": {},
	"Copywriting":   {},
	"UX":            {},
}

// Extraction is the condensed form of one piece of feedback.
type Extraction struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category,omitempty"`
}

// Service extracts patterns via the LLM and learns from rated translations.
type Service struct {
	LLM   llm.Client
	Store Store
}

func NewService(client llm.Client, store Store) *Service {
	return &Service{LLM: client, Store: store}
}

// Extract returns the pattern for a piece of feedback. Model failures and
// malformed responses degrade to a generic fallback rather than an error;
// only invalid input is rejected.
func (s *Service) Extract(ctx context.Context, feedback string) (Extraction, error) {
	if len(feedback) < minFeedbackLen {
		return Extraction{}, fmt.Errorf("feedback shorter than %d characters", minFeedbackLen)
	}
	if len(feedback) > maxFeedbackLen {
		return Extraction{}, fmt.Errorf("feedback longer than %d characters", maxFeedbackLen)
	}
	if s.LLM == nil {
		return Extraction{Pattern: fallbackPattern}, nil
	}

	prompt := llm.BuildPatternPrompt(feedback)
	raw, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		telemetry.Error("patterns.extract_failed", map[string]any{"error": err.Error()})
		return Extraction{Pattern: fallbackPattern}, nil
	}

	var parsed Extraction
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		telemetry.Error("patterns.extract_failed", map[string]any{"error": err.Error()})
		return Extraction{Pattern: fallbackPattern}, nil
	}

	parsed.Pattern = strings.TrimSpace(parsed.Pattern)
	if parsed.Pattern == "" || len(parsed.Pattern) > maxPatternLen {
		return Extraction{Pattern: fallbackPattern}, nil
	}
	if _, ok := validCategories[parsed.Category]; !ok {
		parsed.Category = ""
	}
	return parsed, nil
}

// LearnFromRating records a well-rated translation against its extracted
// pattern so recurring requests accumulate known-good solutions. Feedback
// that fails extraction is filed under the generic fallback pattern.
func (s *Service) LearnFromRating(ctx context.Context, feedback, solutions string) error {
	if s.Store == nil {
		return nil
	}
	extraction, err := s.Extract(ctx, feedback)
	if err != nil {
		extraction = Extraction{Pattern: fallbackPattern}
	}
	return s.Store.Record(ctx, extraction.Pattern, extraction.Category, solutions)
}
