package patterns

import (
	"context"
	"errors"
	"testing"
)

type stubLLM struct {
	response string
	err      error
}

func (s stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func TestExtractReturnsParsedPattern(t *testing.T) {
	svc := NewService(stubLLM{response: `{"pattern":"Change color to black","category":"Style"}`}, nil)

	got, err := svc.Extract(context.Background(), "make it black")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Pattern != "Change color to black" {
		t.Fatalf("pattern = %q", got.Pattern)
	}
	if got.Category != "Style" {
		t.Fatalf("category = %q", got.Category)
	}
}

func TestExtractFallsBackOnModelError(t *testing.T) {
	svc := NewService(stubLLM{err: errors.New("upstream down")}, nil)

	got, err := svc.Extract(context.Background(), "make it pop")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Pattern != fallbackPattern {
		t.Fatalf("expected fallback pattern, got %q", got.Pattern)
	}
}

func TestExtractFallsBackOnMalformedResponse(t *testing.T) {
	svc := NewService(stubLLM{response: "not json"}, nil)

	got, err := svc.Extract(context.Background(), "make it pop")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Pattern != fallbackPattern {
		t.Fatalf("expected fallback pattern, got %q", got.Pattern)
	}
}

func TestExtractDropsUnknownCategory(t *testing.T) {
	svc := NewService(stubLLM{response: `{"pattern":"Do the thing","category":"Vibes"}`}, nil)

	got, err := svc.Extract(context.Background(), "do the thing please")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Category != "" {
		t.Fatalf("expected category dropped, got %q", got.Category)
	}
}

func TestLearnFromRatingRecordsNewPattern(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(stubLLM{response: `{"pattern":"Change color to black","category":"Style"}`}, store)

	if err := svc.LearnFromRating(context.Background(), "make it black", `[{"before":"a","after":"b"}]`); err != nil {
		t.Fatalf("LearnFromRating: %v", err)
	}

	stored, err := store.FindByPattern(context.Background(), "Change color to black")
	if err != nil {
		t.Fatalf("FindByPattern: %v", err)
	}
	if stored.UsageCount != 1 {
		t.Fatalf("usageCount = %d", stored.UsageCount)
	}
	if stored.SuccessRate != 1 {
		t.Fatalf("successRate = %v", stored.SuccessRate)
	}
	if stored.Category != "Style" {
		t.Fatalf("category = %q", stored.Category)
	}
}

func TestLearnFromRatingAccumulatesUsage(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(stubLLM{response: `{"pattern":"Change color to black","category":"Style"}`}, store)

	for i := 0; i < 3; i++ {
		if err := svc.LearnFromRating(context.Background(), "make it black", `["latest"]`); err != nil {
			t.Fatalf("LearnFromRating: %v", err)
		}
	}

	stored, err := store.FindByPattern(context.Background(), "Change color to black")
	if err != nil {
		t.Fatalf("FindByPattern: %v", err)
	}
	if stored.UsageCount != 3 {
		t.Fatalf("usageCount = %d", stored.UsageCount)
	}
	if stored.CommonSolutions != `["latest"]` {
		t.Fatalf("commonSolutions = %q", stored.CommonSolutions)
	}
}

func TestLearnFromRatingFilesBadFeedbackUnderFallback(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(stubLLM{}, store)

	if err := svc.LearnFromRating(context.Background(), "ab", "[]"); err != nil {
		t.Fatalf("LearnFromRating: %v", err)
	}
	if _, err := store.FindByPattern(context.Background(), fallbackPattern); err != nil {
		t.Fatalf("expected fallback pattern recorded, got %v", err)
	}
}

func TestLearnFromRatingWithoutStoreIsNoop(t *testing.T) {
	svc := NewService(stubLLM{}, nil)

	if err := svc.LearnFromRating(context.Background(), "make it black", "[]"); err != nil {
		t.Fatalf("LearnFromRating: %v", err)
	}
}

func TestExtractRejectsInvalidInput(t *testing.T) {
	svc := NewService(stubLLM{}, nil)

	if _, err := svc.Extract(context.Background(), "ab"); err == nil {
		t.Fatalf("expected error for short feedback")
	}
	long := make([]byte, maxFeedbackLen+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := svc.Extract(context.Background(), string(long)); err == nil {
		t.Fatalf("expected error for long feedback")
	}
}
