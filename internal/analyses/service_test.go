package analyses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"feedback-translator/internal/queue"
)

func newTestService(client *scriptedLLM) (*Service, *queue.MemoryClient) {
	mem := queue.NewMemoryClient(8)
	svc := &Service{
		Repo:       NewMemoryRepo(),
		Translator: newTestTranslator(client),
		JobQueue:   mem,
	}
	return svc, mem
}

func TestCreatePersistsPendingAndDispatches(t *testing.T) {
	svc, mem := newTestService(&scriptedLLM{})
	ctx := context.Background()

	analysis, err := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "make the text black",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if analysis.Status != StatusPending {
		t.Fatalf("status = %q, want PENDING", analysis.Status)
	}
	if analysis.FileSize != int64(len(testSource)) {
		t.Fatalf("fileSize = %d", analysis.FileSize)
	}

	msg, err := mem.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.AnalysisID != analysis.ID || msg.UserID != "user-1" {
		t.Fatalf("dispatched message %+v", msg)
	}
	if msg.Version != queue.MessageVersion {
		t.Fatalf("message version = %d", msg.Version)
	}
}

func TestCreateRejectsShortFeedbackBeforePersisting(t *testing.T) {
	svc, mem := newTestService(&scriptedLLM{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "bad",
	})
	var inputErr *InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if inputErr.Field != "feedback" {
		t.Fatalf("field = %q", inputErr.Field)
	}

	items, err := svc.List(ctx, "user-1", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("no job row should exist, got %d", len(items))
	}
	select {
	case msg := <-func() chan queue.Message { ch := make(chan queue.Message); go func() { m, _ := mem.Receive(ctx); ch <- m }(); return ch }():
		t.Fatalf("unexpected dispatch %+v", msg)
	default:
	}
}

func TestCreateRejectsLongFeedbackAtIntake(t *testing.T) {
	svc, _ := newTestService(&scriptedLLM{})

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   strings.Repeat("f", intakeMaxFeedbackLen+1),
	})
	var inputErr *InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestProcessAnalysisCompletesJob(t *testing.T) {
	client := &scriptedLLM{responses: []string{validPlanJSON, validCodeGenJSON}}
	svc, _ := newTestService(client)
	ctx := context.Background()

	analysis, err := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "make the text black",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.ProcessAnalysis(ctx, analysis.ID); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}

	stored, err := svc.Get(ctx, "user-1", analysis.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != StatusComplete {
		t.Fatalf("status = %q, want COMPLETE", stored.Status)
	}
	if stored.Confidence == nil || *stored.Confidence != 90 {
		t.Fatalf("confidence = %v, want 90", stored.Confidence)
	}
	if stored.Interpretation == "" || stored.Reasoning == "" || stored.Suggestions == "" {
		t.Fatalf("outputs must all be populated on COMPLETE: %+v", stored)
	}

	changes, err := DecodeSuggestions(stored)
	if err != nil {
		t.Fatalf("DecodeSuggestions: %v", err)
	}
	if len(changes) != 1 || changes[0].Type != ChangeTypeCSS {
		t.Fatalf("changes = %+v", changes)
	}
}

func TestProcessAnalysisFailureLeavesOutputsEmpty(t *testing.T) {
	upstream := errors.New("connection refused")
	client := &scriptedLLM{errs: []error{upstream, upstream, upstream, upstream}}
	svc, _ := newTestService(client)
	ctx := context.Background()

	analysis, err := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "make the text black",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.ProcessAnalysis(ctx, analysis.ID); err == nil {
		t.Fatalf("expected processing error")
	}

	stored, err := svc.Get(ctx, "user-1", analysis.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != StatusFailed {
		t.Fatalf("status = %q, want FAILED", stored.Status)
	}
	if stored.Interpretation != "" || stored.Suggestions != "" || stored.Confidence != nil || stored.Reasoning != "" {
		t.Fatalf("outputs must stay empty on FAILED: %+v", stored)
	}
}

func TestProcessAnalysisDuplicateDeliveryIsNoOp(t *testing.T) {
	client := &scriptedLLM{responses: []string{validPlanJSON, validCodeGenJSON}}
	svc, _ := newTestService(client)
	ctx := context.Background()

	analysis, _ := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "make the text black",
	})
	if err := svc.ProcessAnalysis(ctx, analysis.ID); err != nil {
		t.Fatalf("first ProcessAnalysis: %v", err)
	}

	if err := svc.ProcessAnalysis(ctx, analysis.ID); err != nil {
		t.Fatalf("duplicate delivery should be a no-op, got %v", err)
	}

	stored, _ := svc.Get(ctx, "user-1", analysis.ID)
	if stored.Status != StatusComplete {
		t.Fatalf("status = %q after duplicate delivery", stored.Status)
	}
	if client.calls != 2 {
		t.Fatalf("duplicate delivery must not call the model again, calls = %d", client.calls)
	}
}

func TestGetStatusDerivesFlags(t *testing.T) {
	svc, _ := newTestService(&scriptedLLM{})
	ctx := context.Background()

	analysis, _ := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "make the text black",
	})

	view, err := svc.GetStatus(ctx, "user-1", analysis.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !view.IsPending || view.IsProcessing || view.IsComplete || view.IsFailed {
		t.Fatalf("flags wrong for PENDING: %+v", view)
	}
}

func TestGetStatusEnforcesOwnership(t *testing.T) {
	svc, _ := newTestService(&scriptedLLM{})
	ctx := context.Background()

	analysis, _ := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "make the text black",
	})

	if _, err := svc.GetStatus(ctx, "user-2", analysis.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

// completeAnalysis drives one job from creation through the full pipeline.
func completeAnalysis(t *testing.T, svc *Service) Analysis {
	t.Helper()
	ctx := context.Background()
	analysis, err := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "make the text black",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.ProcessAnalysis(ctx, analysis.ID); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}
	return analysis
}

type recordingLearner struct {
	feedback  string
	solutions string
	calls     int
	err       error
}

func (l *recordingLearner) LearnFromRating(ctx context.Context, feedback, solutions string) error {
	l.calls++
	l.feedback = feedback
	l.solutions = solutions
	return l.err
}

func TestRatePersistsAndFeedsLearner(t *testing.T) {
	client := &scriptedLLM{responses: []string{validPlanJSON, validCodeGenJSON}}
	svc, _ := newTestService(client)
	learner := &recordingLearner{}
	svc.Patterns = learner
	ctx := context.Background()

	analysis := completeAnalysis(t, svc)
	if err := svc.Rate(ctx, "user-1", analysis.ID, 5); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	stored, err := svc.Get(ctx, "user-1", analysis.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.UserRating == nil || *stored.UserRating != 5 {
		t.Fatalf("userRating = %v", stored.UserRating)
	}
	if learner.calls != 1 {
		t.Fatalf("learner calls = %d, want 1", learner.calls)
	}
	if learner.feedback != "make the text black" || learner.solutions != stored.Suggestions {
		t.Fatalf("learner received %q / %q", learner.feedback, learner.solutions)
	}
}

func TestRateBelowFourSkipsLearner(t *testing.T) {
	client := &scriptedLLM{responses: []string{validPlanJSON, validCodeGenJSON}}
	svc, _ := newTestService(client)
	learner := &recordingLearner{}
	svc.Patterns = learner

	analysis := completeAnalysis(t, svc)
	if err := svc.Rate(context.Background(), "user-1", analysis.ID, 3); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if learner.calls != 0 {
		t.Fatalf("learner must not run for rating 3, calls = %d", learner.calls)
	}
}

func TestRateLearnerFailureDoesNotFailRating(t *testing.T) {
	client := &scriptedLLM{responses: []string{validPlanJSON, validCodeGenJSON}}
	svc, _ := newTestService(client)
	svc.Patterns = &recordingLearner{err: errors.New("store down")}
	ctx := context.Background()

	analysis := completeAnalysis(t, svc)
	if err := svc.Rate(ctx, "user-1", analysis.ID, 5); err != nil {
		t.Fatalf("Rate must succeed despite learner error, got %v", err)
	}
	stored, _ := svc.Get(ctx, "user-1", analysis.ID)
	if stored.UserRating == nil || *stored.UserRating != 5 {
		t.Fatalf("userRating = %v", stored.UserRating)
	}
}

func TestRateRejectsOutOfRangeAndWrongState(t *testing.T) {
	svc, _ := newTestService(&scriptedLLM{})
	ctx := context.Background()

	analysis, _ := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "make the text black",
	})

	var inputErr *InvalidInputError
	if err := svc.Rate(ctx, "user-1", analysis.ID, 0); !errors.As(err, &inputErr) {
		t.Fatalf("rating 0 must be rejected, got %v", err)
	}
	if err := svc.Rate(ctx, "user-1", analysis.ID, 6); !errors.As(err, &inputErr) {
		t.Fatalf("rating 6 must be rejected, got %v", err)
	}
	if err := svc.Rate(ctx, "user-1", analysis.ID, 4); !errors.Is(err, ErrNotRatable) {
		t.Fatalf("PENDING job must be ErrNotRatable, got %v", err)
	}
	if err := svc.Rate(ctx, "user-2", analysis.ID, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign rating must be ErrNotFound, got %v", err)
	}
}

func TestListDefaultsPageSize(t *testing.T) {
	svc := &Service{
		Repo:       NewMemoryRepo(),
		Translator: newTestTranslator(&scriptedLLM{}),
		JobQueue:   queue.NewMemoryClient(32),
	}
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := svc.Create(ctx, "user-1", CreateInput{
			FileName:   "Card.tsx",
			SourceText: testSource,
			Feedback:   "make the text black",
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, err := svc.List(ctx, "user-1", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != defaultListLimit {
		t.Fatalf("len = %d, want %d", len(items), defaultListLimit)
	}
}

func TestDeleteHidesFromHistory(t *testing.T) {
	svc, _ := newTestService(&scriptedLLM{})
	ctx := context.Background()

	analysis, _ := svc.Create(ctx, "user-1", CreateInput{
		FileName:   "Card.tsx",
		SourceText: testSource,
		Feedback:   "make the text black",
	})

	if err := svc.Delete(ctx, "user-1", analysis.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "user-1", analysis.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, "user-1", analysis.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete should be ErrNotFound, got %v", err)
	}
}
