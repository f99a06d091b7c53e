package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"feedback-translator/internal/parse"
	"feedback-translator/internal/queue"
	"feedback-translator/internal/shared/metrics"
	"feedback-translator/internal/shared/telemetry"
)

// Request-intake bounds. The translator applies its own backstop before any
// model call; these are the stricter limits enforced when the job is created.
const (
	intakeMinFeedbackLen = 10
	intakeMaxFeedbackLen = 2000
)

// PatternLearner receives the feedback and generated changes of a well-rated
// translation so recurring requests accumulate known-good solutions.
type PatternLearner interface {
	LearnFromRating(ctx context.Context, feedback, solutions string) error
}

// Service owns the analysis job lifecycle: creation in PENDING, dispatch to
// the queue, and the PROCESSING -> COMPLETE/FAILED transitions driven by the
// worker.
type Service struct {
	Repo       Repo
	Translator *Translator
	JobQueue   queue.Client
	Patterns   PatternLearner
}

// CreateInput is the payload for a new analysis job.
type CreateInput struct {
	FileName   string
	SourceText string
	Feedback   string
}

// Create persists a new job in PENDING and emits a processing message. The
// caller gets the PENDING job back immediately; translation happens on the
// worker side.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Analysis, error) {
	if strings.TrimSpace(userID) == "" {
		return Analysis{}, &InvalidInputError{Field: "userId", Reason: "user id is required"}
	}
	if err := validateCreateInput(in); err != nil {
		return Analysis{}, err
	}
	if s.JobQueue == nil {
		return Analysis{}, ErrJobQueueNotConfigured
	}

	now := time.Now().UTC()
	analysis := Analysis{
		ID:              uuid.NewString(),
		UserID:          userID,
		FileName:        in.FileName,
		FileSize:        int64(len(in.SourceText)),
		OriginalContent: in.SourceText,
		Feedback:        in.Feedback,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}

	msg := queue.Message{
		AnalysisID: analysis.ID,
		UserID:     userID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: now,
		Version:    queue.MessageVersion,
	}
	if err := s.JobQueue.Send(ctx, msg); err != nil {
		// The row stays PENDING; a retried POST creates a fresh job.
		telemetry.Error("analysis.dispatch_failed", map[string]any{
			"analysis_id": analysis.ID,
			"error":       err.Error(),
		})
		return Analysis{}, fmt.Errorf("dispatch analysis: %w", err)
	}

	metrics.IncTranslationStarted()
	telemetry.Info("analysis.status", map[string]any{
		"analysis_id": analysis.ID,
		"user_id":     userID,
		"status":      StatusPending,
	})
	return analysis, nil
}

func validateCreateInput(in CreateInput) error {
	if strings.TrimSpace(in.FileName) == "" {
		return &InvalidInputError{Field: "fileName", Reason: "file name is required"}
	}
	if len(in.SourceText) == 0 {
		return &InvalidInputError{Field: "sourceText", Reason: "component code is required"}
	}
	if len(in.SourceText) > maxSourceLen {
		return &InvalidInputError{Field: "sourceText", Reason: fmt.Sprintf("component code longer than %d characters", maxSourceLen)}
	}
	if len(in.Feedback) < intakeMinFeedbackLen {
		return &InvalidInputError{Field: "feedback", Reason: fmt.Sprintf("feedback shorter than %d characters", intakeMinFeedbackLen)}
	}
	if len(in.Feedback) > intakeMaxFeedbackLen {
		return &InvalidInputError{Field: "feedback", Reason: fmt.Sprintf("feedback longer than %d characters", intakeMaxFeedbackLen)}
	}
	return nil
}

// ProcessAnalysis runs the translation pipeline for one queued job. Any
// pipeline failure produces exactly one FAILED transition; no partial outputs
// are persisted.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) error {
	analysis, err := s.Repo.GetByID(ctx, "", analysisID)
	if err != nil {
		return err
	}

	if err := s.Repo.MarkProcessing(ctx, analysisID); err != nil {
		var stateErr *InvalidStateError
		if errors.As(err, &stateErr) && analysis.IsTerminal() {
			// Duplicate delivery of an already-finished job.
			telemetry.Info("analysis.duplicate_delivery", map[string]any{
				"analysis_id": analysisID,
				"status":      analysis.Status,
			})
			return nil
		}
		return err
	}
	s.logStatus(ctx, analysis, StatusProcessing)

	componentName := parse.ComponentName(analysis.OriginalContent, analysis.FileName)
	result, err := s.Translator.Translate(ctx, componentName, analysis.OriginalContent, analysis.Feedback)
	if err != nil {
		if failErr := s.Repo.Fail(ctx, analysisID); failErr != nil {
			telemetry.Error("analysis.fail_transition_error", map[string]any{
				"analysis_id": analysisID,
				"error":       failErr.Error(),
			})
		}
		metrics.IncTranslationFailed()
		s.logStatus(ctx, analysis, StatusFailed)
		return err
	}

	suggestions, err := json.Marshal(result.ActionableChanges)
	if err != nil {
		if failErr := s.Repo.Fail(ctx, analysisID); failErr != nil {
			telemetry.Error("analysis.fail_transition_error", map[string]any{
				"analysis_id": analysisID,
				"error":       failErr.Error(),
			})
		}
		metrics.IncTranslationFailed()
		return fmt.Errorf("serialize suggestions: %w", err)
	}

	outputs := CompletedOutputs{
		Interpretation: result.Interpretation,
		Suggestions:    string(suggestions),
		Confidence:     int(math.Round(result.Confidence * 100)),
		Reasoning:      result.Reasoning,
	}
	if err := s.Repo.Complete(ctx, analysisID, outputs); err != nil {
		return err
	}

	metrics.IncTranslationCompleted()
	s.logStatus(ctx, analysis, StatusComplete)
	return nil
}

func (s *Service) logStatus(ctx context.Context, analysis Analysis, status string) {
	telemetry.Info("analysis.status", map[string]any{
		"analysis_id": analysis.ID,
		"user_id":     analysis.UserID,
		"status":      status,
		"request_id":  requestIDFromContext(ctx),
	})
}

// StatusView is the poll-friendly projection of a job's lifecycle state.
type StatusView struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	IsPending    bool      `json:"isPending"`
	IsProcessing bool      `json:"isProcessing"`
	IsComplete   bool      `json:"isComplete"`
	IsFailed     bool      `json:"isFailed"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// GetStatus returns the lifecycle state of a job owned by userID.
func (s *Service) GetStatus(ctx context.Context, userID, analysisID string) (StatusView, error) {
	analysis, err := s.Repo.GetByID(ctx, userID, analysisID)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{
		ID:           analysis.ID,
		Status:       analysis.Status,
		IsPending:    analysis.Status == StatusPending,
		IsProcessing: analysis.Status == StatusProcessing,
		IsComplete:   analysis.Status == StatusComplete,
		IsFailed:     analysis.Status == StatusFailed,
		CreatedAt:    analysis.CreatedAt,
		UpdatedAt:    analysis.UpdatedAt,
	}, nil
}

// Get returns a full job owned by userID.
func (s *Service) Get(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, &InvalidInputError{Field: "analysisId", Reason: "analysis id is required"}
	}
	return s.Repo.GetByID(ctx, userID, analysisID)
}

const defaultListLimit = 20

// List returns a user's non-deleted jobs newest-first. A non-positive limit
// falls back to the default page size regardless of the backing repo.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if userID == "" {
		return nil, &InvalidInputError{Field: "userId", Reason: "user id is required"}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Delete soft-deletes a job owned by userID.
func (s *Service) Delete(ctx context.Context, userID, analysisID string) error {
	if analysisID == "" {
		return &InvalidInputError{Field: "analysisId", Reason: "analysis id is required"}
	}
	return s.Repo.SoftDelete(ctx, userID, analysisID)
}

// Rating bounds, matching the 1-5 scale users pick from.
const (
	minRating = 1
	maxRating = 5
)

// Rate stores a user's 1-5 rating on a COMPLETE job. A rating of 4 or better
// feeds the pattern learner; learner failures are logged and never fail the
// rating itself.
func (s *Service) Rate(ctx context.Context, userID, analysisID string, rating int) error {
	if analysisID == "" {
		return &InvalidInputError{Field: "analysisId", Reason: "analysis id is required"}
	}
	if rating < minRating || rating > maxRating {
		return &InvalidInputError{Field: "rating", Reason: fmt.Sprintf("rating must be between %d and %d", minRating, maxRating)}
	}

	if err := s.Repo.SetRating(ctx, userID, analysisID, rating); err != nil {
		return err
	}
	telemetry.Info("analysis.rated", map[string]any{
		"analysis_id": analysisID,
		"user_id":     userID,
		"rating":      rating,
	})

	if rating < 4 || s.Patterns == nil {
		return nil
	}
	analysis, err := s.Repo.GetByID(ctx, userID, analysisID)
	if err != nil {
		telemetry.Error("analysis.pattern_learn_failed", map[string]any{
			"analysis_id": analysisID,
			"error":       err.Error(),
		})
		return nil
	}
	if err := s.Patterns.LearnFromRating(ctx, analysis.Feedback, analysis.Suggestions); err != nil {
		telemetry.Error("analysis.pattern_learn_failed", map[string]any{
			"analysis_id": analysisID,
			"error":       err.Error(),
		})
	}
	return nil
}

// FailStale reaps jobs stuck in PROCESSING longer than the timeout, covering
// worker crashes that never reach a terminal transition.
func (s *Service) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = 15 * time.Minute
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	reaped, err := s.Repo.FailStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if reaped > 0 {
		metrics.AddStaleJobsReaped(reaped)
		telemetry.Info("analysis.stale_reaped", map[string]any{
			"count":  reaped,
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}
	return reaped, nil
}

// DecodeSuggestions parses the persisted suggestions column back into typed
// code changes.
func DecodeSuggestions(analysis Analysis) ([]CodeChange, error) {
	if analysis.Suggestions == "" {
		return nil, nil
	}
	var changes []CodeChange
	if err := json.Unmarshal([]byte(analysis.Suggestions), &changes); err != nil {
		return nil, err
	}
	return changes, nil
}
