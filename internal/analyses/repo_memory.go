package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo implements Repo in process memory, used when no database is
// configured.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]Analysis
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items: make(map[string]Analysis),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[analysis.ID] = analysis
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.items[analysisID]
	if !ok || analysis.IsDeleted {
		return Analysis{}, ErrNotFound
	}
	if userID != "" && analysis.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]Analysis, 0)
	for _, analysis := range r.items {
		if analysis.UserID == userID && !analysis.IsDeleted {
			matched = append(matched, analysis)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []Analysis{}, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, analysisID string) error {
	return r.transition(ctx, analysisID, StatusPending, StatusProcessing, nil)
}

func (r *MemoryRepo) Complete(ctx context.Context, analysisID string, outputs CompletedOutputs) error {
	return r.transition(ctx, analysisID, StatusProcessing, StatusComplete, func(a *Analysis) {
		a.Interpretation = outputs.Interpretation
		a.Suggestions = outputs.Suggestions
		confidence := outputs.Confidence
		a.Confidence = &confidence
		a.Reasoning = outputs.Reasoning
	})
}

func (r *MemoryRepo) Fail(ctx context.Context, analysisID string) error {
	return r.transition(ctx, analysisID, StatusProcessing, StatusFailed, nil)
}

func (r *MemoryRepo) transition(ctx context.Context, analysisID, requiredStatus, nextStatus string, mutate func(*Analysis)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.items[analysisID]
	if !ok || analysis.IsDeleted {
		return ErrNotFound
	}
	if analysis.Status != requiredStatus {
		return &InvalidStateError{Current: analysis.Status, Next: nextStatus}
	}
	analysis.Status = nextStatus
	if mutate != nil {
		mutate(&analysis)
	}
	analysis.UpdatedAt = r.now()
	r.items[analysisID] = analysis
	return nil
}

func (r *MemoryRepo) SetRating(ctx context.Context, userID, analysisID string, rating int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.items[analysisID]
	if !ok || analysis.IsDeleted || analysis.UserID != userID {
		return ErrNotFound
	}
	if analysis.Status != StatusComplete {
		return ErrNotRatable
	}
	analysis.UserRating = &rating
	analysis.UpdatedAt = r.now()
	r.items[analysisID] = analysis
	return nil
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, userID, analysisID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.items[analysisID]
	if !ok || analysis.IsDeleted || analysis.UserID != userID {
		return ErrNotFound
	}
	now := r.now()
	analysis.IsDeleted = true
	analysis.DeletedAt = &now
	analysis.UpdatedAt = now
	r.items[analysisID] = analysis
	return nil
}

func (r *MemoryRepo) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var reaped int64
	for id, analysis := range r.items {
		if analysis.IsDeleted || analysis.Status != StatusProcessing {
			continue
		}
		if analysis.UpdatedAt.After(cutoff) {
			continue
		}
		analysis.Status = StatusFailed
		analysis.UpdatedAt = r.now()
		r.items[id] = analysis
		reaped++
	}
	return reaped, nil
}
