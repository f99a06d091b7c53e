package analyses

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func seedMemoryRepo(t *testing.T, repo *MemoryRepo, id, userID, status string) Analysis {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	analysis := Analysis{
		ID:              id,
		UserID:          userID,
		FileName:        "Card.tsx",
		FileSize:        int64(len(testSource)),
		OriginalContent: testSource,
		Feedback:        "make the text black",
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return analysis
}

func TestMemoryRepoTransitionSequence(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedMemoryRepo(t, repo, "a1", "user-1", StatusPending)

	if err := repo.MarkProcessing(ctx, "a1"); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	outputs := CompletedOutputs{
		Interpretation: "change heading color",
		Suggestions:    `[{"type":"css","before":"a","after":"b","explanation":"c"}]`,
		Confidence:     85,
		Reasoning:      "client asked for black text",
	}
	if err := repo.Complete(ctx, "a1", outputs); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	stored, err := repo.GetByID(ctx, "user-1", "a1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != StatusComplete {
		t.Fatalf("status = %q", stored.Status)
	}
	if stored.Confidence == nil || *stored.Confidence != 85 {
		t.Fatalf("confidence = %v", stored.Confidence)
	}
	if stored.Interpretation != outputs.Interpretation || stored.Reasoning != outputs.Reasoning {
		t.Fatalf("outputs not persisted: %+v", stored)
	}
}

func TestMemoryRepoRejectsSkippedTransitions(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedMemoryRepo(t, repo, "a1", "user-1", StatusPending)

	err := repo.Complete(ctx, "a1", CompletedOutputs{})
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if stateErr.Current != StatusPending || stateErr.Next != StatusComplete {
		t.Fatalf("state error = %+v", stateErr)
	}

	if err := repo.Fail(ctx, "a1"); !errors.As(err, &stateErr) {
		t.Fatalf("PENDING -> FAILED must be rejected, got %v", err)
	}
}

func TestMemoryRepoTerminalStatesAreFinal(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedMemoryRepo(t, repo, "a1", "user-1", StatusPending)

	if err := repo.MarkProcessing(ctx, "a1"); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := repo.Fail(ctx, "a1"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	var stateErr *InvalidStateError
	if err := repo.MarkProcessing(ctx, "a1"); !errors.As(err, &stateErr) {
		t.Fatalf("FAILED job must not re-enter PROCESSING, got %v", err)
	}
	if err := repo.Complete(ctx, "a1", CompletedOutputs{}); !errors.As(err, &stateErr) {
		t.Fatalf("FAILED job must not complete, got %v", err)
	}
}

func TestMemoryRepoGetByIDScopesToOwner(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedMemoryRepo(t, repo, "a1", "user-1", StatusPending)

	if _, err := repo.GetByID(ctx, "user-2", "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "", "a1"); err != nil {
		t.Fatalf("empty owner is a worker lookup, got %v", err)
	}
}

func TestMemoryRepoListOrdersNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a1", "a2", "a3"} {
		analysis := seedMemoryRepo(t, repo, id, "user-1", StatusPending)
		analysis.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, analysis); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, err := repo.ListByUser(ctx, "user-1", 2, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(items) != 2 || items[0].ID != "a3" || items[1].ID != "a2" {
		t.Fatalf("unexpected order: %+v", items)
	}

	rest, err := repo.ListByUser(ctx, "user-1", 2, 2)
	if err != nil {
		t.Fatalf("ListByUser offset: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "a1" {
		t.Fatalf("unexpected tail: %+v", rest)
	}
}

func TestMemoryRepoListDefaultsLimitWhenUnset(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		seedMemoryRepo(t, repo, "a"+strconv.Itoa(i), "user-1", StatusPending)
	}

	items, err := repo.ListByUser(ctx, "user-1", 0, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(items) != 20 {
		t.Fatalf("len = %d, want default page of 20", len(items))
	}
}

func TestMemoryRepoSetRating(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedMemoryRepo(t, repo, "a1", "user-1", StatusComplete)
	seedMemoryRepo(t, repo, "a2", "user-1", StatusPending)

	if err := repo.SetRating(ctx, "user-1", "a1", 5); err != nil {
		t.Fatalf("SetRating: %v", err)
	}
	stored, err := repo.GetByID(ctx, "user-1", "a1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.UserRating == nil || *stored.UserRating != 5 {
		t.Fatalf("userRating = %v", stored.UserRating)
	}

	if err := repo.SetRating(ctx, "user-1", "a2", 5); !errors.Is(err, ErrNotRatable) {
		t.Fatalf("pending job must be ErrNotRatable, got %v", err)
	}
	if err := repo.SetRating(ctx, "user-2", "a1", 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign rating must be ErrNotFound, got %v", err)
	}
	if err := repo.SetRating(ctx, "user-1", "missing", 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing job must be ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoSoftDeleteHidesRow(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seedMemoryRepo(t, repo, "a1", "user-1", StatusPending)

	if err := repo.SoftDelete(ctx, "user-2", "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete must be ErrNotFound, got %v", err)
	}
	if err := repo.SoftDelete(ctx, "user-1", "a1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "user-1", "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted row still visible, err = %v", err)
	}
	items, err := repo.ListByUser(ctx, "user-1", 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("deleted row in list: %+v", items)
	}
}

func TestMemoryRepoFailStaleReapsOldProcessingOnly(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }

	stale := seedMemoryRepo(t, repo, "stale", "user-1", StatusProcessing)
	stale.UpdatedAt = base.Add(-30 * time.Minute)
	_ = repo.Create(ctx, stale)

	fresh := seedMemoryRepo(t, repo, "fresh", "user-1", StatusProcessing)
	fresh.UpdatedAt = base.Add(-time.Minute)
	_ = repo.Create(ctx, fresh)

	pending := seedMemoryRepo(t, repo, "pending", "user-1", StatusPending)
	pending.UpdatedAt = base.Add(-30 * time.Minute)
	_ = repo.Create(ctx, pending)

	reaped, err := repo.FailStale(ctx, base.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("FailStale: %v", err)
	}
	if reaped != 1 {
		t.Fatalf("reaped = %d, want 1", reaped)
	}

	got, _ := repo.GetByID(ctx, "", "stale")
	if got.Status != StatusFailed {
		t.Fatalf("stale job status = %q", got.Status)
	}
	got, _ = repo.GetByID(ctx, "", "fresh")
	if got.Status != StatusProcessing {
		t.Fatalf("fresh job status = %q", got.Status)
	}
	got, _ = repo.GetByID(ctx, "", "pending")
	if got.Status != StatusPending {
		t.Fatalf("pending job status = %q", got.Status)
	}
}
