package analyses

import (
	"context"
	"time"
)

// CompletedOutputs carries the four output fields persisted together on a
// successful translation.
type CompletedOutputs struct {
	Interpretation string
	Suggestions    string
	Confidence     int
	Reasoning      string
}

// Repo defines persistence operations for analyses. Status transitions are
// conditional: implementations must refuse transitions from the wrong state
// with InvalidStateError rather than overwrite.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, userID, analysisID string) (Analysis, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
	// MarkProcessing transitions PENDING -> PROCESSING.
	MarkProcessing(ctx context.Context, analysisID string) error
	// Complete transitions PROCESSING -> COMPLETE and writes all four outputs
	// in a single statement.
	Complete(ctx context.Context, analysisID string, outputs CompletedOutputs) error
	// Fail transitions PROCESSING -> FAILED.
	Fail(ctx context.Context, analysisID string) error
	// SetRating stores a user rating on a COMPLETE job owned by userID.
	// Ratings on non-terminal or FAILED jobs are refused with ErrNotRatable.
	SetRating(ctx context.Context, userID, analysisID string, rating int) error
	SoftDelete(ctx context.Context, userID, analysisID string) error
	// FailStale marks jobs stuck in PROCESSING since before cutoff as FAILED
	// and returns how many were reaped.
	FailStale(ctx context.Context, cutoff time.Time) (int64, error)
}
