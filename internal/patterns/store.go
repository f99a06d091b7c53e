package patterns

import (
	"context"
	"errors"
	"time"
)

var ErrPatternNotFound = errors.New("pattern not found")

// StoredPattern is one learned feedback pattern with its usage statistics.
type StoredPattern struct {
	ID              string
	Pattern         string
	Category        string
	CommonSolutions string
	SuccessRate     float64
	UsageCount      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Store persists learned patterns keyed by their pattern phrase.
type Store interface {
	// Record upserts a successful observation of a pattern. A new pattern
	// starts at one use; an existing one increments its use count, folds the
	// observation into a moving-average success rate, and replaces the stored
	// solutions with the latest ones.
	Record(ctx context.Context, pattern, category, solutions string) error
	FindByPattern(ctx context.Context, pattern string) (StoredPattern, error)
}
