package patterns

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory, used when no database is
// configured.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]StoredPattern
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]StoredPattern),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Record(ctx context.Context, pattern, category, solutions string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.items[pattern]
	if !ok {
		s.items[pattern] = StoredPattern{
			ID:              uuid.NewString(),
			Pattern:         pattern,
			Category:        category,
			CommonSolutions: solutions,
			SuccessRate:     1,
			UsageCount:      1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return nil
	}

	count := existing.UsageCount + 1
	existing.SuccessRate = ((existing.SuccessRate * float64(existing.UsageCount)) + 1) / float64(count)
	existing.UsageCount = count
	existing.CommonSolutions = solutions
	existing.UpdatedAt = now
	s.items[pattern] = existing
	return nil
}

func (s *MemoryStore) FindByPattern(ctx context.Context, pattern string) (StoredPattern, error) {
	if err := ctx.Err(); err != nil {
		return StoredPattern{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.items[pattern]
	if !ok {
		return StoredPattern{}, ErrPatternNotFound
	}
	return stored, nil
}
