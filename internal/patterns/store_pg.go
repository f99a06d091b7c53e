package patterns

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

// Record upserts the pattern row in one statement. The conflict branch folds
// the new observation into the moving-average success rate and bumps the
// usage count.
func (s *PGStore) Record(ctx context.Context, pattern, category, solutions string) error {
	const query = `
INSERT INTO feedback_patterns (id, pattern, category, common_solutions, success_rate, usage_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, 1, 1, now(), now())
ON CONFLICT (pattern) DO UPDATE SET
    common_solutions = EXCLUDED.common_solutions,
    success_rate = ((feedback_patterns.success_rate * feedback_patterns.usage_count) + 1) / (feedback_patterns.usage_count + 1),
    usage_count = feedback_patterns.usage_count + 1,
    updated_at = now()`
	_, err := s.DB.ExecContext(ctx, query, uuid.NewString(), pattern, category, solutions)
	return err
}

func (s *PGStore) FindByPattern(ctx context.Context, pattern string) (StoredPattern, error) {
	const query = `
SELECT id, pattern, category, common_solutions, success_rate, usage_count, created_at, updated_at
FROM feedback_patterns
WHERE pattern = $1
LIMIT 1`
	var stored StoredPattern
	err := s.DB.QueryRowContext(ctx, query, pattern).Scan(
		&stored.ID,
		&stored.Pattern,
		&stored.Category,
		&stored.CommonSolutions,
		&stored.SuccessRate,
		&stored.UsageCount,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredPattern{}, ErrPatternNotFound
		}
		return StoredPattern{}, err
	}
	return stored, nil
}
