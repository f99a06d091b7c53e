package analyses

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `
id, user_id, file_name, file_size, original_content, feedback,
interpretation, suggestions, confidence, reasoning, user_rating, status,
created_at, updated_at, is_deleted, deleted_at`

// Create inserts a new analysis in PENDING state.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, user_id, file_name, file_size, original_content, feedback,
	status, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.UserID,
		analysis.FileName,
		analysis.FileSize,
		analysis.OriginalContent,
		analysis.Feedback,
		analysis.Status,
		analysis.CreatedAt,
		analysis.UpdatedAt,
	)
	return err
}

// GetByID returns a non-deleted analysis. When userID is non-empty the row
// must belong to that user; the worker passes an empty userID to load by id
// alone.
func (r *PGRepo) GetByID(ctx context.Context, userID, analysisID string) (Analysis, error) {
	query := `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id = $1 AND NOT is_deleted`
	args := []any{analysisID}
	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	query += ` LIMIT 1`

	row := r.DB.QueryRowContext(ctx, query, args...)
	analysis, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	return analysis, nil
}

// ListByUser returns non-deleted analyses newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1 AND NOT is_deleted
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Analysis, 0)
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, analysis)
	}
	return out, rows.Err()
}

// MarkProcessing transitions PENDING -> PROCESSING.
func (r *PGRepo) MarkProcessing(ctx context.Context, analysisID string) error {
	const query = `
UPDATE analyses
SET status = $1, updated_at = now()
WHERE id = $2 AND status = $3 AND NOT is_deleted`
	res, err := r.DB.ExecContext(ctx, query, StatusProcessing, analysisID, StatusPending)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, res, analysisID, StatusProcessing)
}

// Complete transitions PROCESSING -> COMPLETE, writing all four output fields
// in the same statement so the all-or-nothing invariant holds.
func (r *PGRepo) Complete(ctx context.Context, analysisID string, outputs CompletedOutputs) error {
	const query = `
UPDATE analyses
SET status = $1, interpretation = $2, suggestions = $3, confidence = $4,
    reasoning = $5, updated_at = now()
WHERE id = $6 AND status = $7 AND NOT is_deleted`
	res, err := r.DB.ExecContext(ctx, query,
		StatusComplete,
		outputs.Interpretation,
		outputs.Suggestions,
		outputs.Confidence,
		outputs.Reasoning,
		analysisID,
		StatusProcessing,
	)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, res, analysisID, StatusComplete)
}

// Fail transitions PROCESSING -> FAILED. Output fields stay null.
func (r *PGRepo) Fail(ctx context.Context, analysisID string) error {
	const query = `
UPDATE analyses
SET status = $1, updated_at = now()
WHERE id = $2 AND status = $3 AND NOT is_deleted`
	res, err := r.DB.ExecContext(ctx, query, StatusFailed, analysisID, StatusProcessing)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, res, analysisID, StatusFailed)
}

// checkTransition distinguishes a missing row from a state conflict after a
// conditional update touched zero rows.
func (r *PGRepo) checkTransition(ctx context.Context, res sql.Result, analysisID, nextStatus string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var current string
	err = r.DB.QueryRowContext(ctx,
		`SELECT status FROM analyses WHERE id = $1 AND NOT is_deleted LIMIT 1`,
		analysisID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return &InvalidStateError{Current: current, Next: nextStatus}
}

// SetRating stores a user rating on a COMPLETE job. A zero-row update is
// resolved into ErrNotFound or ErrNotRatable by re-reading the status.
func (r *PGRepo) SetRating(ctx context.Context, userID, analysisID string, rating int) error {
	const query = `
UPDATE analyses
SET user_rating = $1, updated_at = now()
WHERE id = $2 AND user_id = $3 AND status = $4 AND NOT is_deleted`
	res, err := r.DB.ExecContext(ctx, query, rating, analysisID, userID, StatusComplete)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var current string
	err = r.DB.QueryRowContext(ctx,
		`SELECT status FROM analyses WHERE id = $1 AND user_id = $2 AND NOT is_deleted LIMIT 1`,
		analysisID, userID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrNotRatable
}

// SoftDelete hides the analysis from the owner's history without removing the row.
func (r *PGRepo) SoftDelete(ctx context.Context, userID, analysisID string) error {
	const query = `
UPDATE analyses
SET is_deleted = TRUE, deleted_at = now(), updated_at = now()
WHERE id = $1 AND user_id = $2 AND NOT is_deleted`
	res, err := r.DB.ExecContext(ctx, query, analysisID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// FailStale reaps jobs stuck in PROCESSING since before cutoff.
func (r *PGRepo) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
UPDATE analyses
SET status = $1, updated_at = now()
WHERE status = $2 AND updated_at <= $3 AND NOT is_deleted`
	res, err := r.DB.ExecContext(ctx, query, StatusFailed, StatusProcessing, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var interpretation sql.NullString
	var suggestions sql.NullString
	var confidence sql.NullInt64
	var reasoning sql.NullString
	var userRating sql.NullInt64
	var deletedAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.FileName,
		&a.FileSize,
		&a.OriginalContent,
		&a.Feedback,
		&interpretation,
		&suggestions,
		&confidence,
		&reasoning,
		&userRating,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.IsDeleted,
		&deletedAt,
	)
	if err != nil {
		return Analysis{}, err
	}

	if interpretation.Valid {
		a.Interpretation = interpretation.String
	}
	if suggestions.Valid {
		a.Suggestions = suggestions.String
	}
	if confidence.Valid {
		value := int(confidence.Int64)
		a.Confidence = &value
	}
	if reasoning.Valid {
		a.Reasoning = reasoning.String
	}
	if userRating.Valid {
		value := int(userRating.Int64)
		a.UserRating = &value
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		a.DeletedAt = &t
	}
	return a, nil
}
