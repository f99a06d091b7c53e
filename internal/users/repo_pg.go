package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) UpsertByGoogleSub(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (id, google_sub, email, name, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (google_sub) DO UPDATE SET
  email = EXCLUDED.email,
  name = EXCLUDED.name,
  updated_at = now()
RETURNING id, google_sub, email, name, created_at, updated_at`

	var stored User
	err := r.DB.QueryRowContext(ctx, query,
		uuid.NewString(),
		user.GoogleSub,
		user.Email,
		user.Name,
	).Scan(
		&stored.ID,
		&stored.GoogleSub,
		&stored.Email,
		&stored.Name,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return stored, nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, google_sub, email, name, created_at, updated_at
FROM users
WHERE id = $1
LIMIT 1`

	var user User
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.GoogleSub,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}
