package users

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

type Repo interface {
	// UpsertByGoogleSub creates or refreshes the user keyed by the Google
	// subject claim and returns the stored record.
	UpsertByGoogleSub(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
}
