package patterns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PGStore{DB: db}, mock
}

func TestPGStoreRecordUpserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO feedback_patterns`).
		WithArgs(sqlmock.AnyArg(), "Change color to black", "Style", `["swap the class"]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Record(context.Background(), "Change color to black", "Style", `["swap the class"]`)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreFindByPattern(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, pattern, category`).
		WithArgs("Change color to black").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "pattern", "category", "common_solutions", "success_rate", "usage_count", "created_at", "updated_at",
		}).AddRow("p1", "Change color to black", "Style", "[]", 1.0, int64(3), now, now))

	stored, err := store.FindByPattern(context.Background(), "Change color to black")
	if err != nil {
		t.Fatalf("FindByPattern: %v", err)
	}
	if stored.UsageCount != 3 {
		t.Fatalf("usageCount = %d", stored.UsageCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreFindByPatternMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, pattern, category`).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "pattern", "category", "common_solutions", "success_rate", "usage_count", "created_at", "updated_at",
		}))

	if _, err := store.FindByPattern(context.Background(), "unknown"); !errors.Is(err, ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
