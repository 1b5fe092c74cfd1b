package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/vytor/reviewsync/internal/db"
	"github.com/vytor/reviewsync/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// The database is configured with foreign keys enabled.
func NewTestDB(t *testing.T) *sql.DB {
	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// every new connection would see its own empty in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(context.Background(), sqlDB))
	return sqlDB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// ReviewedState returns a Review-state scheduling record last reviewed at
// at and due after days.
func ReviewedState(at time.Time, days float64) models.SchedulingState {
	return models.SchedulingState{
		Stability:     days,
		Difficulty:    0.4,
		ScheduledDays: days,
		Reps:          3,
		State:         models.StateReview,
		LastReview:    at,
		Due:           at.Add(time.Duration(days * 24 * float64(time.Hour))),
	}
}
