package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/reviewsync/internal/db"
)

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	first, err := db.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := db.Open(path)
	require.NoError(t, err)
	defer second.Close()

	var n int
	require.NoError(t, second.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 2, n)

	for _, table := range []string{"cards", "review_history"} {
		var name string
		err := second.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestOpen_AcceptsPathWithParams(t *testing.T) {
	path := "file:" + filepath.Join(t.TempDir(), "params.db") + "?cache=private"

	d, err := db.Open(path)
	require.NoError(t, err)
	defer d.Close()

	var fk int
	require.NoError(t, d.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}
