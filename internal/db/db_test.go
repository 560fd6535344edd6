package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.db")
	db, err := OpenMigrated(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM _migrations`).Scan(&n))
	require.Equal(t, 1, n)

	_, err = db.Exec(`INSERT INTO rounds (id, target, started_at) VALUES ('r1', 42, '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO rounds (id, target, started_at) VALUES ('r2', 100, '2026-01-01T00:00:00Z')`)
	require.Error(t, err, "target check constraint")
}
