package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foreignKeysEnabled(t *testing.T, db *SQLiteDB) bool {
	t.Helper()
	var on int
	require.NoError(t, db.DB.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&on))
	return on == 1
}

func TestNewSQLiteDB_ForeignKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		db, err := NewSQLiteDB(ctx, MemoryPath)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		assert.True(t, foreignKeysEnabled(t, db))
	})

	t.Run("file on every new connection", func(t *testing.T) {
		db, err := NewSQLiteDB(ctx, filepath.Join(t.TempDir(), "votes.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		// no idle connections, so each query dials a fresh one
		db.DB.SetMaxIdleConns(0)
		for i := 0; i < 3; i++ {
			assert.True(t, foreignKeysEnabled(t, db))
		}
	})
}

func TestNewSQLiteDB_RejectsDanglingReference(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteDB(ctx, filepath.Join(t.TempDir(), "votes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.DB.SetMaxIdleConns(0)

	_, err = db.DB.ExecContext(ctx, `CREATE TABLE parent (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	_, err = db.DB.ExecContext(ctx, `CREATE TABLE child (id TEXT PRIMARY KEY, parent_id TEXT NOT NULL REFERENCES parent(id))`)
	require.NoError(t, err)

	_, err = db.DB.ExecContext(ctx, `INSERT INTO child (id, parent_id) VALUES ('c1', 'missing')`)
	assert.Error(t, err)
}

func TestNewSQLiteDB_EmptyPath(t *testing.T) {
	_, err := NewSQLiteDB(context.Background(), "  ")
	assert.Error(t, err)
}
