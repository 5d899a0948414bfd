package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: ProfileCache,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.db")
	db, err := New(Config{Path: path, Name: "market_cache"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "market_cache", db.Name())
}

func TestMigrate_CreatesCacheTables(t *testing.T) {
	db := newTestDB(t, "market_cache")
	require.NoError(t, db.Migrate())

	for _, table := range []string{"quotes", "price_history", "listing", "order_drafts"} {
		var name string
		err := db.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t, "market_cache")
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate())
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch")
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t, "market_cache")
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO quotes (symbol, data, expires_at) VALUES ('EC', x'00', 1)")
		require.NoError(t, err)
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM quotes").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTestDB(t, "market_cache")

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestQuickCheckAndStats(t *testing.T) {
	db := newTestDB(t, "market_cache")
	require.NoError(t, db.Migrate())

	require.NoError(t, db.QuickCheck(context.Background()))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageSize, int64(0))
	assert.Greater(t, stats.PageCount, int64(0))
}
