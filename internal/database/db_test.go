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

func openTemp(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_CreatesTablesAndIsRepeatable(t *testing.T) {
	tests := []struct {
		name    string
		profile DatabaseProfile
		tables  []string
	}{
		{NameTicks, ProfileStandard, []string{"ticks"}},
		{NamePortfolio, ProfileLedger, []string{"holdings", "plans", "asset_snapshots", "search_history", "user_indices", "favorites"}},
		{NameClientData, ProfileCache, []string{"nav_history", "fund_directory"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTemp(t, tt.name, tt.profile)
			require.NoError(t, db.Migrate())
			require.NoError(t, db.Migrate())

			for _, table := range tt.tables {
				var n int
				err := db.Conn().QueryRow(
					"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
				).Scan(&n)
				require.NoError(t, err)
				assert.Equal(t, 1, n, "table %s should exist", table)
			}
		})
	}
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := openTemp(t, "scratch", ProfileStandard)
	assert.NoError(t, db.Migrate())
}

func TestSchema(t *testing.T) {
	ddl, err := Schema(NameTicks)
	require.NoError(t, err)
	assert.Contains(t, ddl, "PRIMARY KEY (instrument_id, timestamp)")

	_, err = Schema("nope")
	assert.Error(t, err)
}

func TestWithTransaction(t *testing.T) {
	db := openTemp(t, NameTicks, ProfileStandard)
	require.NoError(t, db.Migrate())

	insert := func(tx *sql.Tx, ts string) error {
		_, err := tx.Exec(`INSERT INTO ticks (instrument_id, timestamp, pct_change, price) VALUES ('000001', ?, 0.1, 1.0)`, ts)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM ticks").Scan(&n))
		return n
	}

	t.Run("commit", func(t *testing.T) {
		err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
			return insert(tx, "2024-01-02 09:30:00")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rollback on error", func(t *testing.T) {
		err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insert(tx, "2024-01-02 09:31:00"))
			return errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rollback on panic", func(t *testing.T) {
		err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insert(tx, "2024-01-02 09:32:00"))
			panic("kaboom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
		assert.Equal(t, 1, count())
	})

	t.Run("nil connection", func(t *testing.T) {
		assert.Error(t, WithTransaction(context.Background(), nil, func(*sql.Tx) error { return nil }))
	})
}

func TestHealthAndStats(t *testing.T) {
	db := openTemp(t, NameClientData, ProfileCache)
	require.NoError(t, db.Migrate())

	assert.NoError(t, db.QuickCheck(context.Background()))
	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, db.WALCheckpoint(""))
	assert.Error(t, db.WALCheckpoint("DROP TABLE"))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, NameClientData, stats.Name)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestBuildConnectionString(t *testing.T) {
	s := buildConnectionString("/tmp/x.db", ProfileLedger)
	assert.Contains(t, s, "/tmp/x.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, s, "synchronous(FULL)")
	assert.Contains(t, s, "busy_timeout(5000)")

	s = buildConnectionString("file:mem?mode=memory", ProfileCache)
	assert.Contains(t, s, "file:mem?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, s, "synchronous(OFF)")
}
