package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPortfolioDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), "portfolio.db"),
		Name: "portfolio",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func countPortfolios(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM portfolios").Scan(&n))
	return n
}

func TestBuildConnectionString(t *testing.T) {
	conn := buildConnectionString("/tmp/x.db", ProfileDurable)
	assert.Contains(t, conn, "/tmp/x.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, conn, "synchronous(FULL)")
	assert.Contains(t, conn, "foreign_keys(1)")

	assert.Contains(t, conn, "busy_timeout(5000)")

	conn = buildConnectionString("file:test?mode=memory", ProfileStandard)
	assert.Contains(t, conn, "file:test?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, conn, "synchronous(NORMAL)")
}

func TestBusyTimeoutOnEveryPooledConnection(t *testing.T) {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "portfolio.db"),
		Profile: ProfileDurable,
		Name:    "portfolio",
	})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	// Hold several connections at once so the pool has to open distinct ones
	conns := make([]*sql.Conn, 0, 3)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for i := 0; i < 3; i++ {
		c, err := db.Conn().Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, c)
	}

	for i, c := range conns {
		var timeout int
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout, "connection %d", i)
	}
}

func TestNewDefaultsToStandardProfile(t *testing.T) {
	db := newPortfolioDB(t)
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "portfolio", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newPortfolioDB(t)
	require.NoError(t, db.Migrate())

	for _, table := range []string{"portfolios", "allocations", "portfolio_snapshots", "asset_snapshots"} {
		var name string
		err := db.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestMigrateUnknownNameIsNoop(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "scratch.db"), Name: "scratch"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestWithTransactionCommits(t *testing.T) {
	db := newPortfolioDB(t)

	err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO portfolios (name, risk_profile, created_at, updated_at) VALUES ('a', 'moderate', 0, 0)")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countPortfolios(t, db))
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := newPortfolioDB(t)
	boom := errors.New("boom")

	err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO portfolios (name, risk_profile, created_at, updated_at) VALUES ('a', 'moderate', 0, 0)"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countPortfolios(t, db))
}

func TestWithTransactionRecoversPanic(t *testing.T) {
	db := newPortfolioDB(t)

	err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec("INSERT INTO portfolios (name, risk_profile, created_at, updated_at) VALUES ('a', 'moderate', 0, 0)")
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
	assert.Equal(t, 0, countPortfolios(t, db))
}

func TestWithTransactionCancelledContextDoesNotCommit(t *testing.T) {
	db := newPortfolioDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO portfolios (name, risk_profile, created_at, updated_at) VALUES ('a', 'moderate', 0, 0)"); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 0, countPortfolios(t, db))
}

func TestWithTransactionNilDB(t *testing.T) {
	err := WithTransaction(context.Background(), nil, func(*sql.Tx) error { return nil })
	assert.Error(t, err)
}

func TestBackupToAndStats(t *testing.T) {
	db := newPortfolioDB(t)
	_, err := db.Conn().Exec("INSERT INTO portfolios (name, risk_profile, created_at, updated_at) VALUES ('a', 'moderate', 0, 0)")
	require.NoError(t, err)

	require.NoError(t, db.WALCheckpoint("PASSIVE"))

	dest := filepath.Join(t.TempDir(), "backup", "portfolio.db")
	require.NoError(t, db.BackupTo(context.Background(), dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// Refuses to overwrite
	assert.Error(t, db.BackupTo(context.Background(), dest))

	restored, err := New(Config{Path: dest, Name: "restored"})
	require.NoError(t, err)
	defer restored.Close()
	assert.Equal(t, 1, countPortfolios(t, restored))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageCount)
	assert.Positive(t, stats.PageSize)

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, db.QuickCheck(context.Background()))
}
