package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerDB(t *testing.T, driver string) *DB {
	t.Helper()

	db, err := New(Config{
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
		Driver: driver,
		Name:   "ledger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestNew_BothDrivers(t *testing.T) {
	for _, driver := range []string{DriverModernc, DriverMattn} {
		t.Run(driver, func(t *testing.T) {
			db := newLedgerDB(t, driver)

			assert.Equal(t, driver, db.Driver())
			assert.Equal(t, "ledger", db.Name())
			assert.NoError(t, db.HealthCheck(context.Background()))

			for _, table := range []string{"accounts", "positions", "orders"} {
				assert.Equal(t, 0, countRows(t, db, table), table)
			}
		})
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres", Name: "ledger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newLedgerDB(t, DriverModernc)
	assert.NoError(t, db.Migrate())
}

func TestMigrate_ClientData(t *testing.T) {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "client_data.db"),
		Profile: ProfileCache,
		Name:    "client_data",
	})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	assert.Equal(t, 0, countRows(t, db, "quote_cache"))
}

func TestBuildConnectionString(t *testing.T) {
	modernc, err := buildConnectionString(DriverModernc, "/tmp/l.db", ProfileLedger)
	require.NoError(t, err)
	assert.Contains(t, modernc, "_pragma=synchronous(FULL)")
	assert.Contains(t, modernc, "_txlock=immediate")

	mattn, err := buildConnectionString(DriverMattn, "/tmp/l.db", ProfileCache)
	require.NoError(t, err)
	assert.Contains(t, mattn, "file:/tmp/l.db?")
	assert.Contains(t, mattn, "_synchronous=OFF")
	assert.Contains(t, mattn, "_txlock=immediate")
}

func TestRunAtomic_CommitsAllStatements(t *testing.T) {
	db := newLedgerDB(t, DriverModernc)
	ctx := context.Background()

	results, err := RunAtomic(ctx, db.Conn(),
		Stmt(`INSERT INTO accounts (username, cash, created_at) VALUES (?, ?, ?)`, "alice", "100", 1),
		Stmt(`INSERT INTO accounts (username, cash, created_at) VALUES (?, ?, ?)`, "bob", "50", 1),
	)
	require.NoError(t, err)
	require.Len(t, results, 2)

	id, err := results[1].LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, 2, countRows(t, db, "accounts"))
}

func TestRunAtomic_RollsBackOnFailure(t *testing.T) {
	db := newLedgerDB(t, DriverModernc)
	ctx := context.Background()

	_, err := RunAtomic(ctx, db.Conn(),
		Stmt(`INSERT INTO accounts (username, cash, created_at) VALUES (?, ?, ?)`, "alice", "100", 1),
		// Violates CHECK (shares > 0) after the first write succeeded
		Stmt(`INSERT INTO positions (account_id, symbol, shares, updated_at) VALUES (1, 'ABC', 0, 1)`),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2 of 2")

	assert.Equal(t, 0, countRows(t, db, "accounts"))
	assert.Equal(t, 0, countRows(t, db, "positions"))
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newLedgerDB(t, DriverModernc)

	err := WithTransaction(context.Background(), db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO accounts (username, cash, created_at) VALUES ('alice', '1', 1)`)
		require.NoError(t, err)
		panic("boom")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
	assert.Equal(t, 0, countRows(t, db, "accounts"))
}

func TestWALCheckpoint(t *testing.T) {
	db := newLedgerDB(t, DriverModernc)

	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.WALCheckpoint("PASSIVE"))
	assert.Error(t, db.WALCheckpoint("DROP TABLE accounts"))
}

func TestBackupTo(t *testing.T) {
	db := newLedgerDB(t, DriverModernc)
	ctx := context.Background()

	_, err := db.Conn().Exec(`INSERT INTO accounts (username, cash, created_at) VALUES ('alice', '100', 1)`)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, db.BackupTo(ctx, dest))

	snapshot, err := New(Config{Path: dest, Name: "ledger"})
	require.NoError(t, err)
	defer snapshot.Close()
	assert.Equal(t, 1, countRows(t, snapshot, "accounts"))

	assert.Error(t, db.BackupTo(ctx, dest), "existing destination must be rejected")
}
