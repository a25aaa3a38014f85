package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/aristath/paperledger/internal/database"
	"github.com/aristath/paperledger/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAccountsDB creates an in-memory database with only the accounts table
func setupAccountsDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			cash TEXT NOT NULL DEFAULT '0',
			created_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func TestAccountRepository_CreateAndGet(t *testing.T) {
	db := setupAccountsDB(t)
	repo := NewAccountRepository(db, zerolog.Nop())
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice", decimal.RequireFromString("10000.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.Cash.Equal(decimal.NewFromInt(10000)), "cash = %s", got.Cash)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)
}

func TestAccountRepository_GetMissing(t *testing.T) {
	db := setupAccountsDB(t)
	repo := NewAccountRepository(db, zerolog.Nop())

	got, err := repo.Get(context.Background(), 42)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccountRepository_DuplicateUsername(t *testing.T) {
	db := setupAccountsDB(t)
	repo := NewAccountRepository(db, zerolog.Nop())
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice", decimal.Zero)
	require.NoError(t, err)

	_, err = repo.Create(ctx, "alice", decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrAccountExists), "got %v", err)
}

func TestAccountRepository_SetCashStatement(t *testing.T) {
	db := setupAccountsDB(t)
	repo := NewAccountRepository(db, zerolog.Nop())
	ctx := context.Background()

	account, err := repo.Create(ctx, "alice", decimal.NewFromInt(100))
	require.NoError(t, err)

	_, err = database.RunAtomic(ctx, db, repo.SetCashStatement(account.ID, decimal.RequireFromString("0.10")))
	require.NoError(t, err)

	got, err := repo.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.1", got.Cash.String())
}

func TestAccountRepository_CorruptCash(t *testing.T) {
	db := setupAccountsDB(t)
	repo := NewAccountRepository(db, zerolog.Nop())

	_, err := db.Exec(`INSERT INTO accounts (username, cash, created_at) VALUES ('bob', 'NaN-ish', 0)`)
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt cash balance")
}
