// Package accounts manages simulated brokerage accounts and their cash balances.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/paperledger/internal/database"
	"github.com/aristath/paperledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const accountsColumns = `id, username, cash, created_at`

// AccountRepository handles account persistence in ledger.db.
// Cash is stored as a canonical decimal string.
type AccountRepository struct {
	q   database.Querier
	log zerolog.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(q database.Querier, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		q:   q,
		log: log.With().Str("repo", "account").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx *sql.Tx) *AccountRepository {
	return &AccountRepository{q: tx, log: r.log}
}

// Create inserts a new account and returns it
func (r *AccountRepository) Create(ctx context.Context, username string, cash decimal.Decimal) (*domain.Account, error) {
	now := time.Now().UTC()

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (username, cash, created_at) VALUES (?, ?, ?)`,
		username, cash.String(), now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountExists, username)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read account id: %w", err)
	}

	r.log.Info().Int64("account_id", id).Str("username", username).Msg("Account created")

	return &domain.Account{
		ID:        id,
		Username:  username,
		Cash:      cash,
		CreatedAt: time.Unix(now.Unix(), 0).UTC(),
	}, nil
}

// Get returns the account, or nil if it does not exist
func (r *AccountRepository) Get(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+accountsColumns+" FROM accounts WHERE id = ?", id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetByUsername returns the account, or nil if it does not exist
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+accountsColumns+" FROM accounts WHERE username = ?", username)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %q: %w", username, err)
	}
	return account, nil
}

// SetCashStatement builds the write that replaces an account's cash balance
func (r *AccountRepository) SetCashStatement(accountID int64, cash decimal.Decimal) database.Statement {
	return database.Stmt(`UPDATE accounts SET cash = ? WHERE id = ?`, cash.String(), accountID)
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var (
		account   domain.Account
		cash      string
		createdAt int64
	)
	if err := row.Scan(&account.ID, &account.Username, &cash, &createdAt); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(cash)
	if err != nil {
		return nil, fmt.Errorf("corrupt cash balance %q for account %d: %w", cash, account.ID, err)
	}
	account.Cash = parsed
	account.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &account, nil
}

// isUniqueViolation matches the constraint message of both SQLite drivers
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
