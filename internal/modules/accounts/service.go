package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aristath/paperledger/internal/database"
	"github.com/aristath/paperledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountService handles account registration and cash deposits.
// Deposits share the per-account lock with the trading service so a deposit
// can never interleave with a buy or sell on the same account.
type AccountService struct {
	db    *sql.DB
	repo  *AccountRepository
	locks *AccountLocks
	log   zerolog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(db *sql.DB, locks *AccountLocks, log zerolog.Logger) *AccountService {
	return &AccountService{
		db:    db,
		repo:  NewAccountRepository(db, log),
		locks: locks,
		log:   log.With().Str("service", "accounts").Logger(),
	}
}

// Open registers a new account funded with startingCash
func (s *AccountService) Open(ctx context.Context, username string, startingCash decimal.Decimal) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}
	if startingCash.IsNegative() {
		return nil, fmt.Errorf("%w: starting cash %s", domain.ErrInvalidAmount, startingCash)
	}

	account, err := s.repo.Create(ctx, username, startingCash)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Get returns the account or domain.ErrAccountNotFound
func (s *AccountService) Get(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, domain.NewStorageError("get account", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
	}
	return account, nil
}

// Deposit adds amount to the account's cash balance
func (s *AccountService) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*domain.Account, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}

	var updated *domain.Account
	err := s.locks.WithLock(ctx, accountID, func() error {
		return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
			repo := s.repo.WithTx(tx)

			account, err := repo.Get(ctx, accountID)
			if err != nil {
				return domain.NewStorageError("get account", err)
			}
			if account == nil {
				return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
			}

			account.Cash = account.Cash.Add(amount)
			if _, err := database.ExecStatements(ctx, tx, []database.Statement{
				repo.SetCashStatement(accountID, account.Cash),
			}); err != nil {
				return domain.NewStorageError("deposit", err)
			}

			updated = account
			return nil
		})
	})
	if err != nil {
		return nil, domain.Classify("deposit", err)
	}

	s.log.Info().
		Int64("account_id", accountID).
		Str("amount", amount.String()).
		Str("cash", updated.Cash.String()).
		Msg("Cash deposited")

	return updated, nil
}
