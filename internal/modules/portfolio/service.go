package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/paperledger/internal/clients/quotes"
	"github.com/aristath/paperledger/internal/database"
	"github.com/aristath/paperledger/internal/domain"
	"github.com/aristath/paperledger/internal/modules/accounts"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PortfolioService answers position queries and values an account's holdings.
//
// Responsibilities:
//   - Position lookups (single symbol and full list)
//   - Portfolio valuation: holdings priced through the quote provider plus cash
//
// It never writes. Positions are maintained by the trading service.
type PortfolioService struct {
	db           *sql.DB
	positions    *PositionRepository
	accounts     *accounts.AccountRepository
	provider     domain.QuoteProvider
	quoteTimeout time.Duration
	log          zerolog.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(db *sql.DB, provider domain.QuoteProvider, quoteTimeout time.Duration, log zerolog.Logger) *PortfolioService {
	return &PortfolioService{
		db:           db,
		positions:    NewPositionRepository(db, log),
		accounts:     accounts.NewAccountRepository(db, log),
		provider:     provider,
		quoteTimeout: quoteTimeout,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// GetPosition returns the account's position in symbol, or nil when none is held
func (s *PortfolioService) GetPosition(ctx context.Context, accountID int64, symbol string) (*domain.Position, error) {
	pos, err := s.positions.Get(ctx, accountID, quotes.Normalize(symbol))
	if err != nil {
		return nil, domain.NewStorageError("get position", err)
	}
	return pos, nil
}

// ListPositions returns every non-zero position of the account, ordered by symbol
func (s *PortfolioService) ListPositions(ctx context.Context, accountID int64) ([]domain.Position, error) {
	positions, err := s.positions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, domain.NewStorageError("list positions", err)
	}
	return positions, nil
}

// BuildView values the account: one holding per position, priced live, plus cash.
// Cash and positions are read in one transaction so the view never mixes
// states from before and after a concurrent trade. Quotes are fetched after
// the read so a slow provider does not hold the ledger lock.
// Fails with domain.ErrQuoteUnavailable if any held symbol cannot be priced.
func (s *PortfolioService) BuildView(ctx context.Context, accountID int64) (*domain.PortfolioView, error) {
	var (
		account   *domain.Account
		positions []domain.Position
	)
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		account, err = s.accounts.WithTx(tx).Get(ctx, accountID)
		if err != nil {
			return domain.NewStorageError("get account", err)
		}
		if account == nil {
			return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
		}

		positions, err = s.positions.WithTx(tx).ListByAccount(ctx, accountID)
		if err != nil {
			return domain.NewStorageError("list positions", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Classify("portfolio view", err)
	}

	view := &domain.PortfolioView{
		AccountID:  accountID,
		Holdings:   make([]domain.Holding, 0, len(positions)),
		Cash:       account.Cash,
		TotalValue: account.Cash,
	}

	for _, pos := range positions {
		price, err := s.price(ctx, pos.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Int64("account_id", accountID).Str("symbol", pos.Symbol).Msg("Cannot price holding")
			return nil, err
		}

		value := price.Mul(decimal.NewFromInt(pos.Shares))
		view.Holdings = append(view.Holdings, domain.Holding{
			Symbol:       pos.Symbol,
			Shares:       pos.Shares,
			CurrentPrice: price,
			MarketValue:  value,
		})
		view.TotalValue = view.TotalValue.Add(value)
	}

	return view, nil
}

// price resolves a held symbol. A symbol the provider no longer knows is
// reported as unavailable: the holding exists, only its price is missing.
func (s *PortfolioService) price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := quotes.Resolve(ctx, s.provider, symbol, s.quoteTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSymbol) {
			return decimal.Zero, fmt.Errorf("%w: %s is no longer quoted", domain.ErrQuoteUnavailable, symbol)
		}
		return decimal.Zero, err
	}
	return q.Price, nil
}
