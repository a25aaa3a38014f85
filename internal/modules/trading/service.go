package trading

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
	"github.com/aristath/paperledger/internal/modules/portfolio"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TradingService executes buy and sell orders.
//
// Every order runs as: validate quantity -> price through the quote provider ->
// take the account lock -> one ledger transaction that reads cash and position,
// validates, then writes cash, position and the order row together.
// The quote is fetched before the lock so a slow provider never holds up other
// operations on the account.
type TradingService struct {
	db           *sql.DB
	accounts     *accounts.AccountRepository
	positions    *portfolio.PositionRepository
	orders       *OrderRepository
	locks        *accounts.AccountLocks
	provider     domain.QuoteProvider
	quoteTimeout time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewTradingService creates a new trading service.
// locks must be the instance shared with the account service.
func NewTradingService(
	db *sql.DB,
	locks *accounts.AccountLocks,
	provider domain.QuoteProvider,
	quoteTimeout time.Duration,
	log zerolog.Logger,
) *TradingService {
	return &TradingService{
		db:           db,
		accounts:     accounts.NewAccountRepository(db, log),
		positions:    portfolio.NewPositionRepository(db, log),
		orders:       NewOrderRepository(db, log),
		locks:        locks,
		provider:     provider,
		quoteTimeout: quoteTimeout,
		now:          time.Now,
		log:          log.With().Str("service", "trading").Logger(),
	}
}

// ExecuteBuy buys shares of symbol at the current quote, debiting cash
func (s *TradingService) ExecuteBuy(ctx context.Context, accountID int64, symbol string, shares int64) (*domain.Order, error) {
	return s.execute(ctx, domain.OrderSideBuy, accountID, symbol, shares)
}

// ExecuteSell sells held shares of symbol at the current quote, crediting cash.
// Selling the whole position removes it.
func (s *TradingService) ExecuteSell(ctx context.Context, accountID int64, symbol string, shares int64) (*domain.Order, error) {
	return s.execute(ctx, domain.OrderSideSell, accountID, symbol, shares)
}

func (s *TradingService) execute(ctx context.Context, side domain.OrderSide, accountID int64, symbol string, shares int64) (*domain.Order, error) {
	if err := validateQuantity(shares); err != nil {
		s.log.Debug().Err(err).Int64("account_id", accountID).Str("side", string(side)).Msg("Order rejected")
		return nil, err
	}

	quote, err := quotes.Resolve(ctx, s.provider, symbol, s.quoteTimeout)
	if err != nil {
		s.log.Debug().Err(err).Int64("account_id", accountID).Str("symbol", symbol).Msg("Order rejected")
		return nil, err
	}

	order := &domain.Order{
		Ref:        uuid.NewString(),
		AccountID:  accountID,
		Symbol:     quote.Symbol,
		Side:       side,
		Shares:     shares,
		Price:      quote.Price,
		ExecutedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	var cash decimal.Decimal
	err = s.locks.WithLock(ctx, accountID, func() error {
		return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
			var err error
			cash, err = s.apply(ctx, tx, order)
			return err
		})
	})
	if err != nil {
		err = domain.Classify(string(side), err)
		if errors.Is(err, domain.ErrStorage) {
			s.log.Error().Err(err).Int64("account_id", accountID).Str("symbol", order.Symbol).Msg("Order failed")
		} else {
			s.log.Debug().Err(err).Int64("account_id", accountID).Str("symbol", order.Symbol).Msg("Order rejected")
		}
		return nil, err
	}

	s.log.Info().
		Int64("account_id", accountID).
		Int64("order_id", order.ID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Int64("shares", order.Shares).
		Str("price", order.Price.String()).
		Str("cash", cash.String()).
		Msg("Order executed")

	return order, nil
}

// apply reads the account state inside tx, validates order against it and
// writes cash, position and the order row. Returns the new cash balance.
// Nothing is written unless every check passes.
func (s *TradingService) apply(ctx context.Context, tx *sql.Tx, order *domain.Order) (decimal.Decimal, error) {
	accountRepo := s.accounts.WithTx(tx)
	positionRepo := s.positions.WithTx(tx)
	orderRepo := s.orders.WithTx(tx)

	account, err := accountRepo.Get(ctx, order.AccountID)
	if err != nil {
		return decimal.Zero, domain.NewStorageError("get account", err)
	}
	if account == nil {
		return decimal.Zero, fmt.Errorf("%w: %d", domain.ErrAccountNotFound, order.AccountID)
	}

	pos, err := positionRepo.Get(ctx, order.AccountID, order.Symbol)
	if err != nil {
		return decimal.Zero, domain.NewStorageError("get position", err)
	}

	value := order.Value()
	stmts := make([]database.Statement, 0, 3)

	var cash decimal.Decimal
	switch order.Side {
	case domain.OrderSideBuy:
		var held int64
		if pos != nil {
			held = pos.Shares
		}
		if err := checkPositionCapacity(held, order.Shares); err != nil {
			return decimal.Zero, err
		}
		if err := checkFunds(account.Cash, value); err != nil {
			return decimal.Zero, err
		}

		cash = account.Cash.Sub(value)
		stmts = append(stmts,
			accountRepo.SetCashStatement(order.AccountID, cash),
			positionRepo.UpsertStatement(order.AccountID, order.Symbol, held+order.Shares, order.ExecutedAt),
		)

	case domain.OrderSideSell:
		if err := validateSellPosition(pos, order.Symbol, order.Shares); err != nil {
			return decimal.Zero, err
		}

		cash = account.Cash.Add(value)
		stmts = append(stmts, accountRepo.SetCashStatement(order.AccountID, cash))
		if remaining := pos.Shares - order.Shares; remaining == 0 {
			stmts = append(stmts, positionRepo.DeleteStatement(order.AccountID, order.Symbol))
		} else {
			stmts = append(stmts, positionRepo.UpsertStatement(order.AccountID, order.Symbol, remaining, order.ExecutedAt))
		}

	default:
		return decimal.Zero, fmt.Errorf("unsupported order side %q", order.Side)
	}

	// The order row goes last so its id comes from the final result
	stmts = append(stmts, orderRepo.InsertStatement(order))

	results, err := database.ExecStatements(ctx, tx, stmts)
	if err != nil {
		return decimal.Zero, domain.NewStorageError(string(order.Side), err)
	}

	order.ID, err = results[len(results)-1].LastInsertId()
	if err != nil {
		return decimal.Zero, domain.NewStorageError("read order id", err)
	}

	return cash, nil
}

// Quote resolves symbol to its current price with a normalized symbol
func (s *TradingService) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	return quotes.Resolve(ctx, s.provider, symbol, s.quoteTimeout)
}

// ListOrders returns the account's order history, oldest first
func (s *TradingService) ListOrders(ctx context.Context, accountID int64) ([]domain.Order, error) {
	if err := s.requireAccount(ctx, s.accounts, accountID); err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, domain.NewStorageError("list orders", err)
	}
	return orders, nil
}

// VerifyAccount replays the account's order history and compares it with the
// stored positions. Returns the verified holdings, or domain.ErrReplayMismatch
// listing every symbol that drifted.
func (s *TradingService) VerifyAccount(ctx context.Context, accountID int64) (map[string]int64, error) {
	var stored, replayed map[string]int64

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, s.accounts.WithTx(tx), accountID); err != nil {
			return err
		}

		orders, err := s.orders.WithTx(tx).ListByAccount(ctx, accountID)
		if err != nil {
			return domain.NewStorageError("list orders", err)
		}
		positions, err := s.positions.WithTx(tx).ListByAccount(ctx, accountID)
		if err != nil {
			return domain.NewStorageError("list positions", err)
		}

		stored = PositionShares(positions)
		replayed = Replay(orders)
		return nil
	})
	if err != nil {
		return nil, domain.Classify("verify", err)
	}

	if drift := diffHoldings(stored, replayed); len(drift) > 0 {
		err := replayMismatch(accountID, drift)
		s.log.Error().Err(err).Int64("account_id", accountID).Msg("Ledger verification failed")
		return nil, err
	}

	return stored, nil
}

func (s *TradingService) requireAccount(ctx context.Context, repo *accounts.AccountRepository, accountID int64) error {
	account, err := repo.Get(ctx, accountID)
	if err != nil {
		return domain.NewStorageError("get account", err)
	}
	if account == nil {
		return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
	}
	return nil
}
