// Package trading executes buy and sell orders against the ledger and keeps
// the append-only order history.
package trading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/paperledger/internal/database"
	"github.com/aristath/paperledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ordersColumns is the list of columns for the orders table
// Column order must match scanOrder()
const ordersColumns = `id, ref, account_id, symbol, shares, side, price, executed_at`

// OrderRepository handles order database operations.
// Orders are append-only: there is no update or delete.
type OrderRepository struct {
	q   database.Querier
	log zerolog.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(q database.Querier, log zerolog.Logger) *OrderRepository {
	return &OrderRepository{
		q:   q,
		log: log.With().Str("repo", "order").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *OrderRepository) WithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx, log: r.log}
}

// InsertStatement builds the write that appends order.
// The id is assigned by the store; read it from the statement's LastInsertId.
func (r *OrderRepository) InsertStatement(order *domain.Order) database.Statement {
	return database.Stmt(`
		INSERT INTO orders (ref, account_id, symbol, shares, side, price, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		order.Ref,
		order.AccountID,
		order.Symbol,
		order.Shares,
		string(order.Side),
		order.Price.String(),
		order.ExecutedAt.UnixMilli(),
	)
}

// ListByAccount returns the account's orders in execution order (oldest first)
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.Order, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+ordersColumns+" FROM orders WHERE account_id = ? ORDER BY id ASC",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// GetByRef returns an order by its public reference, or nil when absent
func (r *OrderRepository) GetByRef(ctx context.Context, ref string) (*domain.Order, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+ordersColumns+" FROM orders WHERE ref = ?", ref)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Count returns the number of orders of the account
func (r *OrderRepository) Count(ctx context.Context, accountID int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE account_id = ?", accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scanner) (domain.Order, error) {
	var (
		order      domain.Order
		side       string
		price      string
		executedAt int64
	)
	if err := row.Scan(&order.ID, &order.Ref, &order.AccountID, &order.Symbol, &order.Shares, &side, &price, &executedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return order, err
		}
		return order, fmt.Errorf("failed to scan order: %w", err)
	}

	parsedSide, err := domain.OrderSideFromString(side)
	if err != nil {
		return order, fmt.Errorf("order %d: %w", order.ID, err)
	}
	order.Side = parsedSide

	order.Price, err = decimal.NewFromString(price)
	if err != nil {
		return order, fmt.Errorf("order %d: corrupt price %q: %w", order.ID, price, err)
	}
	order.ExecutedAt = time.UnixMilli(executedAt).UTC()

	return order, nil
}
