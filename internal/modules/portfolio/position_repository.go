// Package portfolio maintains per-account positions and values them against live quotes.
package portfolio

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
)

// PositionRepositoryInterface defines the read side of the positions table
type PositionRepositoryInterface interface {
	// Get returns the position, or nil when the account holds none of symbol
	Get(ctx context.Context, accountID int64, symbol string) (*domain.Position, error)

	// ListByAccount returns every position of the account, ordered by symbol
	ListByAccount(ctx context.Context, accountID int64) ([]domain.Position, error)
}

// Compile-time check that PositionRepository implements PositionRepositoryInterface
var _ PositionRepositoryInterface = (*PositionRepository)(nil)

const positionsColumns = `account_id, symbol, shares, updated_at`

// PositionRepository handles position database operations.
// Reads are open to everyone; the statement builders are only meant for the
// trading service, which keeps positions equal to the replayed order history.
type PositionRepository struct {
	q   database.Querier
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(q database.Querier, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		q:   q,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *PositionRepository) WithTx(tx *sql.Tx) *PositionRepository {
	return &PositionRepository{q: tx, log: r.log}
}

// Get returns a position by account and symbol
func (r *PositionRepository) Get(ctx context.Context, accountID int64, symbol string) (*domain.Position, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+positionsColumns+" FROM positions WHERE account_id = ? AND symbol = ?",
		accountID, strings.ToUpper(symbol),
	)

	var (
		pos       domain.Position
		updatedAt int64
	)
	err := row.Scan(&pos.AccountID, &pos.Symbol, &pos.Shares, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s for account %d: %w", symbol, accountID, err)
	}
	pos.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return &pos, nil
}

// ListByAccount returns all positions of an account
func (r *PositionRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.Position, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+positionsColumns+" FROM positions WHERE account_id = ? ORDER BY symbol",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]domain.Position, 0)
	for rows.Next() {
		var (
			pos       domain.Position
			updatedAt int64
		)
		if err := rows.Scan(&pos.AccountID, &pos.Symbol, &pos.Shares, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// UpsertStatement builds the write that sets a position to shares (> 0)
func (r *PositionRepository) UpsertStatement(accountID int64, symbol string, shares int64, at time.Time) database.Statement {
	return database.Stmt(`
		INSERT INTO positions (account_id, symbol, shares, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, symbol) DO UPDATE SET
			shares = excluded.shares,
			updated_at = excluded.updated_at
	`, accountID, symbol, shares, at.UnixMilli())
}

// DeleteStatement builds the write that removes a fully sold position
func (r *PositionRepository) DeleteStatement(accountID int64, symbol string) database.Statement {
	return database.Stmt(`DELETE FROM positions WHERE account_id = ? AND symbol = ?`, accountID, symbol)
}
