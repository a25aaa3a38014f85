package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of *sql.DB and *sql.Tx used by repositories, so the
// same repository code runs inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Statement is one parameterized write in an atomic batch
type Statement struct {
	Query string
	Args  []interface{}
}

// Stmt builds a Statement
func Stmt(query string, args ...interface{}) Statement {
	return Statement{Query: query, Args: args}
}

// WithTransaction executes a function within a database transaction.
// It handles begin, commit, rollback, panic recovery, and error wrapping automatically.
// If the function returns an error or panics, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return err
}

// ExecStatements runs stmts in order on q, stopping at the first failure.
// Results are returned in statement order.
func ExecStatements(ctx context.Context, q Querier, stmts []Statement) ([]sql.Result, error) {
	results := make([]sql.Result, 0, len(stmts))
	for i, stmt := range stmts {
		res, err := q.ExecContext(ctx, stmt.Query, stmt.Args...)
		if err != nil {
			return nil, fmt.Errorf("statement %d of %d failed: %w", i+1, len(stmts), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// RunAtomic applies stmts all-or-nothing in a single transaction
func RunAtomic(ctx context.Context, db *sql.DB, stmts ...Statement) ([]sql.Result, error) {
	var results []sql.Result
	err := WithTransaction(ctx, db, func(tx *sql.Tx) error {
		var err error
		results, err = ExecStatements(ctx, tx, stmts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
