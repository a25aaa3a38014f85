package domain

import (
	"context"
	"errors"
)

// Error kinds returned by ledger operations. Callers classify with errors.Is.
var (
	// ErrUnknownSymbol indicates the quote provider does not know the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrInvalidQuantity indicates a share count that is not a positive integer.
	ErrInvalidQuantity = errors.New("share count must be a positive integer")
	// ErrInvalidAmount indicates a cash amount that is not strictly positive.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientFunds indicates a buy whose cost exceeds the cash balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoPosition indicates a sell of a symbol the account does not hold.
	ErrNoPosition = errors.New("no position in symbol")
	// ErrInsufficientShares indicates a sell larger than the held position.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrQuoteUnavailable indicates the quote provider failed or timed out; retryable.
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrStorage indicates the ledger store failed; nothing was applied.
	ErrStorage = errors.New("ledger storage failure")
	// ErrInvalidAccountID indicates an account id that is not a positive integer.
	ErrInvalidAccountID = errors.New("invalid account id")
	// ErrAccountNotFound indicates the account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidUsername indicates an empty or malformed username.
	ErrInvalidUsername = errors.New("username is required")
	// ErrAccountExists indicates the username is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrReplayMismatch indicates positions no longer match the order history.
	ErrReplayMismatch = errors.New("positions do not match order history")
)

// StorageError wraps a store failure so it matches both ErrStorage and the cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + ErrStorage.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the underlying driver error.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// NewStorageError returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

var kinds = []error{
	ErrUnknownSymbol, ErrInvalidQuantity, ErrInvalidAmount, ErrInsufficientFunds,
	ErrNoPosition, ErrInsufficientShares, ErrQuoteUnavailable, ErrStorage,
	ErrAccountNotFound, ErrInvalidAccountID, ErrInvalidUsername, ErrAccountExists, ErrReplayMismatch,
	context.Canceled, context.DeadlineExceeded,
}

// Classify returns err unchanged when it already carries a ledger error kind
// or a context error. Anything else is reported as a storage failure.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return NewStorageError(op, err)
}
