package accounts

import (
	"context"
	"sync"
)

// AccountLocks serializes read-validate-write sequences per account.
// Different accounts never contend; entries are dropped when unused.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	ch   chan struct{}
	refs int
}

// NewAccountLocks creates an empty lock table
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[int64]*accountLock)}
}

// Acquire blocks until the account's lock is held or ctx is done.
// The returned release func is safe to call more than once.
func (l *AccountLocks) Acquire(ctx context.Context, accountID int64) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[accountID]
	if !ok {
		lk = &accountLock{ch: make(chan struct{}, 1)}
		l.locks[accountID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(accountID, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.unref(accountID, lk)
		})
	}, nil
}

// WithLock runs fn while holding the account's lock
func (l *AccountLocks) WithLock(ctx context.Context, accountID int64, fn func() error) error {
	release, err := l.Acquire(ctx, accountID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Len reports how many accounts currently have waiters or holders
func (l *AccountLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *AccountLocks) unref(accountID int64, lk *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, accountID)
	}
}
