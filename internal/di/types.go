// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/paperledger/internal/clientdata"
	"github.com/aristath/paperledger/internal/clients/quotes"
	"github.com/aristath/paperledger/internal/database"
	"github.com/aristath/paperledger/internal/modules/accounts"
	"github.com/aristath/paperledger/internal/modules/portfolio"
	"github.com/aristath/paperledger/internal/modules/trading"
	"github.com/aristath/paperledger/internal/reliability"
	"github.com/aristath/paperledger/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server and CLI commands.
type Container struct {
	// Databases
	LedgerDB     *database.DB // accounts, positions, orders
	ClientDataDB *database.DB // quote cache

	// Clients
	QuoteClient    *quotes.Client
	ClientDataRepo *clientdata.Repository

	// Services
	AccountLocks     *accounts.AccountLocks // shared by every service that writes an account
	AccountService   *accounts.AccountService
	PortfolioService *portfolio.PortfolioService
	TradingService   *trading.TradingService
	BackupService    *reliability.BackupService // nil when no bucket is configured

	Scheduler *scheduler.Scheduler
}

// JobInstances holds job references for manual triggering
type JobInstances struct {
	ClientDataCleanup   scheduler.Job
	CheckWALCheckpoints scheduler.Job
	CheckCoreDatabases  scheduler.Job
	Vacuum              scheduler.Job
	Backup              scheduler.Job // nil when backups are disabled
}

// Close stops the scheduler and closes both databases
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}

	var firstErr error
	for _, db := range []*database.DB{c.LedgerDB, c.ClientDataDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
