package di

import (
	"context"
	"fmt"

	"github.com/aristath/paperledger/internal/clientdata"
	"github.com/aristath/paperledger/internal/clients/quotes"
	"github.com/aristath/paperledger/internal/config"
	"github.com/aristath/paperledger/internal/domain"
	"github.com/aristath/paperledger/internal/modules/accounts"
	"github.com/aristath/paperledger/internal/modules/portfolio"
	"github.com/aristath/paperledger/internal/modules/trading"
	"github.com/aristath/paperledger/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates clients and services on top of the container's databases.
// provider overrides the HTTP quote client when non-nil.
func InitializeServices(container *Container, cfg *config.Config, provider domain.QuoteProvider, log zerolog.Logger) error {
	if container == nil || container.LedgerDB == nil || container.ClientDataDB == nil {
		return fmt.Errorf("container databases must be initialized first")
	}

	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	if provider == nil {
		container.QuoteClient = quotes.NewClient(
			cfg.Quotes.BaseURL,
			cfg.Quotes.Token,
			cfg.Quotes.Timeout,
			container.ClientDataRepo,
			cfg.Quotes.CacheTTL,
			cfg.Quotes.StaleMaxAge,
			log,
		)
		provider = container.QuoteClient
	}

	ledger := container.LedgerDB.Conn()
	container.AccountLocks = accounts.NewAccountLocks()
	container.AccountService = accounts.NewAccountService(ledger, container.AccountLocks, log)
	container.PortfolioService = portfolio.NewPortfolioService(ledger, provider, cfg.Quotes.Timeout, log)
	container.TradingService = trading.NewTradingService(ledger, container.AccountLocks, provider, cfg.Quotes.Timeout, log)

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(context.Background(), reliability.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(store, cfg.DataDir, log, container.LedgerDB)
	}

	log.Info().Bool("backups", container.BackupService != nil).Msg("Services initialized")
	return nil
}
