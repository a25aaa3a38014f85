package di

import (
	"fmt"

	"github.com/aristath/paperledger/internal/config"
	"github.com/aristath/paperledger/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens ledger.db and client_data.db and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// ledger.db - accounts, positions, orders. Maximum durability.
	ledgerDB, err := database.New(database.Config{
		Path:    cfg.LedgerPath(),
		Driver:  cfg.DBDriver,
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	// client_data.db - quote cache, safe to lose
	clientDataDB, err := database.New(database.Config{
		Path:    cfg.ClientDataPath(),
		Driver:  cfg.DBDriver,
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		ledgerDB.Close()
		return nil, fmt.Errorf("failed to initialize client_data database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	for _, db := range []*database.DB{ledgerDB, clientDataDB} {
		if err := db.Migrate(); err != nil {
			ledgerDB.Close()
			clientDataDB.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("driver", ledgerDB.Driver()).
		Str("ledger", ledgerDB.Path()).
		Str("client_data", clientDataDB.Path()).
		Msg("Databases initialized")

	return container, nil
}
