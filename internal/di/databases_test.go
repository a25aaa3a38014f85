package di

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/paperledger/internal/config"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:      t.TempDir(),
		DBDriver:     config.DriverModernc,
		StartingCash: decimal.NewFromInt(10000),
		Quotes: config.QuoteConfig{
			BaseURL:  "http://127.0.0.1:0",
			Timeout:  time.Second,
			CacheTTL: time.Minute,
		},
		Backup: config.BackupConfig{Region: "auto", RetentionDays: 30},
	}
}

func TestInitializeDatabases(t *testing.T) {
	cfg := testConfig(t)

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.LedgerDB)
	assert.NotNil(t, container.ClientDataDB)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "ledger.db"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, "client_data.db"))

	// Schemas are applied
	for _, table := range []string{"accounts", "positions", "orders"} {
		_, err := container.LedgerDB.Conn().Exec("SELECT COUNT(*) FROM " + table)
		assert.NoError(t, err, table)
	}
	_, err = container.ClientDataDB.Conn().Exec("SELECT COUNT(*) FROM quote_cache")
	assert.NoError(t, err)
}

func TestInitializeDatabases_MattnDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = config.DriverMattn

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.Equal(t, config.DriverMattn, container.LedgerDB.Driver())
}

func TestInitializeDatabases_UnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "postgres"

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
}
