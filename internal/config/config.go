// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Supported database drivers
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for the ledger database (always absolute)
	DBDriver     string
	LogLevel     string
	Port         int
	DevMode      bool
	StartingCash decimal.Decimal // Cash granted to newly opened accounts
	Quotes       QuoteConfig
	Backup       BackupConfig
}

// QuoteConfig configures the market quote client
type QuoteConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration // Upper bound on a single lookup, enforced by the trading service
	CacheTTL time.Duration
	// StaleMaxAge bounds how old a cached quote may be when served during an API outage; 0 disables the fallback
	StaleMaxAge time.Duration
}

// BackupConfig configures ledger backups to S3-compatible storage
type BackupConfig struct {
	Schedule        string // cron expression; empty disables scheduled backups
	Bucket          string
	Endpoint        string // e.g. Cloudflare R2 account endpoint; empty uses AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int // 0 keeps every archive
}

// Enabled reports whether backups can be uploaded at all.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// LedgerPath returns the path of the ledger database file
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// ClientDataPath returns the path of the quote cache database file
func (c *Config) ClientDataPath() string {
	return filepath.Join(c.DataDir, "client_data.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PAPERLEDGER_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	startingCash, err := decimal.NewFromString(getEnv("STARTING_CASH", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		DBDriver:     getEnv("PAPERLEDGER_DB_DRIVER", DriverModernc),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnvAsInt("GO_PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		StartingCash: startingCash,
		Quotes: QuoteConfig{
			BaseURL:     getEnv("QUOTE_API_URL", "https://cloud.iexapis.com/stable"),
			Token:       getEnv("QUOTE_API_TOKEN", ""),
			Timeout:     time.Duration(getEnvAsInt("QUOTE_TIMEOUT_SECONDS", 10)) * time.Second,
			CacheTTL:    time.Duration(getEnvAsInt("QUOTE_CACHE_TTL_SECONDS", 60)) * time.Second,
			StaleMaxAge: time.Duration(getEnvAsInt("QUOTE_STALE_MAX_AGE_SECONDS", 300)) * time.Second,
		},
		Backup: BackupConfig{
			Schedule:        getEnv("BACKUP_SCHEDULE", ""),
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverModernc, DriverMattn:
	default:
		return fmt.Errorf("unsupported database driver %q (want %q or %q)", c.DBDriver, DriverModernc, DriverMattn)
	}

	if c.Quotes.Timeout <= 0 {
		return fmt.Errorf("quote timeout must be positive, got %s", c.Quotes.Timeout)
	}
	if c.Quotes.CacheTTL < 0 {
		return fmt.Errorf("quote cache TTL must not be negative, got %s", c.Quotes.CacheTTL)
	}
	if c.Quotes.StaleMaxAge < 0 {
		return fmt.Errorf("quote stale max age must not be negative, got %s", c.Quotes.StaleMaxAge)
	}
	if c.StartingCash.IsNegative() {
		return fmt.Errorf("starting cash must not be negative, got %s", c.StartingCash)
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup retention must not be negative, got %d", c.Backup.RetentionDays)
	}
	if c.Backup.Schedule != "" && !c.Backup.Enabled() {
		return fmt.Errorf("BACKUP_SCHEDULE is set but BACKUP_BUCKET is empty")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
