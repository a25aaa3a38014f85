package clientdata

import (
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())

	now := time.Now()
	_, err := db.Exec("INSERT INTO quote_cache (symbol, data, expires_at) VALUES (?, ?, ?), (?, ?, ?)",
		"OLD", []byte{0x80}, now.Add(-2*StaleQuoteRetention).Unix(),
		"NEW", []byte{0x80}, now.Add(time.Hour).Unix(),
	)
	require.NoError(t, err)

	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM quote_cache").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCleanupJobRun_ClosedDB(t *testing.T) {
	db := setupTestDB(t)
	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	db.Close()

	assert.Error(t, job.Run())
}
