// Package testing provides testing utilities and helpers for paperledger.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/paperledger/internal/database"
)

// NewTestDB creates a temp-file ledger database with the schema applied.
// A file (not :memory:) is used so every pooled connection sees the same data.
// The database is closed automatically when the test finishes.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()
	return newTestDB(t, "ledger", database.ProfileLedger)
}

// NewClientDataDB creates a temp-file client data (quote cache) database.
func NewClientDataDB(t *testing.T) *database.DB {
	t.Helper()
	return newTestDB(t, "client_data", database.ProfileCache)
}

func newTestDB(t *testing.T, name string, profile database.DatabaseProfile) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db
}
