package scheduler

import (
	"testing"

	"github.com/aristath/paperledger/internal/database"
	testingpkg "github.com/aristath/paperledger/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	assert.Equal(t, "check_wal_checkpoints", NewCheckWALCheckpointsJob().Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	job := NewCheckWALCheckpointsJob(nil, nil)
	job.SetLogger(zerolog.Nop())

	assert.NoError(t, job.Run()) // Should handle nil databases gracefully
}

func TestCheckWALCheckpointsJob_Run(t *testing.T) {
	ledger := testingpkg.NewTestDB(t)
	clientData := testingpkg.NewClientDataDB(t)

	job := NewCheckWALCheckpointsJob(ledger, clientData)
	assert.NoError(t, job.Run())
}

func TestCheckCoreDatabasesJob_Run(t *testing.T) {
	job := NewCheckCoreDatabasesJob(testingpkg.NewTestDB(t), nil)
	job.SetLogger(zerolog.Nop())

	assert.Equal(t, "check_core_databases", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckCoreDatabasesJob_ClosedDatabase(t *testing.T) {
	db := testingpkg.NewTestDB(t)
	closed, err := database.New(database.Config{Path: db.Path(), Name: "ledger"})
	assert.NoError(t, err)
	_ = closed.Close()

	assert.Error(t, NewCheckCoreDatabasesJob(closed).Run())
}
