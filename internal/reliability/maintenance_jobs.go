package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/paperledger/internal/database"
	"github.com/rs/zerolog"
)

// BackupJob uploads a fresh archive and rotates old ones
type BackupJob struct {
	service       *BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "ledger_backup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "ledger_backup"
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	// A failed rotation leaves extra archives behind, the upload already succeeded
	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}

// VacuumJob compacts databases that accumulate deleted rows
type VacuumJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewVacuumJob creates a new vacuum job
func NewVacuumJob(log zerolog.Logger, databases ...*database.DB) *VacuumJob {
	return &VacuumJob{
		databases: databases,
		log:       log.With().Str("job", "vacuum").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *VacuumJob) Name() string {
	return "vacuum"
}

// Run executes the vacuum job. Failures on one database do not stop the rest.
func (j *VacuumJob) Run() error {
	j.log.Info().Msg("Starting vacuum")
	startTime := time.Now()

	failed := 0
	for _, db := range j.databases {
		if err := j.vacuumDatabase(db); err != nil {
			j.log.Error().Str("database", db.Name()).Err(err).Msg("VACUUM failed")
			failed++
		}
	}

	j.log.Info().
		Int("failed", failed).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Vacuum completed")

	if failed > 0 {
		return fmt.Errorf("vacuum failed for %d of %d databases", failed, len(j.databases))
	}
	return nil
}

func (j *VacuumJob) vacuumDatabase(db *database.DB) error {
	sizeBefore, err := databaseSize(db)
	if err != nil {
		return err
	}

	if _, err := db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	sizeAfter, err := databaseSize(db)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("database", db.Name()).
		Int64("size_before_bytes", sizeBefore).
		Int64("size_after_bytes", sizeAfter).
		Int64("reclaimed_bytes", sizeBefore-sizeAfter).
		Msg("VACUUM completed")

	return nil
}

func databaseSize(db *database.DB) (int64, error) {
	var pageCount, pageSize int64
	if err := db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to read page_count: %w", err)
	}
	if err := db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to read page_size: %w", err)
	}
	return pageCount * pageSize, nil
}
