package di

import (
	"fmt"

	"github.com/aristath/paperledger/internal/clientdata"
	"github.com/aristath/paperledger/internal/config"
	"github.com/aristath/paperledger/internal/reliability"
	"github.com/aristath/paperledger/internal/scheduler"
	"github.com/rs/zerolog"
)

// Job schedules (standard 5-field cron)
const (
	scheduleClientDataCleanup = "@hourly"
	scheduleWALCheckpoints    = "@every 6h"
	scheduleCoreDatabases     = "0 3 * * *"
	scheduleVacuum            = "0 4 * * 0"
)

type registration struct {
	schedule string
	job      scheduler.Job
}

// RegisterJobs creates the maintenance jobs and adds them to a new scheduler.
// The scheduler is stored on the container but not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	instances := &JobInstances{}

	cleanup := clientdata.NewCleanupJob(container.ClientDataRepo, log)
	instances.ClientDataCleanup = cleanup

	walJob := scheduler.NewCheckWALCheckpointsJob(container.LedgerDB, container.ClientDataDB)
	walJob.SetLogger(log)
	instances.CheckWALCheckpoints = walJob

	integrityJob := scheduler.NewCheckCoreDatabasesJob(container.LedgerDB)
	integrityJob.SetLogger(log)
	instances.CheckCoreDatabases = integrityJob

	vacuum := reliability.NewVacuumJob(log, container.ClientDataDB)
	instances.Vacuum = vacuum

	registrations := []registration{
		{scheduleClientDataCleanup, cleanup},
		{scheduleWALCheckpoints, walJob},
		{scheduleCoreDatabases, integrityJob},
		{scheduleVacuum, vacuum},
	}

	if container.BackupService != nil {
		backup := reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		instances.Backup = backup
		if cfg.Backup.Schedule != "" {
			registrations = append(registrations, registration{cfg.Backup.Schedule, backup})
		}
	}

	for _, reg := range registrations {
		if err := sched.AddJob(reg.schedule, reg.job); err != nil {
			return nil, err
		}
	}

	container.Scheduler = sched
	log.Info().Int("jobs", sched.Len()).Msg("Jobs registered")

	return instances, nil
}
