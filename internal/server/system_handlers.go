package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/paperledger/internal/database"
	"github.com/aristath/paperledger/internal/di"
	"github.com/aristath/paperledger/internal/reliability"
	"github.com/aristath/paperledger/internal/scheduler"
	"github.com/aristath/paperledger/internal/utils"
)

// SystemHandlers serves operational endpoints: database stats, jobs and backups
type SystemHandlers struct {
	log       zerolog.Logger
	databases []*database.DB
	scheduler *scheduler.Scheduler
	backups   *reliability.BackupService
	jobs      map[string]scheduler.Job
	dataDir   string
}

// DBInfo describes one database file
type DBInfo struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
	Rows   int64   `json:"rows"`
}

// DiskInfo describes the filesystem holding the data directory
type DiskInfo struct {
	Path        string  `json:"path"`
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// DatabaseStatsResponse is returned by HandleDatabaseStats
type DatabaseStatsResponse struct {
	Databases   []DBInfo  `json:"databases"`
	TotalSizeMB float64   `json:"total_size_mb"`
	Disk        *DiskInfo `json:"disk,omitempty"`
	LastChecked string    `json:"last_checked"`
}

// JobInfo describes a registered job
type JobInfo struct {
	Name string `json:"name"`
}

// rowCountTables lists the tables counted per database
var rowCountTables = map[string][]string{
	"ledger":      {"accounts", "positions", "orders"},
	"client_data": {"quote_cache"},
}

// NewSystemHandlers creates system handlers. jobs may be nil.
func NewSystemHandlers(log zerolog.Logger, container *di.Container, jobs *di.JobInstances) *SystemHandlers {
	h := &SystemHandlers{
		log:  log.With().Str("handler", "system").Logger(),
		jobs: make(map[string]scheduler.Job),
	}

	if container != nil {
		for _, db := range []*database.DB{container.LedgerDB, container.ClientDataDB} {
			if db != nil {
				h.databases = append(h.databases, db)
			}
		}
		h.scheduler = container.Scheduler
		h.backups = container.BackupService
		if container.LedgerDB != nil {
			h.dataDir = filepath.Dir(container.LedgerDB.Path())
		}
	}

	if jobs != nil {
		for _, job := range []scheduler.Job{
			jobs.ClientDataCleanup,
			jobs.CheckWALCheckpoints,
			jobs.CheckCoreDatabases,
			jobs.Vacuum,
			jobs.Backup,
		} {
			if job != nil {
				h.jobs[job.Name()] = job
			}
		}
	}

	return h
}

// HandleDatabaseStats returns file size and row counts for each database
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := DatabaseStatsResponse{
		Databases:   make([]DBInfo, 0, len(h.databases)),
		LastChecked: time.Now().Format(time.RFC3339),
	}

	for _, db := range h.databases {
		info := DBInfo{Name: db.Name(), Path: db.Path()}
		if stat, err := os.Stat(db.Path()); err == nil {
			info.SizeMB = float64(stat.Size()) / 1024 / 1024
		}

		for _, table := range rowCountTables[db.Name()] {
			var n int64
			if err := db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
				h.log.Error().Err(err).Str("database", db.Name()).Str("table", table).Msg("Failed to count rows")
				utils.WriteJSON(w, h.log, http.StatusInternalServerError, utils.ErrorResponse{Error: "internal error", Kind: "storage"})
				return
			}
			info.Rows += n
		}

		response.TotalSizeMB += info.SizeMB
		response.Databases = append(response.Databases, info)
	}

	response.Disk = h.getDiskInfo()

	utils.WriteJSON(w, h.log, http.StatusOK, response)
}

// getDiskInfo reports free space on the data directory's filesystem, nil when unavailable
func (h *SystemHandlers) getDiskInfo() *DiskInfo {
	if h.dataDir == "" {
		return nil
	}

	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Str("path", h.dataDir).Msg("Failed to get disk usage")
		return nil
	}

	return &DiskInfo{
		Path:        h.dataDir,
		TotalMB:     float64(usage.Total) / 1024 / 1024,
		FreeMB:      float64(usage.Free) / 1024 / 1024,
		UsedPercent: usage.UsedPercent,
	}
}

// HandleJobsStatus lists the jobs that can be triggered manually
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := make([]JobInfo, 0, len(h.jobs))
	for name := range h.jobs {
		jobs = append(jobs, JobInfo{Name: name})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	utils.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// HandleTriggerJob runs a job immediately and waits for it to finish
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		utils.WriteJSON(w, h.log, http.StatusNotFound, utils.ErrorResponse{Error: "unknown job " + name, Kind: "unknown_job"})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job triggered")

	var err error
	if h.scheduler != nil {
		err = h.scheduler.RunNow(job)
	} else {
		err = job.Run()
	}
	if err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		utils.WriteJSON(w, h.log, http.StatusInternalServerError, utils.ErrorResponse{Error: "job failed", Kind: "job_failed"})
		return
	}

	utils.WriteJSON(w, h.log, http.StatusOK, map[string]string{
		"status": "success",
		"job":    name,
	})
}

// HandleListBackups lists stored backup archives, newest first
// GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		utils.WriteJSON(w, h.log, http.StatusNotFound, utils.ErrorResponse{Error: "backups are not configured", Kind: "backups_disabled"})
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		utils.WriteJSON(w, h.log, http.StatusBadGateway, utils.ErrorResponse{Error: "failed to list backups", Kind: "backup_store"})
		return
	}

	utils.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	})
}
