package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/aristath/portfolio-analytics/internal/reliability"
	"github.com/aristath/portfolio-analytics/internal/scheduler"
	"github.com/aristath/portfolio-analytics/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const bytesPerGB = 1024 * 1024 * 1024

var errBackupsDisabled = errors.New("backups are not configured")

// JobLister reports the scheduled jobs
type JobLister interface {
	Jobs() []scheduler.JobStatus
}

// BackupRunner creates and lists database backups
type BackupRunner interface {
	CreateAndUploadBackup(ctx context.Context) (*reliability.BackupInfo, error)
	ListBackups(ctx context.Context) ([]reliability.BackupInfo, error)
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status         string                `json:"status"`
	UptimeSeconds  int64                 `json:"uptime_seconds"`
	CPUPercent     float64               `json:"cpu_percent"`
	MemoryPercent  float64               `json:"memory_percent"`
	Disk           *DiskStatus           `json:"disk,omitempty"`
	Database       *DatabaseStatus       `json:"database,omitempty"`
	Jobs           []scheduler.JobStatus `json:"jobs"`
	BackupsEnabled bool                  `json:"backups_enabled"`
}

// DiskStatus describes the filesystem holding the data directory
type DiskStatus struct {
	Path        string  `json:"path"`
	TotalGB     float64 `json:"total_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

// DatabaseStatus describes portfolio.db
type DatabaseStatus struct {
	Name          string  `json:"name"`
	Healthy       bool    `json:"healthy"`
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	FreelistCount int64   `json:"freelist_count"`
}

// SystemHandlers handles system monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	db          *database.DB
	jobs        JobLister
	backups     BackupRunner // nil when backups are disabled

	cpuPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	diskUsage     func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// NewSystemHandlers creates a new system handlers instance.
// jobs and backups may be nil.
func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB, jobs JobLister, backups BackupRunner) *SystemHandlers {
	return &SystemHandlers{
		log:           log.With().Str("handler", "system").Logger(),
		dataDir:       dataDir,
		startupTime:   time.Now(),
		db:            db,
		jobs:          jobs,
		backups:       backups,
		cpuPercent:    cpu.PercentWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		diskUsage:     disk.UsageWithContext,
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/jobs", h.HandleJobsStatus)
		r.Post("/backup", h.HandleTriggerBackup)
		r.Get("/backups", h.HandleListBackups)
	})
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cpuPercent, memPercent := h.getSystemStats(ctx)

	response := SystemStatusResponse{
		Status:         "healthy",
		UptimeSeconds:  int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:     cpuPercent,
		MemoryPercent:  memPercent,
		Disk:           h.getDiskStatus(ctx),
		Jobs:           h.jobStatuses(),
		BackupsEnabled: h.backups != nil,
	}

	if h.db != nil {
		response.Database = h.getDatabaseStatus(ctx)
		if !response.Database.Healthy {
			response.Status = "degraded"
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(response), h.log)
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.Envelope(h.jobStatuses()), h.log)
}

// HandleTriggerBackup handles POST /api/system/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": errBackupsDisabled.Error()}, h.log)
		return
	}

	info, err := h.backups.CreateAndUploadBackup(r.Context())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	h.log.Info().Str("filename", info.Filename).Msg("Manual backup completed")
	utils.WriteJSON(w, http.StatusCreated, utils.Envelope(info), h.log)
}

// HandleListBackups handles GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": errBackupsDisabled.Error()}, h.log)
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(backups), h.log)
}

func (h *SystemHandlers) jobStatuses() []scheduler.JobStatus {
	if h.jobs == nil {
		return []scheduler.JobStatus{}
	}
	return h.jobs.Jobs()
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats(ctx context.Context) (float64, float64) {
	cpuPercent, err := h.cpuPercent(ctx, 100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := h.virtualMemory(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) getDiskStatus(ctx context.Context) *DiskStatus {
	usage, err := h.diskUsage(ctx, h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get disk usage")
		return nil
	}

	return &DiskStatus{
		Path:        h.dataDir,
		TotalGB:     float64(usage.Total) / bytesPerGB,
		FreeGB:      float64(usage.Free) / bytesPerGB,
		UsedPercent: usage.UsedPercent,
	}
}

func (h *SystemHandlers) getDatabaseStatus(ctx context.Context) *DatabaseStatus {
	status := &DatabaseStatus{
		Name:    h.db.Name(),
		Healthy: true,
	}

	if err := h.db.QuickCheck(ctx); err != nil {
		h.log.Error().Err(err).Msg("Database quick check failed")
		status.Healthy = false
	}

	stats, err := h.db.GetStats()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database stats")
		return status
	}

	status.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
	status.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
	status.PageCount = stats.PageCount
	status.FreelistCount = stats.FreelistCount

	return status
}
