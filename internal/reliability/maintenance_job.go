package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	// criticalFreeBytes halts maintenance: VACUUM needs room for a full copy
	criticalFreeBytes = 500 * 1024 * 1024
	// lowFreeBytes only warns
	lowFreeBytes = 5 * 1024 * 1024 * 1024
)

// MaintenanceJob checks free disk space, then VACUUMs and checkpoints the database
type MaintenanceJob struct {
	db      *database.DB
	dataDir string
	usage   func(ctx context.Context, path string) (*disk.UsageStat, error)
	log     zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(db *database.DB, dataDir string) *MaintenanceJob {
	return &MaintenanceJob{
		db:      db,
		dataDir: dataDir,
		usage:   disk.UsageWithContext,
		log:     zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *MaintenanceJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	j.log.Info().Msg("Starting database maintenance")
	startTime := time.Now()

	if err := j.checkDiskSpace(ctx); err != nil {
		return err
	}

	if err := j.vacuum(ctx); err != nil {
		return err
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Database maintenance completed successfully")
	return nil
}

func (j *MaintenanceJob) checkDiskSpace(ctx context.Context) error {
	usage, err := j.usage(ctx, j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read disk usage: %w", err)
	}

	j.log.Debug().Uint64("free_bytes", usage.Free).Float64("used_percent", usage.UsedPercent).Msg("Disk space check")

	if usage.Free < criticalFreeBytes {
		j.log.Error().Uint64("free_bytes", usage.Free).Msg("Insufficient disk space for maintenance")
		return fmt.Errorf("only %d bytes free in %s, skipping maintenance", usage.Free, j.dataDir)
	}
	if usage.Free < lowFreeBytes {
		j.log.Warn().Uint64("free_bytes", usage.Free).Msg("Disk space running low")
	}
	return nil
}

func (j *MaintenanceJob) vacuum(ctx context.Context) error {
	before, err := j.db.GetStats()
	if err != nil {
		return err
	}

	if _, err := j.db.Conn().ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	after, err := j.db.GetStats()
	if err != nil {
		return err
	}

	j.log.Info().
		Int64("pages_before", before.PageCount).
		Int64("pages_after", after.PageCount).
		Int64("bytes_reclaimed", (before.PageCount-after.PageCount)*before.PageSize).
		Msg("VACUUM completed")
	return nil
}
