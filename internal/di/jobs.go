package di

import (
	"fmt"

	"github.com/aristath/portfolio-analytics/internal/config"
	"github.com/aristath/portfolio-analytics/internal/modules/snapshots"
	"github.com/aristath/portfolio-analytics/internal/reliability"
	"github.com/aristath/portfolio-analytics/internal/scheduler"
	"github.com/rs/zerolog"
)

// Fixed maintenance schedules (seconds field first, UTC)
const (
	IntegrityCheckSchedule = "0 30 2 * * *"
	WALCheckpointSchedule  = "0 0 * * * *"
	MaintenanceSchedule    = "0 0 4 * * SUN"
)

// RegisterJobs creates the jobs and adds them to the container's scheduler.
// The snapshot job is skipped when SNAPSHOT_SCHEDULE is empty, the backup
// job when no bucket is configured.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{}
	sched := container.Scheduler

	if cfg.Analytics.SnapshotSchedule != "" {
		job := snapshots.NewSnapshotJob(container.Tracker, container.PortfolioRepo)
		job.SetLogger(log)
		if err := sched.AddJob(cfg.Analytics.SnapshotSchedule, job); err != nil {
			return nil, err
		}
		instances.Snapshot = job
	} else {
		log.Info().Msg("SNAPSHOT_SCHEDULE is empty, scheduled snapshots disabled")
	}

	if container.BackupService != nil {
		job := reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays)
		job.SetLogger(log)
		if err := sched.AddJob(cfg.Backup.Schedule, job); err != nil {
			return nil, err
		}
		instances.Backup = job
	}

	integrity := scheduler.NewIntegrityCheckJob(container.PortfolioDB)
	integrity.SetLogger(log)
	if err := sched.AddJob(IntegrityCheckSchedule, integrity); err != nil {
		return nil, err
	}
	instances.IntegrityCheck = integrity

	walCheckpoint := scheduler.NewWALCheckpointJob(container.PortfolioDB)
	walCheckpoint.SetLogger(log)
	if err := sched.AddJob(WALCheckpointSchedule, walCheckpoint); err != nil {
		return nil, err
	}
	instances.WALCheckpoint = walCheckpoint

	maintenance := reliability.NewMaintenanceJob(container.PortfolioDB, cfg.DataDir)
	maintenance.SetLogger(log)
	if err := sched.AddJob(MaintenanceSchedule, maintenance); err != nil {
		return nil, err
	}
	instances.Maintenance = maintenance

	log.Info().Int("jobs", len(sched.Jobs())).Msg("Jobs registered")

	return instances, nil
}
