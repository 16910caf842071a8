package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/rs/zerolog"
)

// walFramesWarnThreshold is the WAL size, in frames, above which a
// checkpoint that could not complete is reported
const walFramesWarnThreshold = 1000

// IntegrityCheckJob verifies integrity of the SQLite database
type IntegrityCheckJob struct {
	log zerolog.Logger
	db  *database.DB
}

// NewIntegrityCheckJob creates a new IntegrityCheckJob
func NewIntegrityCheckJob(db *database.DB) *IntegrityCheckJob {
	return &IntegrityCheckJob{
		log: zerolog.Nop(),
		db:  db,
	}
}

// SetLogger sets the logger for the job
func (j *IntegrityCheckJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *IntegrityCheckJob) Name() string {
	return "check_database_integrity"
}

// Run executes the integrity check job
func (j *IntegrityCheckJob) Run() error {
	if j.db == nil {
		j.log.Warn().Msg("Database not initialized, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		// Corruption cannot be repaired automatically
		j.log.Error().
			Err(err).
			Str("database", j.db.Name()).
			Msg("Database integrity check failed")
		return fmt.Errorf("database %s is corrupted: %w", j.db.Name(), err)
	}

	j.log.Info().Str("database", j.db.Name()).Msg("Database integrity check passed")
	return nil
}

// WALCheckpointJob runs a passive WAL checkpoint and reports WAL growth
type WALCheckpointJob struct {
	log zerolog.Logger
	db  *database.DB
}

// NewWALCheckpointJob creates a new WALCheckpointJob
func NewWALCheckpointJob(db *database.DB) *WALCheckpointJob {
	return &WALCheckpointJob{
		log: zerolog.Nop(),
		db:  db,
	}
}

// SetLogger sets the logger for the job
func (j *WALCheckpointJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "check_wal_checkpoint"
}

// Run executes the WAL checkpoint job
func (j *WALCheckpointJob) Run() error {
	if j.db == nil {
		return nil
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		return fmt.Errorf("WAL checkpoint failed for %s: %w", j.db.Name(), err)
	}

	if frames > walFramesWarnThreshold && checkpointed < frames {
		j.log.Warn().
			Str("database", j.db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, checkpoint may be needed")
		return nil
	}

	j.log.Debug().
		Str("database", j.db.Name()).
		Int("wal_frames", frames).
		Int("checkpointed", checkpointed).
		Msg("WAL checkpoint completed")
	return nil
}
