package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// backupJobTimeout bounds one backup run including upload and rotation
const backupJobTimeout = 30 * time.Minute

// BackupJob creates a backup and rotates old ones
type BackupJob struct {
	service       *BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new BackupJob
func NewBackupJob(service *BackupService, retentionDays int) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *BackupJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup_database"
}

// Run executes the backup job. A failed rotation is logged; the backup
// itself already succeeded.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupJobTimeout)
	defer cancel()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}

	return nil
}
