package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/rs/zerolog"
)

// snapshotJobTimeout bounds one scheduled run across all portfolios
const snapshotJobTimeout = 30 * time.Minute

// SnapshotJob snapshots every stored portfolio
type SnapshotJob struct {
	tracker    *Tracker
	portfolios domain.PortfolioReader
	log        zerolog.Logger
}

// NewSnapshotJob creates a new SnapshotJob
func NewSnapshotJob(tracker *Tracker, portfolios domain.PortfolioReader) *SnapshotJob {
	return &SnapshotJob{
		tracker:    tracker,
		portfolios: portfolios,
		log:        zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *SnapshotJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "portfolio_snapshots"
}

// Run executes the snapshot job. A portfolio that fails is logged and
// skipped.
func (j *SnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotJobTimeout)
	defer cancel()

	portfolios, err := j.portfolios.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list portfolios: %w", err)
	}

	created, failed := 0, 0
	for _, p := range portfolios {
		if _, err := j.tracker.CreateSnapshot(ctx, p.ID, nil); err != nil {
			j.log.Warn().
				Err(err).
				Int64("portfolio_id", p.ID).
				Str("portfolio", p.Name).
				Msg("Failed to snapshot portfolio")
			failed++
			continue
		}
		created++
	}

	j.log.Info().
		Int("created", created).
		Int("failed", failed).
		Msg("Portfolio snapshots completed")

	return nil
}
