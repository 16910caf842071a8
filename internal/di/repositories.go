package di

import (
	"github.com/aristath/portfolio-analytics/internal/modules/portfolio"
	"github.com/aristath/portfolio-analytics/internal/modules/snapshots"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories backed by portfolio.db
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	conn := container.PortfolioDB.Conn()

	container.PortfolioRepo = portfolio.NewRepository(conn, log)
	container.SnapshotRepo = snapshots.NewRepository(conn, log)

	log.Info().Msg("Repositories initialized")

	return nil
}
