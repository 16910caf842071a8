package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/portfolio-analytics/internal/config"
	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens portfolio.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// portfolio.db - portfolios, allocations and performance snapshots
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileDurable,
		Name:    "portfolio",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize portfolio database: %w", err)
	}

	if err := portfolioDB.Migrate(); err != nil {
		portfolioDB.Close()
		return nil, fmt.Errorf("failed to migrate portfolio database: %w", err)
	}
	container.PortfolioDB = portfolioDB

	log.Info().Str("path", portfolioDB.Path()).Msg("Database initialized")

	return container, nil
}
