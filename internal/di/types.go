// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/portfolio-analytics/internal/clients/alphavantage"
	"github.com/aristath/portfolio-analytics/internal/clients/finnhub"
	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	"github.com/aristath/portfolio-analytics/internal/modules/optimization"
	"github.com/aristath/portfolio-analytics/internal/modules/portfolio"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
	"github.com/aristath/portfolio-analytics/internal/modules/snapshots"
	"github.com/aristath/portfolio-analytics/internal/reliability"
	"github.com/aristath/portfolio-analytics/internal/scheduler"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	// Database
	PortfolioDB *database.DB

	// Repositories
	PortfolioRepo *portfolio.Repository
	SnapshotRepo  *snapshots.Repository

	// Clients
	AlphaVantageClient *alphavantage.Client
	FinnhubClient      *finnhub.Client
	RedisClient        *redis.Client // nil when the memory cache is used

	// Market data
	PriceCache   marketdata.PriceCache
	PriceFetcher *marketdata.Fetcher

	// Services
	ReturnsLoader       *returns.Loader
	RiskAnalyzer        *risk.Analyzer
	OptimizationService *optimization.Service
	Tracker             *snapshots.Tracker
	BackupService       *reliability.BackupService // nil when backups are not configured

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the scheduled jobs. Jobs whose feature is disabled
// are nil.
type JobInstances struct {
	Snapshot       *snapshots.SnapshotJob
	Backup         *reliability.BackupJob
	IntegrityCheck *scheduler.IntegrityCheckJob
	WALCheckpoint  *scheduler.WALCheckpointJob
	Maintenance    *reliability.MaintenanceJob
}

// Close releases the database and the Redis connection
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.PortfolioDB != nil {
		return c.PortfolioDB.Close()
	}
	return nil
}
