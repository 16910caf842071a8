package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfolio-analytics/internal/clients/alphavantage"
	"github.com/aristath/portfolio-analytics/internal/clients/finnhub"
	"github.com/aristath/portfolio-analytics/internal/config"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	"github.com/aristath/portfolio-analytics/internal/modules/optimization"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
	"github.com/aristath/portfolio-analytics/internal/modules/snapshots"
	"github.com/aristath/portfolio-analytics/internal/reliability"
	"github.com/aristath/portfolio-analytics/internal/scheduler"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPingTimeout = 5 * time.Second

// InitializeServices creates clients, the price cache, the fetcher and
// the analytics services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// Market data clients
	container.AlphaVantageClient = alphavantage.NewClient(
		cfg.MarketData.AlphaVantageAPIKey,
		log,
		alphavantage.WithDailyLimit(cfg.MarketData.AlphaVantageDailyLimit),
		alphavantage.WithRequestsPerMinute(cfg.MarketData.AlphaVantageRequestsPerM),
	)

	var secondary marketdata.Provider
	if cfg.MarketData.FinnhubAPIKey != "" {
		container.FinnhubClient = finnhub.NewClient(cfg.MarketData.FinnhubAPIKey, log)
		secondary = marketdata.NewFinnhubProvider(container.FinnhubClient)
	} else {
		log.Warn().Msg("FINNHUB_API_KEY not set, price lookups have no fallback provider")
	}

	cache, err := newPriceCache(container, cfg, log)
	if err != nil {
		return err
	}
	container.PriceCache = cache

	container.PriceFetcher = marketdata.NewFetcher(
		marketdata.NewAlphaVantageProvider(container.AlphaVantageClient),
		secondary,
		cache,
		log,
	)

	// Analytics
	container.ReturnsLoader = returns.NewLoader(container.PriceFetcher, log)
	container.RiskAnalyzer = risk.NewAnalyzer(container.PortfolioRepo, container.ReturnsLoader, log)
	container.OptimizationService = optimization.NewService(
		container.PortfolioRepo,
		container.ReturnsLoader,
		cfg.Analytics.FrontierSamples,
		log,
	)

	policy, err := snapshots.ParseFetchFailurePolicy(cfg.Analytics.FetchFailurePolicy)
	if err != nil {
		return err
	}
	container.Tracker = snapshots.NewTracker(
		container.PortfolioRepo,
		container.SnapshotRepo,
		container.PriceFetcher,
		log,
		snapshots.WithDefaultInvestmentAmount(cfg.Analytics.DefaultInvestmentAmount),
		snapshots.WithFetchFailurePolicy(policy),
	)

	// Backups
	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup storage client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(store, container.PortfolioDB, cfg.DataDir, log)
	}

	container.Scheduler = scheduler.New(log)

	log.Info().Msg("Services initialized")

	return nil
}

// newPriceCache returns a Redis cache when REDIS_ADDR is set, otherwise an
// in-process cache. An unreachable Redis fails startup.
func newPriceCache(container *Container, cfg *config.Config, log zerolog.Logger) (marketdata.PriceCache, error) {
	ttl := cfg.MarketData.PriceCacheTTL

	if !cfg.Redis.Enabled() {
		return marketdata.NewMemoryCache(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	container.RedisClient = client
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis price cache")

	return marketdata.NewRedisCache(client, ttl, log), nil
}
