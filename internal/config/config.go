// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the database and backups (always absolute)
	LogLevel string
	LogFile  string
	LogMaxMB int
	Port     int
	DevMode  bool

	MarketData MarketDataConfig
	Redis      RedisConfig
	Analytics  AnalyticsConfig
	Backup     BackupConfig
}

// MarketDataConfig holds provider credentials and cache settings
type MarketDataConfig struct {
	AlphaVantageAPIKey       string
	AlphaVantageDailyLimit   int
	AlphaVantageRequestsPerM int
	FinnhubAPIKey            string
	PriceCacheTTL            time.Duration
}

// RedisConfig selects the shared price cache. An empty Addr keeps the
// cache in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis price cache is configured
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// AnalyticsConfig holds defaults for risk, frontier and snapshot operations
type AnalyticsConfig struct {
	DefaultInvestmentAmount decimal.Decimal
	FetchFailurePolicy      string // zero, exclude, abort
	SnapshotSchedule        string // cron with seconds; empty disables
	FrontierSamples         int
}

// BackupConfig holds S3-compatible object storage settings for database backups
type BackupConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string
	RetentionDays   int
}

// Enabled reports whether backups are configured
func (c BackupConfig) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	investment, err := decimal.NewFromString(getEnv("DEFAULT_INVESTMENT_AMOUNT", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_INVESTMENT_AMOUNT: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
		LogMaxMB: getEnvAsInt("LOG_MAX_SIZE_MB", 50),
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		MarketData: MarketDataConfig{
			AlphaVantageAPIKey:       getEnv("ALPHA_VANTAGE_API_KEY", "demo"),
			AlphaVantageDailyLimit:   getEnvAsInt("ALPHA_VANTAGE_DAILY_LIMIT", 25),
			AlphaVantageRequestsPerM: getEnvAsInt("ALPHA_VANTAGE_REQUESTS_PER_MINUTE", 5),
			FinnhubAPIKey:            getEnv("FINNHUB_API_KEY", ""),
			PriceCacheTTL:            getEnvAsDuration("PRICE_CACHE_TTL", 15*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Analytics: AnalyticsConfig{
			DefaultInvestmentAmount: investment,
			FetchFailurePolicy:      strings.ToLower(getEnv("SNAPSHOT_FETCH_FAILURE_POLICY", "zero")),
			SnapshotSchedule:        os.Getenv("SNAPSHOT_SCHEDULE"),
			FrontierSamples:         getEnvAsInt("FRONTIER_SAMPLES", 1000),
		},
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if _, ok := os.LookupEnv("SNAPSHOT_SCHEDULE"); !ok {
		cfg.Analytics.SnapshotSchedule = "0 0 22 * * MON-FRI"
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.MarketData.PriceCacheTTL <= 0 {
		return fmt.Errorf("PRICE_CACHE_TTL must be positive")
	}
	if c.MarketData.AlphaVantageDailyLimit <= 0 {
		return fmt.Errorf("ALPHA_VANTAGE_DAILY_LIMIT must be positive")
	}
	if c.Analytics.FrontierSamples <= 0 {
		return fmt.Errorf("FRONTIER_SAMPLES must be positive")
	}
	if !c.Analytics.DefaultInvestmentAmount.IsPositive() {
		return fmt.Errorf("DEFAULT_INVESTMENT_AMOUNT must be positive")
	}

	switch c.Analytics.FetchFailurePolicy {
	case "zero", "exclude", "abort":
	default:
		return fmt.Errorf("invalid SNAPSHOT_FETCH_FAILURE_POLICY %q (want zero, exclude or abort)", c.Analytics.FetchFailurePolicy)
	}

	if c.Backup.Enabled() && (c.Backup.AccessKeyID == "") != (c.Backup.SecretAccessKey == "") {
		return fmt.Errorf("BACKUP_ACCESS_KEY_ID and BACKUP_SECRET_ACCESS_KEY must be set together")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
