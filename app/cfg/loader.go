package cfg

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"postsense" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"postsense" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"postsense" description:"Database name"`
	DBSSLMode  string `long:"db-sslmode" env:"DB_SSLMODE" default:"disable" description:"Database SSL mode"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (required for /api routes)"`

	// Embedding provider configuration
	EmbeddingEndpoint   string `long:"embedding-endpoint" env:"EMBEDDING_ENDPOINT" default:"https://api.openai.com/v1/embeddings" description:"OpenAI-compatible embeddings endpoint"`
	EmbeddingAPIKey     string `long:"embedding-api-key" env:"EMBEDDING_API_KEY" description:"API key for the embedding provider"`
	EmbeddingModel      string `long:"embedding-model" env:"EMBEDDING_MODEL" default:"text-embedding-3-small" description:"Embedding model identifier"`
	EmbeddingDimensions int    `long:"embedding-dimensions" env:"EMBEDDING_DIMENSIONS" default:"1536" description:"Embedding vector dimensionality"`
	EmbeddingCacheSize  int    `long:"embedding-cache-size" env:"EMBEDDING_CACHE_SIZE" default:"1000" description:"Number of embeddings kept in the in-process LRU cache"`
	RedisAddr           string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the shared embedding cache (optional)"`

	// Insight sync configuration
	MetricsAPIURL   string `long:"metrics-api-url" env:"METRICS_API_URL" default:"https://metrics.postsense.dev" description:"Base URL of the platform metrics gateway"`
	SyncCooldownHrs int    `long:"sync-cooldown-hours" env:"SYNC_COOLDOWN_HOURS" default:"6" description:"Minimum hours between insight syncs per user/platform"`
	SyncWindowDays  int    `long:"sync-window-days" env:"SYNC_WINDOW_DAYS" default:"30" description:"Trailing window of published posts eligible for insight sync"`

	// Backfill configuration
	BackfillBatchSize int `long:"backfill-batch-size" env:"BACKFILL_BATCH_SIZE" default:"10" description:"Posts per embedding backfill batch"`
	ItemDelayMs       int `long:"backfill-item-delay" env:"BACKFILL_ITEM_DELAY_MS" default:"100" description:"Delay between embedding calls within a batch (ms)"`
	BatchDelayMs      int `long:"backfill-batch-delay" env:"BACKFILL_BATCH_DELAY_MS" default:"1000" description:"Delay between embedding backfill batches (ms)"`

	// Scheduler configuration
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`

	// Application metadata
	PlatformsDir string `long:"platforms-dir" env:"PLATFORMS_DIR" description:"Directory with platform catalog overrides (optional)"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"PostSense/1.0" description:"User agent string for outbound HTTP requests"`
	Timezone     string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug        bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		DBSSLMode:           raw.DBSSLMode,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		EmbeddingEndpoint:   raw.EmbeddingEndpoint,
		EmbeddingAPIKey:     raw.EmbeddingAPIKey,
		EmbeddingModel:      raw.EmbeddingModel,
		EmbeddingDimensions: raw.EmbeddingDimensions,
		EmbeddingCacheSize:  raw.EmbeddingCacheSize,
		RedisAddr:           raw.RedisAddr,
		MetricsAPIURL:       raw.MetricsAPIURL,
		SyncCooldownHrs:     raw.SyncCooldownHrs,
		SyncWindowDays:      raw.SyncWindowDays,
		BackfillBatchSize:   raw.BackfillBatchSize,
		ItemDelayMs:         raw.ItemDelayMs,
		BatchDelayMs:        raw.BatchDelayMs,
		WorkerCount:         raw.WorkerCount,
		SchedulerInterval:   raw.SchedulerInterval,
		PlatformsDir:        raw.PlatformsDir,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SetForTesting replaces the global configuration. Test helper only.
func SetForTesting(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
