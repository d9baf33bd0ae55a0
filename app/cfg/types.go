package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Embedding provider configuration
	EmbeddingEndpoint   string
	EmbeddingAPIKey     string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingCacheSize  int
	RedisAddr           string

	// Insight sync configuration
	MetricsAPIURL   string
	SyncCooldownHrs int
	SyncWindowDays  int

	// Backfill configuration
	BackfillBatchSize int
	ItemDelayMs       int
	BatchDelayMs      int

	// Scheduler configuration
	WorkerCount       int
	SchedulerInterval int

	// Application metadata
	PlatformsDir string
	UserAgent    string
	Timezone     string
	Debug        bool
	Version      string
}
