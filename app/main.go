package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postsense/postsense/app/api"
	"github.com/postsense/postsense/app/cache"
	"github.com/postsense/postsense/app/cfg"
	"github.com/postsense/postsense/app/database"
	"github.com/postsense/postsense/app/embedding"
	"github.com/postsense/postsense/app/insights"
	"github.com/postsense/postsense/app/platform"
	"github.com/postsense/postsense/app/search"
	"github.com/postsense/postsense/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting PostSense server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName, appCfg.DBSSLMode)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	postRepo := database.NewPostRepository(db)
	insightRepo := database.NewInsightRepository(db)
	syncStatusRepo := database.NewSyncStatusRepository(db)
	accountRepo := database.NewAccountRepository(db)
	searchLogRepo := database.NewSearchLogRepository(db)
	patternRepo := database.NewPatternRepository(db)

	catalog, err := platform.Load(appCfg.PlatformsDir)
	if err != nil {
		slog.Error("Failed to load platform catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Platform catalog loaded", "platforms", catalog.Count())

	var sharedCache *cache.Cache
	if appCfg.RedisAddr != "" {
		sharedCache, err = cache.NewCache(appCfg.RedisAddr)
		if err != nil {
			// The in-process LRU still covers repeated queries
			slog.Warn("Shared embedding cache unavailable", "addr", appCfg.RedisAddr, "error", err)
			sharedCache = nil
		} else {
			defer sharedCache.Close()
			slog.Info("Shared embedding cache connected", "addr", appCfg.RedisAddr)
		}
	}

	openAIProvider := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		Endpoint:   appCfg.EmbeddingEndpoint,
		APIKey:     appCfg.EmbeddingAPIKey,
		Model:      appCfg.EmbeddingModel,
		Dimensions: appCfg.EmbeddingDimensions,
		UserAgent:  appCfg.UserAgent,
	})
	provider := embedding.NewCachedProvider(openAIProvider, appCfg.EmbeddingCacheSize, sharedCache)

	backfiller := embedding.NewBackfiller(postRepo, provider, appCfg.BackfillBatchSize,
		time.Duration(appCfg.ItemDelayMs)*time.Millisecond,
		time.Duration(appCfg.BatchDelayMs)*time.Millisecond)

	metricsClient := insights.NewHTTPMetricsClient(appCfg.MetricsAPIURL, appCfg.UserAgent)
	engine := insights.NewEngine(accountRepo, postRepo, insightRepo, syncStatusRepo,
		patternRepo, metricsClient,
		time.Duration(appCfg.SyncCooldownHrs)*time.Hour,
		time.Duration(appCfg.SyncWindowDays)*24*time.Hour)

	searchService := search.NewService(postRepo, insightRepo, searchLogRepo, provider, catalog)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(syncStatusRepo, engine, backfiller)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(searchService, backfiller, engine, postRepo, catalog, scheduler)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
