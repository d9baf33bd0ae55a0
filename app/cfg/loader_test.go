package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		Port:                "8080",
		APIAccessKey:        "test-key",
		UserAgent:           "Test Agent",
		WorkerCount:         3,
		SchedulerInterval:   60,
		Version:             "test-version",
		DBHost:              "localhost",
		DBPort:              "5432",
		DBUser:              "test_user",
		DBPassword:          "test_password",
		DBName:              "test_db",
		DBSSLMode:           "disable",
		EmbeddingEndpoint:   "https://api.openai.com/v1/embeddings",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		EmbeddingCacheSize:  1000,
		MetricsAPIURL:       "https://metrics.example.com",
		SyncCooldownHrs:     6,
		SyncWindowDays:      30,
		BackfillBatchSize:   10,
		Timezone:            "UTC",
		Debug:               true,
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval != 60 {
		t.Errorf("Expected scheduler interval 60, got %d", cfg.SchedulerInterval)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("Expected embedding model, got '%s'", cfg.EmbeddingModel)
	}
	if cfg.EmbeddingDimensions != 1536 {
		t.Errorf("Expected 1536 dimensions, got %d", cfg.EmbeddingDimensions)
	}
	if cfg.SyncCooldownHrs != 6 {
		t.Errorf("Expected 6 hour cooldown, got %d", cfg.SyncCooldownHrs)
	}
	if cfg.SyncWindowDays != 30 {
		t.Errorf("Expected 30 day window, got %d", cfg.SyncWindowDays)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("Expected sslmode 'disable', got '%s'", cfg.DBSSLMode)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestSetForTesting(t *testing.T) {
	original := globalCfg
	defer func() { globalCfg = original }()

	SetForTesting(&Cfg{Port: "9999"})
	if Get().Port != "9999" {
		t.Errorf("Expected Get to return the test config")
	}
}
