package database

import (
	"time"
)

// SearchFilters narrows the candidate pool before similarity ranking.
// Zero values mean "no constraint".
type SearchFilters struct {
	ContentType string
	Platform    string
	Status      string
	Topics      []string
	DateFrom    *time.Time
	DateTo      *time.Time
}

// SyncAttempt records the outcome of one insight sync run.
type SyncAttempt struct {
	AttemptedAt  time.Time
	NextSyncAt   time.Time
	Succeeded    bool
	ErrorSummary string
}

type PostRepository interface {
	GetSearchCandidates(userID string, filters SearchFilters, limit int) ([]Post, error)
	GetTopTags(userID string, limit int) ([]string, error)
	GetPostCount() (int, error)

	GetPostsForBackfill(userID string, forceRegenerate bool) ([]Post, error)
	UpdateEmbedding(postID string, embedding []float32) error
	ClearEmbeddings(userID string) (int64, error)
	GetEmbeddingStats(userID string) (EmbeddingStats, error)

	GetPostsForInsightSync(userID, platform string, window, cooldown time.Duration) ([]Post, error)
	UpdateEngagementCounters(postID string, counters EngagementCounters) error
}

type InsightRepository interface {
	UpsertInsight(insight Insight) error
	GetLatestPerformance(userID string, postIDs []string) (map[string]string, error)
	GetRecentInsights(userID string, limit int) ([]Insight, error)
}

type SyncStatusRepository interface {
	GetSyncStatus(userID, platform string) (*SyncStatus, error)
	RecordSyncAttempt(userID, platform string, attempt SyncAttempt) error
	GetDueForSync(limit int) ([]SyncStatus, error)
	ListSyncStatus(userID string) ([]SyncStatus, error)
}

type AccountRepository interface {
	GetConnectedAccount(userID, platform string) (*ConnectedAccount, error)
}

type SearchLogRepository interface {
	InsertSearchLog(log SearchLog) error
	GetRecentQueries(userID string, limit int) ([]string, error)
}

type PatternRepository interface {
	RecalculatePriorities(userID, platform string) error
	GetActivePatterns(userID string, limit int) ([]Pattern, error)
}
