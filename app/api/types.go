package api

import (
	"context"

	"github.com/postsense/postsense/app/database"
	"github.com/postsense/postsense/app/embedding"
	"github.com/postsense/postsense/app/insights"
	"github.com/postsense/postsense/app/platform"
	"github.com/postsense/postsense/app/search"
	"github.com/postsense/postsense/app/tasks"
)

type SearchServiceInterface interface {
	Search(ctx context.Context, userID, query string, filters search.Filters, limit int) (*search.Response, error)
	Suggestions(ctx context.Context, userID string) (*search.SuggestionsResponse, error)
}

type BackfillerInterface interface {
	Run(ctx context.Context, scope embedding.Scope) (*embedding.Report, error)
	Clear(ctx context.Context, scope embedding.Scope) (int64, error)
	Status(userID string) (database.EmbeddingStats, error)
}

type InsightEngineInterface interface {
	Sync(ctx context.Context, userID, platform string, forceSync bool) (*insights.Summary, error)
	Status(ctx context.Context, userID string) (*insights.StatusReport, error)
}

var _ SearchServiceInterface = (*search.Service)(nil)
var _ BackfillerInterface = (*embedding.Backfiller)(nil)
var _ InsightEngineInterface = (*insights.Engine)(nil)

type Handler struct {
	searchService SearchServiceInterface
	backfiller    BackfillerInterface
	engine        InsightEngineInterface
	postRepo      database.PostRepository
	catalog       *platform.Catalog
	scheduler     tasks.TaskSchedulerInterface
}

type SearchRequest struct {
	Query           string         `json:"query"`
	Filters         search.Filters `json:"filters"`
	Limit           int            `json:"limit"`
	IncludeInsights *bool          `json:"include_insights"`
}

type BackfillRequest struct {
	UserOnly        bool `json:"user_only"`
	ForceRegenerate bool `json:"force_regenerate"`
	BatchSize       int  `json:"batch_size"`
	Async           bool `json:"async"`
}

type ClearEmbeddingsRequest struct {
	UserOnly bool `json:"user_only"`
	Confirm  bool `json:"confirm"`
}

type SyncInsightsRequest struct {
	Platform  string `json:"platform"`
	ForceSync bool   `json:"force_sync"`
}
