package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postsense/postsense/app/database"
	"github.com/postsense/postsense/app/embedding"
	"github.com/postsense/postsense/app/insights"
	"github.com/postsense/postsense/app/platform"
	"github.com/postsense/postsense/app/search"
	"github.com/postsense/postsense/app/tasks"
)

func NewHandler(searchService SearchServiceInterface, backfiller BackfillerInterface,
	engine InsightEngineInterface, postRepo database.PostRepository,
	catalog *platform.Catalog, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		searchService: searchService,
		backfiller:    backfiller,
		engine:        engine,
		postRepo:      postRepo,
		catalog:       catalog,
		scheduler:     scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if postCount, err := h.postRepo.GetPostCount(); err == nil {
		health["posts"] = postCount
	}

	health["loaded_platforms"] = h.catalog.Count()

	c.JSON(http.StatusOK, health)
}

// GetStats reports service-wide counts. Unauthenticated, so nothing here is
// scoped to or reveals a particular user.
func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if postCount, err := h.postRepo.GetPostCount(); err == nil {
		stats["total_posts"] = postCount
	}

	if embeddingStats, err := h.backfiller.Status(""); err == nil {
		stats["posts_with_embeddings"] = embeddingStats.PostsWithEmbeddings
		stats["posts_without_embeddings"] = embeddingStats.PostsWithoutEmbeddings
	}

	stats["loaded_platforms"] = h.catalog.Count()

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APISearch(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	response, err := h.searchService.Search(c.Request.Context(), userID, req.Query, req.Filters, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Search query must not be empty"})
		case errors.Is(err, search.ErrEmbeddingUnavailable):
			slog.Error("Search unavailable, query embedding failed", "user_id", userID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Search is temporarily unavailable"})
		default:
			slog.Error("Search failed", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		}
		return
	}

	includeInsights := req.IncludeInsights == nil || *req.IncludeInsights

	results := make([]map[string]interface{}, 0, len(response.Results))
	for _, r := range response.Results {
		result := postMap(r.Post)
		result["similarity"] = r.Similarity
		result["boost"] = r.Boost
		result["score"] = r.Score
		result["match_reasons"] = r.MatchReasons
		result["relevance_explanation"] = r.Explanation
		if includeInsights {
			result["suggestions"] = r.Suggestions
			if r.Performance != "" {
				result["performance"] = r.Performance
			}
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"results":     results,
			"total_found": response.TotalFound,
			"search_stats": map[string]interface{}{
				"candidates_considered": response.Stats.CandidatesConsidered,
				"no_candidates":         response.Stats.NoCandidates,
				"top_score":             response.Stats.TopScore,
				"duration":              response.Stats.Duration.String(),
			},
		},
	})
}

func (h *Handler) APISearchSuggestions(c *gin.Context) {
	userID := c.GetString(userIDKey)

	suggestions, err := h.searchService.Suggestions(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to build search suggestions", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build suggestions"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"recent_searches":     emptyIfNil(suggestions.RecentSearches),
		"suggested_topics":    emptyIfNil(suggestions.SuggestedTopics),
		"available_types":     emptyIfNil(suggestions.AvailableTypes),
		"available_platforms": emptyIfNil(suggestions.AvailablePlatforms),
	})
}

func (h *Handler) APIBackfillEmbeddings(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var req BackfillRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	scope := embedding.Scope{
		ForceRegenerate: req.ForceRegenerate,
		BatchSize:       req.BatchSize,
	}
	if req.UserOnly {
		scope.UserID = userID
	}

	if req.Async {
		backfillTask := tasks.NewBackfillEmbeddingsTask(h.backfiller, scope)
		if err := h.scheduler.EnqueueTask(backfillTask); err != nil {
			slog.Error("Failed to enqueue backfill task", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue backfill task", "details": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, map[string]interface{}{
			"success": true,
			"task": map[string]interface{}{
				"id":   backfillTask.ID,
				"type": backfillTask.Type,
			},
		})
		return
	}

	report, err := h.backfiller.Run(c.Request.Context(), scope)
	if err != nil {
		slog.Error("Embedding backfill failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Backfill failed", "details": err.Error()})
		return
	}

	results := report.Results
	if results == nil {
		results = []embedding.ItemResult{}
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"progress": map[string]interface{}{
			"total":     report.Total,
			"processed": report.Processed,
			"succeeded": report.Succeeded,
			"failed":    report.Failed,
			"skipped":   report.Skipped,
		},
		"results":      results,
		"success_rate": report.SuccessRate,
	})
}

func (h *Handler) APIEmbeddingStatus(c *gin.Context) {
	userID := c.GetString(userIDKey)

	stats, err := h.backfiller.Status(userID)
	if err != nil {
		slog.Error("Failed to load embedding status", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load embedding status"})
		return
	}

	coverage := 0.0
	if stats.TotalPosts > 0 {
		coverage = float64(stats.PostsWithEmbeddings) / float64(stats.TotalPosts) * 100
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"total_posts":              stats.TotalPosts,
		"posts_with_embeddings":    stats.PostsWithEmbeddings,
		"posts_without_embeddings": stats.PostsWithoutEmbeddings,
		"coverage_percent":         coverage,
	})
}

func (h *Handler) APIClearEmbeddings(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var req ClearEmbeddingsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	if !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Confirmation required",
			"message": "Clearing embeddings is irreversible. Set \"confirm\": true to proceed.",
		})
		return
	}

	scope := embedding.Scope{}
	if req.UserOnly {
		scope.UserID = userID
	}

	cleared, err := h.backfiller.Clear(c.Request.Context(), scope)
	if err != nil {
		slog.Error("Failed to clear embeddings", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear embeddings"})
		return
	}

	slog.Info("Embeddings cleared", "user_id", userID, "cleared", cleared)

	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"cleared": cleared,
	})
}

func (h *Handler) APISyncInsights(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var req SyncInsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Platform == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing platform parameter"})
		return
	}

	if !h.catalog.Has(req.Platform) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown platform: " + req.Platform})
		return
	}

	summary, err := h.engine.Sync(c.Request.Context(), userID, req.Platform, req.ForceSync)
	if err != nil {
		if errors.Is(err, insights.ErrNotConnected) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Platform not connected: " + req.Platform})
			return
		}
		slog.Error("Insight sync failed", "user_id", userID, "platform", req.Platform, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Insight sync failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) APISyncStatus(c *gin.Context) {
	userID := c.GetString(userIDKey)

	report, err := h.engine.Status(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to load sync status", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sync status"})
		return
	}

	statuses := make([]map[string]interface{}, 0, len(report.SyncStatus))
	for _, s := range report.SyncStatus {
		statuses = append(statuses, map[string]interface{}{
			"platform":        s.Platform,
			"last_synced_at":  s.LastSyncedAt,
			"last_success_at": s.LastSuccessAt,
			"next_sync_at":    s.NextSyncAt,
			"enabled":         s.Enabled,
			"failed_syncs":    s.FailedSyncs,
			"last_error":      s.LastError,
		})
	}

	recent := make([]map[string]interface{}, 0, len(report.RecentInsights))
	for _, i := range report.RecentInsights {
		recent = append(recent, map[string]interface{}{
			"post_id":         i.PostID,
			"platform":        i.Platform,
			"likes":           i.Likes,
			"comments":        i.Comments,
			"shares":          i.Shares,
			"reach":           i.Reach,
			"impressions":     i.Impressions,
			"engagement_rate": i.EngagementRate,
			"performance":     i.Performance,
			"day_part":        i.DayPart,
			"last_synced_at":  i.LastSyncedAt,
		})
	}

	patterns := make([]map[string]interface{}, 0, len(report.ActivePatterns))
	for _, p := range report.ActivePatterns {
		patterns = append(patterns, map[string]interface{}{
			"platform":      p.Platform,
			"pattern_type":  p.PatternType,
			"pattern_value": p.PatternValue,
			"priority":      p.Priority,
			"sample_count":  p.SampleCount,
			"updated_at":    p.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sync_status":     statuses,
		"recent_insights": recent,
		"active_patterns": patterns,
	})
}

func postMap(post database.Post) map[string]interface{} {
	m := map[string]interface{}{
		"id":        post.ID,
		"title":     post.Title,
		"content":   post.Content,
		"type":      post.ContentType,
		"platforms": post.Platforms,
		"status":    post.Status,
		"tags":      post.Tags,
		"engagement": map[string]interface{}{
			"likes":       post.Likes,
			"comments":    post.Comments,
			"shares":      post.Shares,
			"reach":       post.Reach,
			"impressions": post.Impressions,
		},
		"created_at": post.CreatedAt,
	}

	if post.PublishedAt != nil {
		m["published_at"] = post.PublishedAt
	}

	return m
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
