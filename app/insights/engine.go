package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/postsense/postsense/app/database"
)

// ErrNotConnected means the user has no connected account for the platform.
// Terminal for the call; nothing external was contacted.
var ErrNotConnected = errors.New("platform not connected")

// Post sync statuses reported in a Summary.
const (
	StatusSynced = "synced"
	StatusFailed = "failed"
)

// PostSyncResult is the per-post outcome of one sync run
type PostSyncResult struct {
	PostID         string  `json:"post_id"`
	Title          string  `json:"title"`
	Status         string  `json:"status"`
	Error          string  `json:"error,omitempty"`
	Performance    string  `json:"performance,omitempty"`
	EngagementRate float64 `json:"engagement_rate,omitempty"`
}

// Summary reports one sync run. CooldownActive means the run was skipped
// without any external call.
type Summary struct {
	Platform       string           `json:"platform"`
	TotalPosts     int              `json:"total_posts"`
	SyncedCount    int              `json:"synced_count"`
	FailedCount    int              `json:"failed_count"`
	CooldownActive bool             `json:"cooldown_active"`
	NextSyncAt     *time.Time       `json:"next_sync_at,omitempty"`
	Results        []PostSyncResult `json:"sync_results"`
}

// StatusReport backs the sync status endpoint
type StatusReport struct {
	SyncStatus     []database.SyncStatus
	RecentInsights []database.Insight
	ActivePatterns []database.Pattern
}

// Engine pulls engagement metrics per post, derives features, classifies
// performance, and upserts insight snapshots on a per-user/per-platform
// cooldown schedule.
type Engine struct {
	accounts   database.AccountRepository
	posts      database.PostRepository
	insights   database.InsightRepository
	syncStatus database.SyncStatusRepository
	patterns   database.PatternRepository
	metrics    MetricsClient
	cooldown   time.Duration
	window     time.Duration
	now        func() time.Time
}

// NewEngine creates a new insight sync engine
func NewEngine(accounts database.AccountRepository, posts database.PostRepository,
	insights database.InsightRepository, syncStatus database.SyncStatusRepository,
	patterns database.PatternRepository, metrics MetricsClient,
	cooldown, window time.Duration) *Engine {
	return &Engine{
		accounts:   accounts,
		posts:      posts,
		insights:   insights,
		syncStatus: syncStatus,
		patterns:   patterns,
		metrics:    metrics,
		cooldown:   cooldown,
		window:     window,
		now:        time.Now,
	}
}

// Sync runs one insight sync for a user/platform pair. Individual post
// failures are recorded in the summary and never abort the batch.
func (e *Engine) Sync(ctx context.Context, userID, platform string, forceSync bool) (*Summary, error) {
	now := e.now().UTC()

	status, err := e.syncStatus.GetSyncStatus(userID, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync status: %w", err)
	}

	if !forceSync && status != nil && status.NextSyncAt != nil && now.Before(*status.NextSyncAt) {
		slog.Debug("Sync cooldown active", "user_id", userID, "platform", platform, "next_sync_at", status.NextSyncAt)
		return &Summary{
			Platform:       platform,
			CooldownActive: true,
			NextSyncAt:     status.NextSyncAt,
			Results:        []PostSyncResult{},
		}, nil
	}

	account, err := e.accounts.GetConnectedAccount(userID, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to load connected account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, platform)
	}

	posts, err := e.posts.GetPostsForInsightSync(userID, platform, e.window, e.cooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts for sync: %w", err)
	}

	summary := &Summary{
		Platform:   platform,
		TotalPosts: len(posts),
		Results:    make([]PostSyncResult, 0, len(posts)),
	}

	for _, post := range posts {
		result := e.syncPost(ctx, *account, post, now)
		summary.Results = append(summary.Results, result)

		if result.Status == StatusSynced {
			summary.SyncedCount++
		} else {
			summary.FailedCount++
		}
	}

	nextSync := now.Add(e.cooldown)
	summary.NextSyncAt = &nextSync

	attempt := database.SyncAttempt{
		AttemptedAt:  now,
		NextSyncAt:   nextSync,
		Succeeded:    summary.FailedCount == 0,
		ErrorSummary: errorSummary(summary.Results),
	}
	if err := e.syncStatus.RecordSyncAttempt(userID, platform, attempt); err != nil {
		slog.Error("Failed to record sync attempt", "user_id", userID, "platform", platform, "error", err)
	}

	if summary.SyncedCount > 0 {
		e.recalculatePatterns(userID, platform)
	}

	slog.Info("Insight sync completed",
		"user_id", userID,
		"platform", platform,
		"total", summary.TotalPosts,
		"synced", summary.SyncedCount,
		"failed", summary.FailedCount)

	return summary, nil
}

// syncPost fetches and persists the insight snapshot for one post. Failures
// are captured in the result so the caller's loop keeps going.
func (e *Engine) syncPost(ctx context.Context, account database.ConnectedAccount, post database.Post, now time.Time) PostSyncResult {
	result := PostSyncResult{PostID: post.ID, Title: post.Title}

	externalRef, ok := post.ExternalRefs[account.Platform]
	if !ok || externalRef == "" {
		result.Status = StatusFailed
		result.Error = "post has no external reference for " + account.Platform
		return result
	}

	metrics, err := e.metrics.FetchMetrics(ctx, account, externalRef)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		slog.Warn("Metrics fetch failed", "post_id", post.ID, "platform", account.Platform, "error", err)
		return result
	}

	content := ExtractContentFeatures(post.Title + " " + post.Content)

	publishedAt := post.CreatedAt
	if post.PublishedAt != nil {
		publishedAt = *post.PublishedAt
	}
	timing := TimingFeaturesFrom(publishedAt)

	rate := EngagementRate(metrics.Likes, metrics.Comments, metrics.Shares, metrics.Reach)
	performance := ClassifyPerformance(rate)

	insight := database.Insight{
		UserID:         post.UserID,
		PostID:         post.ID,
		Platform:       account.Platform,
		Likes:          metrics.Likes,
		Comments:       metrics.Comments,
		Shares:         metrics.Shares,
		Reach:          metrics.Reach,
		Impressions:    metrics.Impressions,
		EngagementRate: rate,
		EmojiCount:     content.EmojiCount,
		HashtagCount:   content.HashtagCount,
		MentionCount:   content.MentionCount,
		HasCTA:         content.HasCTA,
		HasQuestion:    content.HasQuestion,
		WordCount:      content.WordCount,
		CharCount:      content.CharCount,
		DayOfWeek:      timing.DayOfWeek,
		HourOfDay:      timing.HourOfDay,
		DayPart:        timing.DayPart,
		Performance:    performance,
		LastSyncedAt:   now,
	}

	if err := e.insights.UpsertInsight(insight); err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		slog.Error("Failed to upsert insight", "post_id", post.ID, "platform", account.Platform, "error", err)
		return result
	}

	// Denormalized read optimization; the insight row is the source of truth
	counters := database.EngagementCounters{
		Likes:       metrics.Likes,
		Comments:    metrics.Comments,
		Shares:      metrics.Shares,
		Reach:       metrics.Reach,
		Impressions: metrics.Impressions,
	}
	if err := e.posts.UpdateEngagementCounters(post.ID, counters); err != nil {
		slog.Warn("Failed to propagate engagement counters", "post_id", post.ID, "error", err)
	}

	result.Status = StatusSynced
	result.Performance = performance
	result.EngagementRate = rate
	return result
}

// recalculatePatterns triggers the downstream pattern priority refresh
// without letting its failure reach the sync response.
func (e *Engine) recalculatePatterns(userID, platform string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Pattern recalculation panicked", "recover", r)
			}
		}()

		if err := e.patterns.RecalculatePriorities(userID, platform); err != nil {
			slog.Warn("Pattern recalculation failed", "user_id", userID, "platform", platform, "error", err)
		}
	}()
}

// Status assembles the sync status endpoint's data
func (e *Engine) Status(ctx context.Context, userID string) (*StatusReport, error) {
	statuses, err := e.syncStatus.ListSyncStatus(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync status: %w", err)
	}

	recent, err := e.insights.GetRecentInsights(userID, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent insights: %w", err)
	}

	patterns, err := e.patterns.GetActivePatterns(userID, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to load active patterns: %w", err)
	}

	return &StatusReport{
		SyncStatus:     statuses,
		RecentInsights: recent,
		ActivePatterns: patterns,
	}, nil
}

func errorSummary(results []PostSyncResult) string {
	var failures []string
	for _, r := range results {
		if r.Status == StatusFailed {
			failures = append(failures, fmt.Sprintf("%s: %s", r.PostID, r.Error))
		}
	}

	summary := strings.Join(failures, "; ")
	if len(summary) > 500 {
		summary = summary[:500]
	}
	return summary
}
