package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/postsense/postsense/app/database"
)

type stubAccountRepo struct {
	account *database.ConnectedAccount
	err     error
}

func (s *stubAccountRepo) GetConnectedAccount(userID, platform string) (*database.ConnectedAccount, error) {
	return s.account, s.err
}

type stubPostRepo struct {
	posts           []database.Post
	counterUpdates  int
	counterFailures bool
}

func (s *stubPostRepo) GetSearchCandidates(userID string, filters database.SearchFilters, limit int) ([]database.Post, error) {
	return nil, nil
}
func (s *stubPostRepo) GetTopTags(userID string, limit int) ([]string, error) {
	return nil, nil
}
func (s *stubPostRepo) GetPostCount() (int, error) { return 0, nil }
func (s *stubPostRepo) GetPostsForBackfill(userID string, forceRegenerate bool) ([]database.Post, error) {
	return nil, nil
}
func (s *stubPostRepo) UpdateEmbedding(postID string, embedding []float32) error { return nil }
func (s *stubPostRepo) ClearEmbeddings(userID string) (int64, error)             { return 0, nil }
func (s *stubPostRepo) GetEmbeddingStats(userID string) (database.EmbeddingStats, error) {
	return database.EmbeddingStats{}, nil
}
func (s *stubPostRepo) GetPostsForInsightSync(userID, platform string, window, cooldown time.Duration) ([]database.Post, error) {
	return s.posts, nil
}
func (s *stubPostRepo) UpdateEngagementCounters(postID string, counters database.EngagementCounters) error {
	s.counterUpdates++
	if s.counterFailures {
		return errors.New("counter update failed")
	}
	return nil
}

type stubInsightRepo struct {
	upserts   []database.Insight
	upsertErr error
}

func (s *stubInsightRepo) UpsertInsight(insight database.Insight) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts = append(s.upserts, insight)
	return nil
}
func (s *stubInsightRepo) GetLatestPerformance(userID string, postIDs []string) (map[string]string, error) {
	return nil, nil
}
func (s *stubInsightRepo) GetRecentInsights(userID string, limit int) ([]database.Insight, error) {
	return nil, nil
}

type stubSyncStatusRepo struct {
	status   *database.SyncStatus
	attempts []database.SyncAttempt
}

func (s *stubSyncStatusRepo) GetSyncStatus(userID, platform string) (*database.SyncStatus, error) {
	return s.status, nil
}
func (s *stubSyncStatusRepo) RecordSyncAttempt(userID, platform string, attempt database.SyncAttempt) error {
	s.attempts = append(s.attempts, attempt)
	return nil
}
func (s *stubSyncStatusRepo) GetDueForSync(limit int) ([]database.SyncStatus, error) {
	return nil, nil
}
func (s *stubSyncStatusRepo) ListSyncStatus(userID string) ([]database.SyncStatus, error) {
	return nil, nil
}

type stubPatternRepo struct{}

func (s *stubPatternRepo) RecalculatePriorities(userID, platform string) error { return nil }
func (s *stubPatternRepo) GetActivePatterns(userID string, limit int) ([]database.Pattern, error) {
	return nil, nil
}

type stubMetricsClient struct {
	metrics map[string]*Metrics
	errs    map[string]error
	calls   int
}

func (s *stubMetricsClient) FetchMetrics(ctx context.Context, account database.ConnectedAccount, externalRef string) (*Metrics, error) {
	s.calls++
	if err, ok := s.errs[externalRef]; ok {
		return nil, err
	}
	if m, ok := s.metrics[externalRef]; ok {
		return m, nil
	}
	return &Metrics{}, nil
}

func newTestEngine(accounts *stubAccountRepo, posts *stubPostRepo, insights *stubInsightRepo,
	syncStatus *stubSyncStatusRepo, metrics *stubMetricsClient, now time.Time) *Engine {
	engine := NewEngine(accounts, posts, insights, syncStatus, &stubPatternRepo{}, metrics,
		6*time.Hour, 30*24*time.Hour)
	engine.now = func() time.Time { return now }
	return engine
}

func connectedAccount() *database.ConnectedAccount {
	return &database.ConnectedAccount{
		UserID:      "user-1",
		Platform:    "instagram",
		AccessToken: "token",
	}
}

func TestEngine_Sync_CooldownShortCircuits(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	nextSync := now.Add(2 * time.Hour)

	syncStatus := &stubSyncStatusRepo{
		status: &database.SyncStatus{NextSyncAt: &nextSync},
	}
	metrics := &stubMetricsClient{}

	engine := newTestEngine(&stubAccountRepo{account: connectedAccount()},
		&stubPostRepo{posts: []database.Post{{ID: "p1"}}},
		&stubInsightRepo{}, syncStatus, metrics, now)

	summary, err := engine.Sync(context.Background(), "user-1", "instagram", false)
	if err != nil {
		t.Fatalf("Cooldown should not be an error: %v", err)
	}

	if !summary.CooldownActive {
		t.Errorf("Expected cooldown to be active")
	}
	if summary.NextSyncAt == nil || !summary.NextSyncAt.Equal(nextSync) {
		t.Errorf("Expected next sync at %v, got %v", nextSync, summary.NextSyncAt)
	}
	if metrics.calls != 0 {
		t.Errorf("Cooldown must not trigger external calls, got %d", metrics.calls)
	}
	if len(syncStatus.attempts) != 0 {
		t.Errorf("Cooldown must not record a sync attempt")
	}
}

func TestEngine_Sync_ForceOverridesCooldown(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	nextSync := now.Add(2 * time.Hour)

	syncStatus := &stubSyncStatusRepo{
		status: &database.SyncStatus{NextSyncAt: &nextSync},
	}

	engine := newTestEngine(&stubAccountRepo{account: connectedAccount()},
		&stubPostRepo{}, &stubInsightRepo{}, syncStatus, &stubMetricsClient{}, now)

	summary, err := engine.Sync(context.Background(), "user-1", "instagram", true)
	if err != nil {
		t.Fatalf("Forced sync failed: %v", err)
	}
	if summary.CooldownActive {
		t.Errorf("Force sync must bypass the cooldown")
	}
	if len(syncStatus.attempts) != 1 {
		t.Errorf("Expected a recorded sync attempt, got %d", len(syncStatus.attempts))
	}
}

func TestEngine_Sync_NotConnected(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	engine := newTestEngine(&stubAccountRepo{account: nil},
		&stubPostRepo{}, &stubInsightRepo{}, &stubSyncStatusRepo{}, &stubMetricsClient{}, now)

	_, err := engine.Sync(context.Background(), "user-1", "instagram", false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestEngine_Sync_PartialFailureDoesNotAbort(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	posts := &stubPostRepo{
		posts: []database.Post{
			{ID: "p1", UserID: "user-1", Title: "First", ExternalRefs: map[string]string{"instagram": "ig-1"}},
			{ID: "p2", UserID: "user-1", Title: "Broken", ExternalRefs: map[string]string{"instagram": "ig-2"}},
			{ID: "p3", UserID: "user-1", Title: "No ref"},
		},
	}
	metrics := &stubMetricsClient{
		metrics: map[string]*Metrics{
			"ig-1": {Likes: 120, Comments: 10, Shares: 5, Reach: 2000, Impressions: 2500},
		},
		errs: map[string]error{
			"ig-2": errors.New("rate limited"),
		},
	}
	insightRepo := &stubInsightRepo{}
	syncStatus := &stubSyncStatusRepo{}

	engine := newTestEngine(&stubAccountRepo{account: connectedAccount()},
		posts, insightRepo, syncStatus, metrics, now)

	summary, err := engine.Sync(context.Background(), "user-1", "instagram", false)
	if err != nil {
		t.Fatalf("Partial failure must not abort the sync: %v", err)
	}

	if summary.TotalPosts != 3 {
		t.Errorf("Expected 3 total posts, got %d", summary.TotalPosts)
	}
	if summary.SyncedCount != 1 {
		t.Errorf("Expected 1 synced post, got %d", summary.SyncedCount)
	}
	if summary.FailedCount != 2 {
		t.Errorf("Expected 2 failed posts, got %d", summary.FailedCount)
	}
	if len(insightRepo.upserts) != 1 {
		t.Fatalf("Expected 1 upserted insight, got %d", len(insightRepo.upserts))
	}

	insight := insightRepo.upserts[0]
	if insight.PostID != "p1" {
		t.Errorf("Expected insight for p1, got %s", insight.PostID)
	}
	// (120 + 2*10 + 1.5*5) / 2000 = 0.07375
	if insight.Performance != "high" {
		t.Errorf("Expected high performance, got %s", insight.Performance)
	}
	if !insight.LastSyncedAt.Equal(now) {
		t.Errorf("Expected last synced at %v, got %v", now, insight.LastSyncedAt)
	}

	// Failed posts mark the attempt itself as failed
	if len(syncStatus.attempts) != 1 {
		t.Fatalf("Expected 1 recorded attempt, got %d", len(syncStatus.attempts))
	}
	attempt := syncStatus.attempts[0]
	if attempt.Succeeded {
		t.Errorf("Attempt with failures should not be marked as succeeded")
	}
	if attempt.ErrorSummary == "" {
		t.Errorf("Expected an error summary")
	}
	if !attempt.NextSyncAt.Equal(now.Add(6 * time.Hour)) {
		t.Errorf("Expected next sync 6h out, got %v", attempt.NextSyncAt)
	}
}

func TestEngine_Sync_AllSucceeded(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	published := time.Date(2024, 5, 20, 18, 30, 0, 0, time.UTC)

	posts := &stubPostRepo{
		posts: []database.Post{
			{
				ID:           "p1",
				UserID:       "user-1",
				Title:        "Evening post",
				Content:      "Join us for the launch! #launch",
				PublishedAt:  &published,
				ExternalRefs: map[string]string{"instagram": "ig-1"},
			},
		},
	}
	metrics := &stubMetricsClient{
		metrics: map[string]*Metrics{
			"ig-1": {Likes: 30, Comments: 2, Shares: 1, Reach: 1000},
		},
	}
	insightRepo := &stubInsightRepo{}
	syncStatus := &stubSyncStatusRepo{}

	engine := newTestEngine(&stubAccountRepo{account: connectedAccount()},
		posts, insightRepo, syncStatus, metrics, now)

	summary, err := engine.Sync(context.Background(), "user-1", "instagram", false)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if summary.SyncedCount != 1 || summary.FailedCount != 0 {
		t.Errorf("Expected 1 synced, 0 failed; got %d, %d", summary.SyncedCount, summary.FailedCount)
	}
	if !syncStatus.attempts[0].Succeeded {
		t.Errorf("Fully successful run should record success")
	}

	insight := insightRepo.upserts[0]
	// (30 + 2*2 + 1.5*1) / 1000 = 0.0355
	if insight.Performance != "medium" {
		t.Errorf("Expected medium performance, got %s", insight.Performance)
	}
	if insight.DayPart != "evening" {
		t.Errorf("Expected evening day part, got %s", insight.DayPart)
	}
	if insight.HashtagCount != 1 {
		t.Errorf("Expected 1 hashtag, got %d", insight.HashtagCount)
	}
	if !insight.HasCTA {
		t.Errorf("Expected CTA detection for 'join us'")
	}
	if posts.counterUpdates != 1 {
		t.Errorf("Expected engagement counters propagated once, got %d", posts.counterUpdates)
	}
}

func TestEngine_Sync_CounterPropagationFailureIsBestEffort(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	posts := &stubPostRepo{
		posts: []database.Post{
			{ID: "p1", UserID: "user-1", ExternalRefs: map[string]string{"instagram": "ig-1"}},
		},
		counterFailures: true,
	}
	metrics := &stubMetricsClient{
		metrics: map[string]*Metrics{"ig-1": {Likes: 10, Reach: 100}},
	}

	engine := newTestEngine(&stubAccountRepo{account: connectedAccount()},
		posts, &stubInsightRepo{}, &stubSyncStatusRepo{}, metrics, now)

	summary, err := engine.Sync(context.Background(), "user-1", "instagram", false)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if summary.SyncedCount != 1 {
		t.Errorf("Counter propagation failure must not fail the post, got %d synced", summary.SyncedCount)
	}
}

func TestEngine_Sync_UpsertFailureMarksPostFailed(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	posts := &stubPostRepo{
		posts: []database.Post{
			{ID: "p1", UserID: "user-1", ExternalRefs: map[string]string{"instagram": "ig-1"}},
		},
	}
	metrics := &stubMetricsClient{
		metrics: map[string]*Metrics{"ig-1": {Likes: 10, Reach: 100}},
	}
	insightRepo := &stubInsightRepo{upsertErr: errors.New("constraint violation")}

	engine := newTestEngine(&stubAccountRepo{account: connectedAccount()},
		posts, insightRepo, &stubSyncStatusRepo{}, metrics, now)

	summary, err := engine.Sync(context.Background(), "user-1", "instagram", false)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if summary.FailedCount != 1 {
		t.Errorf("Expected upsert failure to mark the post failed, got %d failed", summary.FailedCount)
	}
}

func TestErrorSummary_Truncated(t *testing.T) {
	results := make([]PostSyncResult, 0, 50)
	for i := 0; i < 50; i++ {
		results = append(results, PostSyncResult{
			PostID: "post-with-a-rather-long-identifier",
			Status: StatusFailed,
			Error:  "metrics API returned status 429: too many requests",
		})
	}

	summary := errorSummary(results)
	if len(summary) > 500 {
		t.Errorf("Expected summary capped at 500 chars, got %d", len(summary))
	}
}
