package database

import (
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return &DB{mockDB}, mock
}

var postRowColumns = []string{
	"id", "user_id", "title", "content", "content_type",
	"platforms", "status", "published_at", "tags",
	"embedding", "external_refs", "likes", "comments", "shares", "reach", "impressions",
	"created_at", "updated_at",
}

func samplePostRow(mock sqlmock.Sqlmock, id string) *sqlmock.Rows {
	now := time.Now()
	return mock.NewRows(postRowColumns).AddRow(
		id, "user-1", "Title", "Content", "post",
		"{instagram}", "published", now, "{growth}",
		"{0.1,0.2}", []byte(`{"instagram":"ig-1"}`), 10, 2, 1, 500, 600,
		now, now,
	)
}

func TestPostRepository_GetSearchCandidates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM posts")).
		WithArgs("user-1", "post", "instagram", 50).
		WillReturnRows(samplePostRow(mock, "p1"))

	posts, err := repo.GetSearchCandidates("user-1", SearchFilters{
		ContentType: "post",
		Platform:    "instagram",
	}, 50)
	if err != nil {
		t.Fatalf("GetSearchCandidates failed: %v", err)
	}

	if len(posts) != 1 {
		t.Fatalf("Expected 1 post, got %d", len(posts))
	}

	post := posts[0]
	if post.ID != "p1" {
		t.Errorf("Expected post p1, got %s", post.ID)
	}
	if len(post.Embedding) != 2 {
		t.Errorf("Expected 2-dimensional embedding, got %d", len(post.Embedding))
	}
	if post.ExternalRefs["instagram"] != "ig-1" {
		t.Errorf("Expected decoded external ref, got %v", post.ExternalRefs)
	}
	if len(post.Platforms) != 1 || post.Platforms[0] != "instagram" {
		t.Errorf("Expected platforms array, got %v", post.Platforms)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostRepository_GetSearchCandidates_NoFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("embedding IS NOT NULL")).
		WithArgs("user-1", 10).
		WillReturnRows(mock.NewRows(postRowColumns))

	posts, err := repo.GetSearchCandidates("user-1", SearchFilters{}, 10)
	if err != nil {
		t.Fatalf("GetSearchCandidates failed: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("Expected no posts, got %d", len(posts))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostRepository_GetPostsForBackfill_PendingOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("embedding IS NULL")).
		WithArgs("user-1").
		WillReturnRows(samplePostRow(mock, "p1"))

	posts, err := repo.GetPostsForBackfill("user-1", false)
	if err != nil {
		t.Fatalf("GetPostsForBackfill failed: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("Expected 1 post, got %d", len(posts))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostRepository_UpdateEmbedding(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET embedding = $2")).
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateEmbedding("p1", []float32{0.1, 0.2}); err != nil {
		t.Fatalf("UpdateEmbedding failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostRepository_ClearEmbeddings(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET embedding = NULL")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 7))

	cleared, err := repo.ClearEmbeddings("user-1")
	if err != nil {
		t.Fatalf("ClearEmbeddings failed: %v", err)
	}
	if cleared != 7 {
		t.Errorf("Expected 7 cleared, got %d", cleared)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostRepository_GetEmbeddingStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(embedding)")).
		WithArgs("user-1").
		WillReturnRows(mock.NewRows([]string{"count", "count"}).AddRow(10, 7))

	stats, err := repo.GetEmbeddingStats("user-1")
	if err != nil {
		t.Fatalf("GetEmbeddingStats failed: %v", err)
	}

	if stats.TotalPosts != 10 || stats.PostsWithEmbeddings != 7 || stats.PostsWithoutEmbeddings != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostRepository_GetTopTags(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("unnest(tags)")).
		WithArgs("user-1", 5).
		WillReturnRows(mock.NewRows([]string{"tag"}).AddRow("growth").AddRow("hiring"))

	tags, err := repo.GetTopTags("user-1", 5)
	if err != nil {
		t.Fatalf("GetTopTags failed: %v", err)
	}
	if len(tags) != 2 || tags[0] != "growth" {
		t.Errorf("Unexpected tags: %v", tags)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostRepository_GetPostsForInsightSync(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("NOT EXISTS")).
		WithArgs("user-1", "instagram", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(samplePostRow(mock, "p1"))

	posts, err := repo.GetPostsForInsightSync("user-1", "instagram", 30*24*time.Hour, 6*time.Hour)
	if err != nil {
		t.Fatalf("GetPostsForInsightSync failed: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("Expected 1 post, got %d", len(posts))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostRepository_UpdateEngagementCounters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET likes = $2")).
		WithArgs("p1", 10, 2, 1, 500, 600).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateEngagementCounters("p1", EngagementCounters{
		Likes: 10, Comments: 2, Shares: 1, Reach: 500, Impressions: 600,
	})
	if err != nil {
		t.Fatalf("UpdateEngagementCounters failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
