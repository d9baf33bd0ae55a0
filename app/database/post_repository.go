package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostRepositoryImpl handles database operations for posts
type PostRepositoryImpl struct {
	db *DB
}

var _ PostRepository = (*PostRepositoryImpl)(nil)

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

const postColumns = `id, user_id, COALESCE(title, ''), COALESCE(content, ''), content_type,
	       COALESCE(platforms, '{}'), status, published_at, COALESCE(tags, '{}'),
	       embedding, external_refs, likes, comments, shares, reach, impressions,
	       created_at, updated_at`

// GetSearchCandidates returns the caller's own posts matching the relational
// filters, restricted to posts that already carry an embedding, most recently
// published first. Ownership is enforced unconditionally.
func (r *PostRepositoryImpl) GetSearchCandidates(userID string, filters SearchFilters, limit int) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE user_id = $1
		  AND embedding IS NOT NULL`
	args := []interface{}{userID}

	if filters.ContentType != "" {
		args = append(args, filters.ContentType)
		query += fmt.Sprintf(" AND content_type = $%d", len(args))
	}
	if filters.Platform != "" {
		args = append(args, filters.Platform)
		query += fmt.Sprintf(" AND $%d = ANY(platforms)", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if len(filters.Topics) > 0 {
		args = append(args, pq.Array(filters.Topics))
		query += fmt.Sprintf(" AND tags && $%d", len(args))
	}
	if filters.DateFrom != nil {
		args = append(args, *filters.DateFrom)
		query += fmt.Sprintf(" AND published_at >= $%d", len(args))
	}
	if filters.DateTo != nil {
		args = append(args, *filters.DateTo)
		query += fmt.Sprintf(" AND published_at <= $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY published_at DESC NULLS LAST, created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get search candidates: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// GetPostsForBackfill returns posts that need an embedding. With
// forceRegenerate, all matching posts are returned regardless of state.
func (r *PostRepositoryImpl) GetPostsForBackfill(userID string, forceRegenerate bool) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE 1 = 1`
	args := []interface{}{}

	if userID != "" {
		args = append(args, userID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if !forceRegenerate {
		query += " AND embedding IS NULL"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts for backfill: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// UpdateEmbedding persists a generated embedding vector on a post
func (r *PostRepositoryImpl) UpdateEmbedding(postID string, embedding []float32) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET embedding = $2, updated_at = NOW()
		WHERE id = $1
	`, postID, pq.Array(vectorToFloat64(embedding)))

	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

// ClearEmbeddings nulls embeddings for the scope and returns the affected count
func (r *PostRepositoryImpl) ClearEmbeddings(userID string) (int64, error) {
	query := "UPDATE posts SET embedding = NULL, updated_at = NOW() WHERE embedding IS NOT NULL"
	args := []interface{}{}

	if userID != "" {
		args = append(args, userID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear embeddings: %w", err)
	}

	cleared, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared embeddings: %w", err)
	}

	return cleared, nil
}

// GetEmbeddingStats returns embedding coverage counts for the scope
func (r *PostRepositoryImpl) GetEmbeddingStats(userID string) (EmbeddingStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(embedding)
		FROM posts`
	args := []interface{}{}

	if userID != "" {
		args = append(args, userID)
		query += fmt.Sprintf(" WHERE user_id = $%d", len(args))
	}

	var stats EmbeddingStats
	err := r.db.QueryRow(query, args...).Scan(&stats.TotalPosts, &stats.PostsWithEmbeddings)
	if err != nil {
		return EmbeddingStats{}, fmt.Errorf("failed to get embedding stats: %w", err)
	}

	stats.PostsWithoutEmbeddings = stats.TotalPosts - stats.PostsWithEmbeddings
	return stats, nil
}

// GetPostsForInsightSync returns the user's published posts tagged for the
// platform within the trailing window whose insight snapshot is either
// missing or older than the cooldown.
func (r *PostRepositoryImpl) GetPostsForInsightSync(userID, platform string, window, cooldown time.Duration) ([]Post, error) {
	publishedAfter := time.Now().UTC().Add(-window)
	syncedBefore := time.Now().UTC().Add(-cooldown)

	rows, err := r.db.Query(`
		SELECT `+postColumns+`
		FROM posts
		WHERE user_id = $1
		  AND status = 'published'
		  AND $2 = ANY(platforms)
		  AND published_at >= $3
		  AND NOT EXISTS (
		      SELECT 1 FROM ai_insights i
		      WHERE i.post_id = posts.id
		        AND i.platform = $2
		        AND i.last_synced_at > $4
		  )
		ORDER BY published_at DESC
	`, userID, platform, publishedAfter, syncedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts for insight sync: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// UpdateEngagementCounters propagates the latest raw counters onto a post
func (r *PostRepositoryImpl) UpdateEngagementCounters(postID string, counters EngagementCounters) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET likes = $2, comments = $3, shares = $4, reach = $5, impressions = $6, updated_at = NOW()
		WHERE id = $1
	`, postID, counters.Likes, counters.Comments, counters.Shares, counters.Reach, counters.Impressions)

	if err != nil {
		return fmt.Errorf("failed to update engagement counters: %w", err)
	}

	return nil
}

// GetTopTags returns the user's most used tags
func (r *PostRepositoryImpl) GetTopTags(userID string, limit int) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT tag
		FROM posts, unnest(tags) AS tag
		WHERE user_id = $1
		GROUP BY tag
		ORDER BY COUNT(*) DESC, tag
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}

	return tags, nil
}

// GetPostCount returns the total number of posts
func (r *PostRepositoryImpl) GetPostCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		var post Post
		var embedding pq.Float64Array
		var externalRefs []byte

		err := rows.Scan(
			&post.ID, &post.UserID, &post.Title, &post.Content, &post.ContentType,
			pq.Array(&post.Platforms), &post.Status, &post.PublishedAt, pq.Array(&post.Tags),
			&embedding, &externalRefs, &post.Likes, &post.Comments, &post.Shares,
			&post.Reach, &post.Impressions, &post.CreatedAt, &post.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}

		post.Embedding = vectorToFloat32(embedding)
		if len(externalRefs) > 0 {
			if err := json.Unmarshal(externalRefs, &post.ExternalRefs); err != nil {
				return nil, fmt.Errorf("failed to decode external refs: %w", err)
			}
		}

		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

// Embeddings are float32 in memory but stored as double precision[], which
// lib/pq maps to []float64.
func vectorToFloat64(v []float32) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func vectorToFloat32(v []float64) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
