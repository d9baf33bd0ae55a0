package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/postsense/postsense/app/database"
)

// Item statuses reported by a backfill run.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Scope selects which posts a backfill run covers
type Scope struct {
	UserID          string // empty = all users
	ForceRegenerate bool
	BatchSize       int
}

// ItemResult is the per-post outcome of a backfill run
type ItemResult struct {
	PostID string `json:"post_id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report summarizes a backfill run
type Report struct {
	Total       int          `json:"total"`
	Processed   int          `json:"processed"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Skipped     int          `json:"skipped"`
	SuccessRate float64      `json:"success_rate"`
	Results     []ItemResult `json:"results"`
}

// Backfiller generates missing embeddings in rate-limited batches. Items are
// processed strictly sequentially; one item's failure never aborts the run.
type Backfiller struct {
	posts      database.PostRepository
	provider   Provider
	batchSize  int
	itemDelay  time.Duration
	batchDelay time.Duration
}

// NewBackfiller creates a new backfiller
func NewBackfiller(posts database.PostRepository, provider Provider, batchSize int, itemDelay, batchDelay time.Duration) *Backfiller {
	if batchSize <= 0 {
		batchSize = 10
	}

	return &Backfiller{
		posts:      posts,
		provider:   provider,
		batchSize:  batchSize,
		itemDelay:  itemDelay,
		batchDelay: batchDelay,
	}
}

// BuildEmbeddableText joins title and body into the text sent to the
// embedding provider. Empty result means the post has nothing to index.
func BuildEmbeddableText(title, content string) string {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	switch {
	case title == "":
		return content
	case content == "":
		return title
	default:
		return title + ". " + content
	}
}

// Run scans for posts lacking a vector (or all posts with ForceRegenerate)
// and embeds them batch by batch.
func (b *Backfiller) Run(ctx context.Context, scope Scope) (*Report, error) {
	posts, err := b.posts.GetPostsForBackfill(scope.UserID, scope.ForceRegenerate)
	if err != nil {
		return nil, fmt.Errorf("failed to load backfill candidates: %w", err)
	}

	batchSize := scope.BatchSize
	if batchSize <= 0 {
		batchSize = b.batchSize
	}

	report := &Report{
		Total:   len(posts),
		Results: make([]ItemResult, 0, len(posts)),
	}

	for start := 0; start < len(posts); start += batchSize {
		end := start + batchSize
		if end > len(posts) {
			end = len(posts)
		}

		for _, post := range posts[start:end] {
			result := b.processPost(ctx, post)
			report.Processed++
			report.Results = append(report.Results, result)

			switch result.Status {
			case StatusSuccess:
				report.Succeeded++
			case StatusFailed:
				report.Failed++
			case StatusSkipped:
				report.Skipped++
			}

			if err := sleepCtx(ctx, b.itemDelay); err != nil {
				return nil, err
			}
		}

		if end < len(posts) {
			if err := sleepCtx(ctx, b.batchDelay); err != nil {
				return nil, err
			}
		}
	}

	if report.Processed > 0 {
		report.SuccessRate = float64(report.Succeeded) / float64(report.Processed) * 100
	}

	slog.Info("Embedding backfill completed",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped)

	return report, nil
}

// processPost embeds and persists a single post. Failures are captured in
// the result, never returned, so the batch keeps going.
func (b *Backfiller) processPost(ctx context.Context, post database.Post) ItemResult {
	result := ItemResult{PostID: post.ID, Title: post.Title}

	text := BuildEmbeddableText(post.Title, post.Content)
	if text == "" {
		result.Status = StatusSkipped
		result.Error = "no content to embed"
		return result
	}

	vector, err := b.provider.Embed(ctx, text)
	if err != nil || len(vector) == 0 {
		result.Status = StatusFailed
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Error = ErrEmptyEmbedding.Error()
		}
		slog.Warn("Embedding generation failed", "post_id", post.ID, "error", result.Error)
		return result
	}

	if err := b.posts.UpdateEmbedding(post.ID, vector); err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		slog.Error("Failed to persist embedding", "post_id", post.ID, "error", err)
		return result
	}

	result.Status = StatusSuccess
	return result
}

// Clear nulls embeddings for the scope. Destructive and irreversible; the
// API layer requires an explicit confirmation flag before calling this.
func (b *Backfiller) Clear(ctx context.Context, scope Scope) (int64, error) {
	return b.posts.ClearEmbeddings(scope.UserID)
}

// Status returns embedding coverage for the scope
func (b *Backfiller) Status(userID string) (database.EmbeddingStats, error) {
	return b.posts.GetEmbeddingStats(userID)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
