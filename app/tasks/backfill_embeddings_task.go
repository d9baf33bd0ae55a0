package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/postsense/postsense/app/embedding"
)

// BackfillRunner is the slice of the backfiller this task needs
type BackfillRunner interface {
	Run(ctx context.Context, scope embedding.Scope) (*embedding.Report, error)
}

// BackfillEmbeddingsTask keeps newly authored posts indexed for semantic
// search without an operator having to call the backfill endpoint.
type BackfillEmbeddingsTask struct {
	Task
	Scope      embedding.Scope
	backfiller BackfillRunner
}

func NewBackfillEmbeddingsTask(backfiller BackfillRunner, scope embedding.Scope) *BackfillEmbeddingsTask {
	subject := scope.UserID
	if subject == "" {
		subject = "all"
	}

	return &BackfillEmbeddingsTask{
		Task:       NewTask(TaskTypeBackfillEmbeddings, subject),
		Scope:      scope,
		backfiller: backfiller,
	}
}

func (t *BackfillEmbeddingsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.backfiller.Run(ctx, t.Scope)
	if err != nil {
		return fmt.Errorf("failed to backfill embeddings: %w", err)
	}

	if report.Total == 0 {
		return nil
	}

	slog.Info("Task completed",
		"type", "BackfillEmbeddings",
		"duration", t.GetDuration(),
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped)

	return nil
}
