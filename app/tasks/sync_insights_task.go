package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/postsense/postsense/app/insights"
)

// SyncInsightsTask runs one unattended insight sync for a user/platform
// pair whose cooldown has expired.
type SyncInsightsTask struct {
	Task
	UserID   string
	Platform string
	engine   *insights.Engine
}

func NewSyncInsightsTask(userID, platform string, engine *insights.Engine) *SyncInsightsTask {
	return &SyncInsightsTask{
		Task:     NewTask(TaskTypeSyncInsights, userID+"/"+platform),
		UserID:   userID,
		Platform: platform,
		engine:   engine,
	}
}

func (t *SyncInsightsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.engine.Sync(ctx, t.UserID, t.Platform, false)
	if err != nil {
		if errors.Is(err, insights.ErrNotConnected) {
			// The account was disconnected since scheduling; not retryable
			slog.Warn("Skipping sync for disconnected platform", "user_id", t.UserID, "platform", t.Platform)
			return nil
		}
		return fmt.Errorf("failed to sync insights: %w", err)
	}

	if summary.CooldownActive {
		slog.Debug("Sync skipped, cooldown active", "user_id", t.UserID, "platform", t.Platform, "next_sync_at", summary.NextSyncAt)
		return nil
	}

	slog.Info("Task completed",
		"type", "SyncInsights",
		"subject", t.GetSubject(),
		"duration", t.GetDuration(),
		"total", summary.TotalPosts,
		"synced", summary.SyncedCount,
		"failed", summary.FailedCount)

	return nil
}
