package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/postsense/postsense/app/cfg"
	"github.com/postsense/postsense/app/database"
	"github.com/postsense/postsense/app/embedding"
	"github.com/postsense/postsense/app/insights"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const dueSyncBatchLimit = 50

type Scheduler struct {
	syncStatusRepo database.SyncStatusRepository
	engine         *insights.Engine
	backfiller     BackfillRunner
	interval       time.Duration
	workerCount    int
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	taskQueue      chan TaskInterface
}

func NewScheduler(syncStatusRepo database.SyncStatusRepository, engine *insights.Engine,
	backfiller BackfillRunner) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		syncStatusRepo: syncStatusRepo,
		engine:         engine,
		backfiller:     backfiller,
		interval:       time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:    cfg.WorkerCount,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return fmt.Errorf("scheduler is stopped")
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	backfillTask := NewBackfillEmbeddingsTask(s.backfiller, embedding.Scope{})
	if err := s.EnqueueTask(backfillTask); err != nil {
		slog.Warn("Failed to enqueue BackfillEmbeddingsTask", "error", err)
	}

	s.enqueueDueSyncs()
}

// enqueueDueSyncs schedules one sync task per user/platform pair whose
// cooldown has expired. The engine re-checks the cooldown on execution, so
// a task that waits in the queue past another sync simply no-ops.
func (s *Scheduler) enqueueDueSyncs() {
	due, err := s.syncStatusRepo.GetDueForSync(dueSyncBatchLimit)
	if err != nil {
		slog.Warn("Failed to query schedules due for sync", "error", err)
		return
	}

	if len(due) == 0 {
		slog.Debug("No sync schedules due")
		return
	}

	slog.Debug("Scheduling due insight syncs", "count", len(due))

	for _, status := range due {
		syncTask := NewSyncInsightsTask(status.UserID, status.Platform, s.engine)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncInsightsTask", "subject", syncTask.GetSubject(), "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
