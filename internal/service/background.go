package service

import (
	"context"
	"time"

	"pagequiz/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TaskRunner executes fire-and-forget background work. Tasks are decoupled
// from the lifetime of the request that spawned them: they get a fresh
// context bounded only by the task timeout, and their completion is
// observed through subsequent session-store reads, never through a callback
// to the original caller.
type TaskRunner struct {
	group       *errgroup.Group
	taskTimeout time.Duration
}

func NewTaskRunner(taskTimeout time.Duration) *TaskRunner {
	if taskTimeout <= 0 {
		taskTimeout = 2 * time.Minute
	}
	return &TaskRunner{
		group:       new(errgroup.Group),
		taskTimeout: taskTimeout,
	}
}

// Submit schedules a task. Task errors are logged, not propagated: the
// tasks this runner carries write their outcome into the session store
// themselves.
func (r *TaskRunner) Submit(name string, task func(ctx context.Context) error) {
	r.group.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), r.taskTimeout)
		defer cancel()

		start := time.Now()
		if err := task(ctx); err != nil {
			logger.Get().Error("background task failed",
				zap.String("task", name),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
			return nil
		}
		logger.Get().Debug("background task finished",
			zap.String("task", name),
			zap.Duration("duration", time.Since(start)))
		return nil
	})
}

// Drain waits for in-flight tasks to finish, giving up when ctx expires.
// Used during graceful shutdown so a generation that already cost provider
// tokens gets a chance to land in the store.
func (r *TaskRunner) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
