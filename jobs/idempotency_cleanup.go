package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/receivables/internal/jobs"
)

// TaskIdempotencyCleanup prunes expired posting idempotency keys.
const TaskIdempotencyCleanup = "idempotency:cleanup"

// KeyPruner deletes idempotency keys older than a retention window.
type KeyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob releases keys once clients can no longer retry with them.
type IdempotencyCleanupJob struct {
	Pruner    KeyPruner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault))
}

// Handle runs one cleanup pass.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Pruner == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	removed, err := j.Pruner.Cleanup(ctx, j.Retention)
	if err != nil {
		logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	logger.Info("idempotency keys pruned", slog.Int64("removed", removed), slog.Duration("retention", j.Retention))
	return nil
}
