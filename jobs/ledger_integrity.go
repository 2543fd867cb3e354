package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/receivables/internal/jobs"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/platform/db"
)

// ImbalanceFinder lists ledger headers that break the balance invariant.
type ImbalanceFinder interface {
	FindImbalances(ctx context.Context) ([]ledger.Imbalance, error)
}

// QuerierFinder runs the ledger scan against a database handle.
type QuerierFinder struct {
	Q db.Querier
}

// FindImbalances implements ImbalanceFinder.
func (f QuerierFinder) FindImbalances(ctx context.Context) ([]ledger.Imbalance, error) {
	return ledger.FindImbalances(ctx, f.Q)
}

// LedgerIntegrityJob verifies that every posted header balances.
type LedgerIntegrityJob struct {
	Finder  ImbalanceFinder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLedgerIntegrityJob initialises the integrity scan handler.
func NewLedgerIntegrityJob(finder ImbalanceFinder, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Finder:  finder,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one integrity scan. Violations are reported, never repaired.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Finder == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.clock()
	logger := j.logger().With(
		slog.String("run_id", uuid.NewString()),
		slog.String("trigger", payload.Trigger),
	)
	logger.Info("starting ledger integrity scan")

	found, err := j.Finder.FindImbalances(ctx)
	if err != nil {
		logger.Error("integrity scan failed", slog.Any("error", err))
		return err
	}
	for _, im := range found {
		logger.Warn("ledger integrity violation",
			slog.Int64("header_id", im.HeaderID),
			slog.String("debit", im.Debit.StringFixed(2)),
			slog.String("credit", im.Credit.StringFixed(2)),
			slog.Int("lines", im.LineCount),
		)
	}
	j.Metrics.SetUnbalancedHeaders(len(found))
	logger.Info("ledger integrity scan completed",
		slog.Int("violations", len(found)),
		slog.Duration("elapsed", j.clock().Sub(start)),
	)
	return nil
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
