package scheduler

import (
	"context"
	"fmt"
	"time"

	appfee "github.com/agricoop/backend/internal/application/fee"
	"go.uber.org/zap"
)

// FeeSweeper runs the daily fee sweep
type FeeSweeper interface {
	RunDailySweep(ctx context.Context) (*appfee.DailySweepResult, error)
}

// FeeSweepExecutor executes fee sweep jobs
type FeeSweepExecutor struct {
	sweeper FeeSweeper
	logger  *zap.Logger
}

// NewFeeSweepExecutor creates a new fee sweep executor
func NewFeeSweepExecutor(sweeper FeeSweeper, logger *zap.Logger) *FeeSweepExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeSweepExecutor{sweeper: sweeper, logger: logger}
}

// Execute runs the job. Per-item errors inside the sweep are logged but do
// not fail the job; only step failures do, so the scheduler retries them.
func (e *FeeSweepExecutor) Execute(ctx context.Context, job *Job) error {
	if job.Kind != JobKindDailyFeeSweep {
		return fmt.Errorf("%w: %s", ErrInvalidJobKind, job.Kind)
	}

	start := time.Now()
	result, err := e.sweeper.RunDailySweep(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSweepFailed, err)
	}

	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("trigger", job.Trigger),
		zap.Duration("duration", time.Since(start)),
	}
	if result.Activated != nil {
		fields = append(fields,
			zap.Int("rules_activated", result.Activated.Updated),
			zap.Int("activation_errors", len(result.Activated.Errors)))
	}
	if result.Applied != nil {
		fields = append(fields,
			zap.Int("rules_checked", result.Applied.RulesChecked),
			zap.Int("fees_applied", result.Applied.AppliedCount),
			zap.Int("apply_errors", len(result.Applied.Errors)))
	}
	if result.Overdue != nil {
		fields = append(fields,
			zap.Int("fees_overdue", result.Overdue.Updated),
			zap.Int("overdue_errors", len(result.Overdue.Errors)))
	}
	e.logger.Info("Daily fee sweep finished", fields...)
	return nil
}
