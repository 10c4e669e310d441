package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dvfashion/backend/internal/autotransition"
	"github.com/dvfashion/backend/pkg/logger"
)

type dueTransitionExecutor interface {
	ExecuteDue(ctx context.Context, now time.Time) (autotransition.ExecutionSummary, error)
}

// AutoTransitionJobParams configure the order auto-transition executor job.
type AutoTransitionJobParams struct {
	Logger   *logger.Logger
	Executor dueTransitionExecutor
}

// NewAutoTransitionJob builds the job that executes scheduled order
// status transitions that have come due.
func NewAutoTransitionJob(params AutoTransitionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Executor == nil {
		return nil, fmt.Errorf("transition executor required")
	}
	return &autoTransitionJob{
		logg:     params.Logger,
		executor: params.Executor,
		now:      time.Now,
	}, nil
}

type autoTransitionJob struct {
	logg     *logger.Logger
	executor dueTransitionExecutor
	now      func() time.Time
}

func (j *autoTransitionJob) Name() string { return "order-auto-transition" }

func (j *autoTransitionJob) Run(ctx context.Context) error {
	summary, err := j.executor.ExecuteDue(ctx, j.now().UTC())
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":       summary.Due,
		"succeeded": summary.Succeeded,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	})
	if err != nil {
		return fmt.Errorf("execute due transitions: %w", err)
	}
	j.logg.Info(logCtx, "auto-transition executor run complete")
	return nil
}
