package autotransition

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/dvfashion/backend/internal/orders"
	"github.com/dvfashion/backend/pkg/config"
	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/logger"
)

const executorActor = "system:auto-transition"

// Execution results stored on processed rows.
const (
	resultSuccess   = "SUCCESS"
	resultCancelled = "CANCELLED"
)

type orderTransitioner interface {
	Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error)
}

// ExecutionSummary reports one executor pass.
type ExecutionSummary struct {
	Due       int
	Succeeded int
	Skipped   int
	Failed    int
}

// Executor runs due transitions. Each row is settled exactly once: the
// outcome lands in its ExecutionResult and the row never comes up again.
type Executor interface {
	ExecuteDue(ctx context.Context, now time.Time) (ExecutionSummary, error)
}

type executor struct {
	repo      Repository
	orders    orderLoader
	lifecycle orderTransitioner
	scheduler Scheduler
	cfg       config.AutoTransitionConfig
	logg      *logger.Logger
}

// NewExecutor wires the transition executor.
func NewExecutor(repo Repository, ordersRepo orderLoader, lifecycle orderTransitioner, sched Scheduler, cfg config.AutoTransitionConfig, logg *logger.Logger) (Executor, error) {
	if repo == nil {
		return nil, fmt.Errorf("transition repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("order lifecycle required")
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &executor{
		repo:      repo,
		orders:    ordersRepo,
		lifecycle: lifecycle,
		scheduler: sched,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

// ExecuteDue processes every transition scheduled at or before now, oldest
// first. A row whose order moved on since scheduling is settled as skipped;
// a failing row is settled as failed and does not stop the rest. Passes that
// land outside the business-hours window do nothing when the window is on.
func (e *executor) ExecuteDue(ctx context.Context, now time.Time) (ExecutionSummary, error) {
	summary := ExecutionSummary{}
	if !e.cfg.Enabled {
		return summary, nil
	}
	if !withinBusinessHours(now, e.cfg) {
		return summary, nil
	}

	due, err := e.repo.ListDue(ctx, now, 0)
	if err != nil {
		return summary, err
	}
	summary.Due = len(due)

	var errs error
	for i := range due {
		row := due[i]
		if err := e.executeOne(ctx, &row, now, &summary); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if summary.Due > 0 {
		e.logg.Info(e.logg.WithFields(ctx, map[string]any{
			"due":       summary.Due,
			"succeeded": summary.Succeeded,
			"skipped":   summary.Skipped,
			"failed":    summary.Failed,
		}), "auto transition pass finished")
	}
	return summary, errs
}

func (e *executor) executeOne(ctx context.Context, row *models.OrderAutoTransition, now time.Time, summary *ExecutionSummary) error {
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"transition_id":   row.ID,
		"transition_type": row.TransitionType,
	})

	order, err := e.orders.FindByID(ctx, row.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		summary.Failed++
		e.logg.Warn(logCtx, "scheduled transition references missing order")
		return e.repo.MarkExecuted(ctx, row.ID, "FAILED: order not found", now)
	}

	logCtx = e.logg.WithOrderNumber(logCtx, order.OrderNumber)

	if order.Status != row.FromStatus {
		summary.Skipped++
		e.logg.Info(logCtx, "skipping transition: order status moved on")
		return e.repo.MarkExecuted(ctx, row.ID, fmt.Sprintf("SKIPPED: order status is %s", order.Status), now)
	}

	updated, err := e.lifecycle.Transition(ctx, orders.TransitionInput{
		OrderID: order.ID,
		Target:  row.ToStatus,
		Actor:   executorActor,
	})
	if err != nil {
		summary.Failed++
		e.logg.Error(logCtx, "auto transition failed", err)
		if markErr := e.repo.MarkExecuted(ctx, row.ID, fmt.Sprintf("FAILED: %s", err.Error()), now); markErr != nil {
			return multierr.Combine(err, markErr)
		}
		return err
	}

	summary.Succeeded++
	if err := e.repo.MarkExecuted(ctx, row.ID, resultSuccess, now); err != nil {
		return err
	}

	if e.cfg.NotifyCustomerOnTransition {
		e.logg.Info(logCtx, "customer notification queued for status change")
	}

	// Chain the follow-up transition for the status just entered.
	if _, err := e.scheduler.ScheduleNextFor(ctx, updated, now); err != nil {
		e.logg.Error(logCtx, "scheduling follow-up transition failed", err)
		return err
	}
	return nil
}
