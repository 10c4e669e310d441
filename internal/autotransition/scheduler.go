package autotransition

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvfashion/backend/pkg/config"
	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
)

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Scheduler creates durable delayed transitions for orders. It suppresses
// duplicates: one unexecuted row per (order, transition type).
type Scheduler interface {
	Schedule(ctx context.Context, orderID uuid.UUID, transitionType enums.AutoTransitionType, base time.Time) (*models.OrderAutoTransition, error)
	ScheduleNextFor(ctx context.Context, order *models.Order, base time.Time) (*models.OrderAutoTransition, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderAutoTransition, error)
}

type scheduler struct {
	repo   Repository
	orders orderLoader
	cfg    config.AutoTransitionConfig
	logg   *logger.Logger
}

// NewScheduler wires the transition scheduler.
func NewScheduler(repo Repository, orders orderLoader, cfg config.AutoTransitionConfig, logg *logger.Logger) (Scheduler, error) {
	if repo == nil {
		return nil, fmt.Errorf("transition repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &scheduler{repo: repo, orders: orders, cfg: cfg, logg: logg}, nil
}

// Schedule records a delayed transition for the order. The order must
// currently sit in the transition's source status. Scheduling is a no-op
// returning nil when the feature is disabled, and returns the existing row
// when one is already pending for the same (order, type).
func (s *scheduler) Schedule(ctx context.Context, orderID uuid.UUID, transitionType enums.AutoTransitionType, base time.Time) (*models.OrderAutoTransition, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !transitionType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transition type %q", transitionType))
	}
	spec, ok := transitionSpecs[transitionType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("transition type %q has no lifecycle edge", transitionType))
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != spec.From {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in the transition's source status").
			WithDetails(map[string]any{"status": order.Status, "expected": spec.From})
	}

	existing, err := s.repo.FindPending(ctx, orderID, transitionType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if base.IsZero() {
		base = time.Now()
	}
	row := &models.OrderAutoTransition{
		OrderID:        orderID,
		TransitionType: transitionType,
		FromStatus:     spec.From,
		ToStatus:       spec.To,
		ScheduledAt:    snapToBusinessHours(base.Add(delayFor(s.cfg, transitionType)), s.cfg),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"transition_type": transitionType,
		"scheduled_at":    row.ScheduledAt,
	})
	s.logg.Info(logCtx, "auto transition scheduled")
	return row, nil
}

// ScheduleNextFor continues the chain for the status the order just
// entered. Statuses with no follow-up transition return nil.
func (s *scheduler) ScheduleNextFor(ctx context.Context, order *models.Order, base time.Time) (*models.OrderAutoTransition, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	next, ok := typeForStatus[order.Status]
	if !ok {
		return nil, nil
	}
	return s.Schedule(ctx, order.ID, next, base)
}

// Cancel retires every pending transition for the order. Used when a
// manual status change makes the scheduled ones meaningless.
func (s *scheduler) Cancel(ctx context.Context, orderID uuid.UUID) (int64, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.repo.CancelPendingForOrder(ctx, orderID, time.Now())
}

func (s *scheduler) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderAutoTransition, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.repo.ListByOrder(ctx, orderID)
}
