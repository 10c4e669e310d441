package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/internal/cart"
	"github.com/dvfashion/backend/internal/orders"
	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transitionScheduler interface {
	Schedule(ctx context.Context, orderID uuid.UUID, transitionType enums.AutoTransitionType, base time.Time) (*models.OrderAutoTransition, error)
	ScheduleNextFor(ctx context.Context, order *models.Order, base time.Time) (*models.OrderAutoTransition, error)
}

// Service turns a cart into an order. Execute is all-or-nothing: every cart
// line must still hold a live reservation, otherwise nothing is committed.
type Service interface {
	Execute(ctx context.Context, customerID uuid.UUID) (*models.Order, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	tx         txRunner
	cartRepo   cart.Repository
	ordersRepo orders.Repository
	lifecycle  orders.Service
	scheduler  transitionScheduler
	logg       *logger.Logger
}

// NewService wires the checkout orchestration.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	lifecycle orders.Service,
	scheduler transitionScheduler,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("order lifecycle required")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("transition scheduler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		lifecycle:  lifecycle,
		scheduler:  scheduler,
		logg:       logg,
	}, nil
}

// Execute creates a pending order from the customer's cart. The stock held
// by each cart reservation carries over to the order unchanged; the cart is
// emptied in the same transaction. A line whose reservation expired fails
// the whole checkout, naming the offending size.
func (s *service) Execute(ctx context.Context, customerID uuid.UUID) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		items, err := cartRepo.ListPendingByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		now := time.Now()
		subtotal := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		for i := range items {
			item := items[i]
			if item.ReservedUntil.Before(now) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cart reservation expired").
					WithDetails(map[string]any{"size_id": item.SizeID, "item_id": item.ID})
			}

			// Win the item from the expiry scanner before building on it.
			won, err := cartRepo.TransitionState(ctx, item.ID, enums.ReservationStatePending, enums.ReservationStateConfirmed)
			if err != nil {
				return err
			}
			if !won {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cart reservation no longer pending").
					WithDetails(map[string]any{"size_id": item.SizeID, "item_id": item.ID})
			}

			subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
			orderItems = append(orderItems, models.OrderItem{
				SizeID:          item.SizeID,
				ProductName:     item.ProductName,
				Quantity:        item.Quantity,
				UnitPrice:       item.UnitPrice,
				ReferenceNumber: item.ReferenceNumber,
			})
		}

		order = &models.Order{
			OrderNumber: orders.NewOrderNumber(),
			CustomerID:  customerID,
			Status:      enums.OrderStatusPending,
			Subtotal:    subtotal,
			Total:       subtotal,
			Items:       orderItems,
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			return err
		}

		// The reservations now belong to the order; drop the cart lines.
		for i := range items {
			if err := cartRepo.Delete(ctx, items[i].ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
	s.logg.Info(logCtx, "checkout completed, order pending payment")

	// Abandoned pending orders cancel themselves after the configured delay.
	if _, err := s.scheduler.Schedule(ctx, order.ID, enums.AutoTransitionPendingToCancelled, time.Now()); err != nil {
		s.logg.Error(logCtx, "scheduling pending auto-cancel failed", err)
	}
	return order, nil
}

// ConfirmPayment moves the order to confirmed, consuming the reserved
// stock, and queues the first fulfillment transition.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.lifecycle.Transition(ctx, orders.TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusConfirmed,
		Actor:   "payments",
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.scheduler.ScheduleNextFor(ctx, order, time.Now()); err != nil {
		s.logg.Error(s.logg.WithOrderNumber(ctx, order.OrderNumber), "scheduling fulfillment transition failed", err)
	}
	return order, nil
}
