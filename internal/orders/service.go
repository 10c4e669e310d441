package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/internal/inventory"
	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	ReleaseTx(ctx context.Context, tx *gorm.DB, input inventory.StockMutationInput) error
	ConfirmReservedTx(ctx context.Context, tx *gorm.DB, input inventory.StockMutationInput) error
	ProcessReturnTx(ctx context.Context, tx *gorm.DB, input inventory.StockMutationInput) error
}

// Service owns the order lifecycle. Every status change goes through
// Transition so the stock side effects and timestamps stay consistent with
// the status column.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
}

// TransitionInput names the requested lifecycle move.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   string
}

type service struct {
	repo  Repository
	tx    txRunner
	stock stockLedger
	logg  *logger.Logger
}

// NewService wires the order lifecycle service.
func NewService(repo Repository, tx txRunner, stock stockLedger, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, stock: stock, logg: logg}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

// Transition applies one lifecycle move together with its stock side
// effects, all in one transaction:
//
//   - confirming consumes the reserved stock behind each item
//   - canceling a pending order releases the reservations
//   - canceling after confirmation, or a return, restocks the goods
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Target))
	}
	if input.Actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !CanTransition(order.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition disallowed").
				WithDetails(map[string]any{"from": order.Status, "to": input.Target})
		}

		if err := s.applyStockEffects(ctx, tx, order, input.Target, input.Actor); err != nil {
			return err
		}

		from := order.Status
		order.Status = input.Target
		stampTransition(order, input.Target, time.Now())
		if err := repo.Save(ctx, order); err != nil {
			return err
		}

		logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
		logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": input.Target, "actor": input.Actor})
		s.logg.Info(logCtx, "order status changed")

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) applyStockEffects(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, actor string) error {
	mutationFor := func(item models.OrderItem) inventory.StockMutationInput {
		orderID := order.ID
		return inventory.StockMutationInput{
			SizeID:          item.SizeID,
			Quantity:        item.Quantity,
			ReferenceNumber: item.ReferenceNumber,
			OrderID:         &orderID,
			Actor:           actor,
		}
	}

	switch target {
	case enums.OrderStatusConfirmed:
		for _, item := range order.Items {
			if err := s.stock.ConfirmReservedTx(ctx, tx, mutationFor(item)); err != nil {
				return err
			}
		}
	case enums.OrderStatusCanceled:
		if order.Status == enums.OrderStatusPending {
			for _, item := range order.Items {
				if err := s.stock.ReleaseTx(ctx, tx, mutationFor(item)); err != nil {
					return err
				}
			}
			break
		}
		// Stock was consumed when the order was confirmed.
		for _, item := range order.Items {
			if err := s.stock.ProcessReturnTx(ctx, tx, mutationFor(item)); err != nil {
				return err
			}
		}
	case enums.OrderStatusReturned:
		for _, item := range order.Items {
			if err := s.stock.ProcessReturnTx(ctx, tx, mutationFor(item)); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewOrderNumber builds a human-readable unique order number.
func NewOrderNumber() string {
	return "ORD-" + time.Now().UTC().Format("20060102150405") + "-" + strings.ToUpper(uuid.NewString()[:6])
}
