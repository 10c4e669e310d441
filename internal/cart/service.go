package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/internal/inventory"
	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
)

const expiryActor = "system:reservation-expiry"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReserver interface {
	ReserveTx(ctx context.Context, tx *gorm.DB, input inventory.StockMutationInput) (bool, error)
	ReleaseTx(ctx context.Context, tx *gorm.DB, input inventory.StockMutationInput) error
}

// Service manages cart items and the stock reservations that back them.
// Adding an item reserves stock; removing it, shrinking it, or letting the
// reservation expire releases the hold again.
type Service interface {
	AddItem(ctx context.Context, input AddItemInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) error
	ClearCart(ctx context.Context, customerID uuid.UUID) error
	ListItems(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error)
	ExpireReservations(ctx context.Context, now time.Time) (int, error)
}

// AddItemInput captures a new cart line.
type AddItemInput struct {
	CustomerID  uuid.UUID
	SizeID      uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

type service struct {
	repo  Repository
	tx    txRunner
	stock stockReserver
	ttl   time.Duration
	logg  *logger.Logger
}

// NewService wires the cart service. ttl is how long a reservation holds
// stock before the scanner reclaims it.
func NewService(repo Repository, tx txRunner, stock stockReserver, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("reservation ttl must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, stock: stock, ttl: ttl, logg: logg}, nil
}

// AddItem reserves stock for the requested quantity and records the cart
// line. Adding a size already in the cart grows the existing line instead.
func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.CartItem, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.SizeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}

	var item *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindPendingByCustomerAndSize(ctx, input.CustomerID, input.SizeID)
		if err != nil {
			return err
		}

		reference := newReferenceNumber()
		if existing != nil {
			reference = existing.ReferenceNumber
		}

		ok, err := s.stock.ReserveTx(ctx, tx, inventory.StockMutationInput{
			SizeID:          input.SizeID,
			Quantity:        input.Quantity,
			ReferenceNumber: reference,
			Actor:           "customer:" + input.CustomerID.String(),
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock to add item to cart").
				WithDetails(map[string]any{"size_id": input.SizeID, "requested": input.Quantity})
		}

		if existing != nil {
			existing.Quantity += input.Quantity
			existing.UnitPrice = input.UnitPrice
			existing.ReservedUntil = time.Now().Add(s.ttl)
			if err := repo.Save(ctx, existing); err != nil {
				return err
			}
			item = existing
			return nil
		}

		item = &models.CartItem{
			CustomerID:       input.CustomerID,
			SizeID:           input.SizeID,
			ProductName:      input.ProductName,
			Quantity:         input.Quantity,
			UnitPrice:        input.UnitPrice,
			ReferenceNumber:  reference,
			ReservationState: enums.ReservationStatePending,
			ReservedUntil:    time.Now().Add(s.ttl),
		}
		return repo.Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithSizeID(ctx, input.SizeID.String()), "cart item added")
	return item, nil
}

// UpdateQuantity resizes a cart line, reserving or releasing the
// difference, and refreshes the reservation window.
func (s *service) UpdateQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if customerID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id and item id are required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var item *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		if found == nil || found.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if found.ReservationState != enums.ReservationStatePending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart item reservation is no longer pending")
		}

		delta := quantity - found.Quantity
		mutation := inventory.StockMutationInput{
			SizeID:          found.SizeID,
			ReferenceNumber: found.ReferenceNumber,
			Actor:           "customer:" + customerID.String(),
		}
		switch {
		case delta > 0:
			mutation.Quantity = delta
			ok, err := s.stock.ReserveTx(ctx, tx, mutation)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock to grow cart item").
					WithDetails(map[string]any{"size_id": found.SizeID, "requested": delta})
			}
		case delta < 0:
			mutation.Quantity = -delta
			if err := s.stock.ReleaseTx(ctx, tx, mutation); err != nil {
				return err
			}
		}

		found.Quantity = quantity
		found.ReservedUntil = time.Now().Add(s.ttl)
		if err := repo.Save(ctx, found); err != nil {
			return err
		}
		item = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem releases the item's reservation and deletes the line.
func (s *service) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) error {
	if customerID == uuid.Nil || itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id and item id are required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		if found == nil || found.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return s.releaseAndDelete(ctx, tx, repo, found, "customer:"+customerID.String())
	})
}

// ClearCart removes every pending line for the customer, releasing each
// reservation.
func (s *service) ClearCart(ctx context.Context, customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items, err := repo.ListPendingByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		for i := range items {
			if err := s.releaseAndDelete(ctx, tx, repo, &items[i], "customer:"+customerID.String()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) ListItems(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.repo.ListPendingByCustomer(ctx, customerID)
}

// releaseAndDelete wins the compare-and-swap out of pending before touching
// the ledger; a line something else already moved is just deleted.
func (s *service) releaseAndDelete(ctx context.Context, tx *gorm.DB, repo Repository, item *models.CartItem, actor string) error {
	if item.ReservationState == enums.ReservationStatePending {
		won, err := repo.TransitionState(ctx, item.ID, enums.ReservationStatePending, enums.ReservationStateReleased)
		if err != nil {
			return err
		}
		if won {
			if err := s.stock.ReleaseTx(ctx, tx, inventory.StockMutationInput{
				SizeID:          item.SizeID,
				Quantity:        item.Quantity,
				ReferenceNumber: item.ReferenceNumber,
				Actor:           actor,
			}); err != nil {
				return err
			}
		}
	}
	return repo.Delete(ctx, item.ID)
}

// ExpireReservations reclaims stock from reservations whose window has
// passed. Each item is handled in its own transaction so one bad row
// cannot block the rest of the sweep. Returns how many items were expired.
func (s *service) ExpireReservations(ctx context.Context, now time.Time) (int, error) {
	items, err := s.repo.ListExpired(ctx, now, 0)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs error
	for i := range items {
		item := items[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			won, err := repo.TransitionState(ctx, item.ID, enums.ReservationStatePending, enums.ReservationStateReleased)
			if err != nil {
				return err
			}
			if !won {
				return nil
			}
			if err := s.stock.ReleaseTx(ctx, tx, inventory.StockMutationInput{
				SizeID:          item.SizeID,
				Quantity:        item.Quantity,
				ReferenceNumber: item.ReferenceNumber,
				Actor:           expiryActor,
			}); err != nil {
				return err
			}
			expired++
			return repo.Delete(ctx, item.ID)
		})
		if err != nil {
			s.logg.Error(s.logg.WithSizeID(ctx, item.SizeID.String()), "expiring reservation failed", err)
			errs = multierr.Append(errs, err)
		}
	}

	if expired > 0 {
		s.logg.Info(ctx, fmt.Sprintf("expired %d cart reservations", expired))
	}
	return expired, errs
}

func newReferenceNumber() string {
	return "RSV-" + strings.ToUpper(uuid.NewString()[:8])
}
