package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
	"github.com/dvfashion/backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns every mutation of the per-size stock ledger. All writes go
// through a per-size lock and a single transaction so the two counters and
// the audit trail never drift apart. Inside the transaction the ledger row
// is read FOR UPDATE, so a mutation also serializes against writers in other
// processes and against caller-owned transactions that have not committed.
//
// The Tx variants run against a caller-supplied transaction so orchestration
// code (cart, checkout) can commit a stock move together with its own rows.
// Their size mutex is released before the caller commits; the row lock held
// by the open transaction is what keeps later writers out until then.
type Service interface {
	Reserve(ctx context.Context, input StockMutationInput) (bool, error)
	ReserveTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) (bool, error)
	Release(ctx context.Context, input StockMutationInput) error
	ReleaseTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) error
	ConfirmReserved(ctx context.Context, input StockMutationInput) error
	ConfirmReservedTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) error
	CheckAvailability(ctx context.Context, sizeID uuid.UUID, quantity int) (bool, error)
	AvailableQuantity(ctx context.Context, sizeID uuid.UUID) (int, error)
	ImportStock(ctx context.Context, input StockMutationInput) error
	ExportStock(ctx context.Context, input StockMutationInput) error
	AdjustStock(ctx context.Context, input AdjustStockInput) error
	ProcessReturn(ctx context.Context, input StockMutationInput) error
	ProcessReturnTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) error
	GetBySize(ctx context.Context, sizeID uuid.UUID) (*models.Inventory, error)
	TransactionHistory(ctx context.Context, sizeID uuid.UUID, limit int) ([]models.StockTransaction, error)
	Stats(ctx context.Context) (*StockStats, error)
	LowStockItems(ctx context.Context) ([]models.Inventory, error)
	OutOfStockItems(ctx context.Context) ([]models.Inventory, error)
}

// StockMutationInput carries the data every ledger mutation shares.
type StockMutationInput struct {
	SizeID          uuid.UUID
	Quantity        int
	ReferenceNumber string
	OrderID         *uuid.UUID
	Actor           string
	Notes           *string
}

// AdjustStockInput corrects on-hand stock by a signed delta.
type AdjustStockInput struct {
	SizeID          uuid.UUID
	Delta           int
	ReferenceNumber string
	Actor           string
	Notes           *string
}

// StockStats summarizes the whole catalog for the admin report.
type StockStats struct {
	TotalSizes      int64 `json:"total_sizes"`
	TotalInStock    int64 `json:"total_in_stock"`
	TotalReserved   int64 `json:"total_reserved"`
	TotalAvailable  int64 `json:"total_available"`
	LowStockCount   int64 `json:"low_stock_count"`
	OutOfStockCount int64 `json:"out_of_stock_count"`
}

type service struct {
	tx      txRunner
	repo    Repository
	locks   *sizeLocks
	logg    *logger.Logger
	metrics *metrics.InventoryMetrics
}

// NewService wires the inventory service.
func NewService(tx txRunner, repo Repository, logg *logger.Logger, m *metrics.InventoryMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		locks:   newSizeLocks(),
		logg:    logg,
		metrics: m,
	}, nil
}

func (i StockMutationInput) validate() error {
	if i.SizeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "size id is required")
	}
	if i.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if i.ReferenceNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference number is required")
	}
	if i.Actor == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	return nil
}

// Reserve moves quantity from available into reserved. It reports false,
// without error, when the size does not have enough available stock.
func (s *service) Reserve(ctx context.Context, input StockMutationInput) (bool, error) {
	if err := input.validate(); err != nil {
		return false, err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	reserved := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		reserved, txErr = s.reserveLocked(ctx, s.repo.WithTx(tx), input)
		return txErr
	})
	return s.finishReserve(ctx, reserved, err)
}

// ReserveTx is Reserve against a caller-owned transaction.
func (s *service) ReserveTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) (bool, error) {
	if err := input.validate(); err != nil {
		return false, err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	reserved, err := s.reserveLocked(ctx, s.repo.WithTx(tx), input)
	return s.finishReserve(ctx, reserved, err)
}

func (s *service) reserveLocked(ctx context.Context, repo Repository, input StockMutationInput) (bool, error) {
	inv, err := repo.FindBySizeIDForUpdate(ctx, input.SizeID)
	if err != nil {
		return false, err
	}
	if inv == nil {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found for size")
	}
	if inv.AvailableQuantity() < input.Quantity {
		return false, nil
	}

	inv.ReservedQuantity += input.Quantity
	if err := repo.Save(ctx, inv); err != nil {
		return false, err
	}
	if err := repo.RecordTransaction(ctx, buildTransaction(inv, input, enums.StockTransactionReserve, 0, input.Quantity)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) finishReserve(ctx context.Context, reserved bool, err error) (bool, error) {
	if err != nil {
		s.metrics.IncOperation("reserve", "error")
		return false, err
	}
	if !reserved {
		s.metrics.IncOperation("reserve", "insufficient_stock")
		s.logg.Info(ctx, "reservation declined: insufficient available stock")
		return false, nil
	}
	s.metrics.IncOperation("reserve", "ok")
	s.logg.Info(ctx, "stock reserved")
	return true, nil
}

// Release returns reserved quantity to the available pool. Releasing more
// than is currently reserved releases what is left and stops at zero.
func (s *service) Release(ctx context.Context, input StockMutationInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.releaseLocked(ctx, s.repo.WithTx(tx), input)
	})
	return s.finishMutation(ctx, "release", "reserved stock released", err)
}

// ReleaseTx is Release against a caller-owned transaction.
func (s *service) ReleaseTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	err := s.releaseLocked(ctx, s.repo.WithTx(tx), input)
	return s.finishMutation(ctx, "release", "reserved stock released", err)
}

func (s *service) releaseLocked(ctx context.Context, repo Repository, input StockMutationInput) error {
	inv, err := repo.FindBySizeIDForUpdate(ctx, input.SizeID)
	if err != nil {
		return err
	}
	if inv == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found for size")
	}

	released := min(input.Quantity, inv.ReservedQuantity)
	if released == 0 {
		return nil
	}

	inv.ReservedQuantity -= released
	if err := repo.Save(ctx, inv); err != nil {
		return err
	}
	logged := input
	logged.Quantity = released
	return repo.RecordTransaction(ctx, buildTransaction(inv, logged, enums.StockTransactionRelease, 0, -released))
}

// ConfirmReserved converts a reservation into a sale: both on-hand and
// reserved drop together. Quantity is clamped to what is actually reserved
// so a late confirm after a sweep cannot drive the counters negative.
func (s *service) ConfirmReserved(ctx context.Context, input StockMutationInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.confirmLocked(ctx, s.repo.WithTx(tx), input)
	})
	return s.finishMutation(ctx, "confirm", "reserved stock confirmed", err)
}

// ConfirmReservedTx is ConfirmReserved against a caller-owned transaction.
func (s *service) ConfirmReservedTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	err := s.confirmLocked(ctx, s.repo.WithTx(tx), input)
	return s.finishMutation(ctx, "confirm", "reserved stock confirmed", err)
}

func (s *service) confirmLocked(ctx context.Context, repo Repository, input StockMutationInput) error {
	inv, err := repo.FindBySizeIDForUpdate(ctx, input.SizeID)
	if err != nil {
		return err
	}
	if inv == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found for size")
	}

	confirmed := min(input.Quantity, inv.ReservedQuantity)
	if confirmed < input.Quantity {
		s.logg.Warn(ctx, "confirm clamped to remaining reservation")
	}
	if confirmed == 0 {
		return nil
	}

	inv.QuantityInStock -= confirmed
	inv.ReservedQuantity -= confirmed
	if err := repo.Save(ctx, inv); err != nil {
		return err
	}
	logged := input
	logged.Quantity = confirmed
	return repo.RecordTransaction(ctx, buildTransaction(inv, logged, enums.StockTransactionConfirmed, -confirmed, -confirmed))
}

func (s *service) finishMutation(ctx context.Context, operation, successMsg string, err error) error {
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			s.metrics.IncOperation(operation, "insufficient_stock")
		} else {
			s.metrics.IncOperation(operation, "error")
		}
		return err
	}
	s.metrics.IncOperation(operation, "ok")
	s.logg.Info(ctx, successMsg)
	return nil
}

func (s *service) CheckAvailability(ctx context.Context, sizeID uuid.UUID, quantity int) (bool, error) {
	available, err := s.AvailableQuantity(ctx, sizeID)
	if err != nil {
		return false, err
	}
	return available >= quantity, nil
}

func (s *service) AvailableQuantity(ctx context.Context, sizeID uuid.UUID) (int, error) {
	if sizeID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "size id is required")
	}
	inv, err := s.repo.FindBySizeID(ctx, sizeID)
	if err != nil {
		return 0, err
	}
	if inv == nil {
		return 0, nil
	}
	return inv.AvailableQuantity(), nil
}

// ImportStock adds received goods to the on-hand count, creating the
// ledger row the first time a size is stocked.
func (s *service) ImportStock(ctx context.Context, input StockMutationInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv, err := repo.FindBySizeIDForUpdate(ctx, input.SizeID)
		if err != nil {
			return err
		}
		if inv == nil {
			inv = &models.Inventory{SizeID: input.SizeID}
			if err := repo.Create(ctx, inv); err != nil {
				return err
			}
		}

		inv.QuantityInStock += input.Quantity
		if err := repo.Save(ctx, inv); err != nil {
			return err
		}
		return repo.RecordTransaction(ctx, buildTransaction(inv, input, enums.StockTransactionInbound, input.Quantity, 0))
	})
	return s.finishMutation(ctx, "import", "stock imported", err)
}

// ExportStock removes on-hand goods that were never reserved, e.g. a
// wholesale shipment. It refuses to dip into reserved stock.
func (s *service) ExportStock(ctx context.Context, input StockMutationInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv, err := repo.FindBySizeIDForUpdate(ctx, input.SizeID)
		if err != nil {
			return err
		}
		if inv == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found for size")
		}
		if inv.AvailableQuantity() < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough available stock to export").
				WithDetails(map[string]any{
					"size_id":   input.SizeID,
					"requested": input.Quantity,
					"available": inv.AvailableQuantity(),
				})
		}

		inv.QuantityInStock -= input.Quantity
		if err := repo.Save(ctx, inv); err != nil {
			return err
		}
		return repo.RecordTransaction(ctx, buildTransaction(inv, input, enums.StockTransactionOutbound, -input.Quantity, 0))
	})
	return s.finishMutation(ctx, "export", "stock exported", err)
}

// AdjustStock applies a signed correction after a physical count. Negative
// deltas may not push on-hand below what is currently reserved.
func (s *service) AdjustStock(ctx context.Context, input AdjustStockInput) error {
	if input.SizeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "size id is required")
	}
	if input.Delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta must be non-zero")
	}
	if input.ReferenceNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference number is required")
	}
	if input.Actor == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv, err := repo.FindBySizeIDForUpdate(ctx, input.SizeID)
		if err != nil {
			return err
		}
		if inv == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found for size")
		}
		if inv.QuantityInStock+input.Delta < inv.ReservedQuantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "adjustment would drop on-hand below reserved").
				WithDetails(map[string]any{
					"size_id":  input.SizeID,
					"delta":    input.Delta,
					"on_hand":  inv.QuantityInStock,
					"reserved": inv.ReservedQuantity,
				})
		}

		inv.QuantityInStock += input.Delta
		if err := repo.Save(ctx, inv); err != nil {
			return err
		}

		txnType := enums.StockTransactionAdjustmentIn
		quantity := input.Delta
		if input.Delta < 0 {
			txnType = enums.StockTransactionAdjustmentOut
			quantity = -input.Delta
		}
		return repo.RecordTransaction(ctx, &models.StockTransaction{
			InventoryID:     inv.ID,
			SizeID:          inv.SizeID,
			Type:            txnType,
			Quantity:        quantity,
			StockDelta:      input.Delta,
			ReferenceNumber: input.ReferenceNumber,
			Actor:           input.Actor,
			Notes:           input.Notes,
		})
	})
	return s.finishMutation(ctx, "adjust", "stock adjusted", err)
}

// ProcessReturn puts returned goods back on hand.
func (s *service) ProcessReturn(ctx context.Context, input StockMutationInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.returnLocked(ctx, s.repo.WithTx(tx), input)
	})
	return s.finishMutation(ctx, "return", "returned stock restocked", err)
}

// ProcessReturnTx is ProcessReturn against a caller-owned transaction.
func (s *service) ProcessReturnTx(ctx context.Context, tx *gorm.DB, input StockMutationInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	ctx = s.logg.WithSizeID(ctx, input.SizeID.String())

	unlock := s.locks.Acquire(input.SizeID)
	defer unlock()

	err := s.returnLocked(ctx, s.repo.WithTx(tx), input)
	return s.finishMutation(ctx, "return", "returned stock restocked", err)
}

func (s *service) returnLocked(ctx context.Context, repo Repository, input StockMutationInput) error {
	inv, err := repo.FindBySizeIDForUpdate(ctx, input.SizeID)
	if err != nil {
		return err
	}
	if inv == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found for size")
	}

	inv.QuantityInStock += input.Quantity
	if err := repo.Save(ctx, inv); err != nil {
		return err
	}
	return repo.RecordTransaction(ctx, buildTransaction(inv, input, enums.StockTransactionReturn, input.Quantity, 0))
}

func (s *service) GetBySize(ctx context.Context, sizeID uuid.UUID) (*models.Inventory, error) {
	if sizeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size id is required")
	}
	inv, err := s.repo.FindBySizeID(ctx, sizeID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found for size")
	}
	return inv, nil
}

func (s *service) TransactionHistory(ctx context.Context, sizeID uuid.UUID, limit int) ([]models.StockTransaction, error) {
	if sizeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size id is required")
	}
	return s.repo.ListTransactionsBySize(ctx, sizeID, limit)
}

func (s *service) Stats(ctx context.Context) (*StockStats, error) {
	agg, err := s.repo.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	return &StockStats{
		TotalSizes:      agg.TotalSizes,
		TotalInStock:    agg.TotalInStock,
		TotalReserved:   agg.TotalReserved,
		TotalAvailable:  agg.TotalInStock - agg.TotalReserved,
		LowStockCount:   agg.LowStockCount,
		OutOfStockCount: agg.OutOfStockCount,
	}, nil
}

func (s *service) LowStockItems(ctx context.Context) ([]models.Inventory, error) {
	return s.repo.ListLowStock(ctx)
}

func (s *service) OutOfStockItems(ctx context.Context) ([]models.Inventory, error) {
	return s.repo.ListOutOfStock(ctx)
}

func buildTransaction(inv *models.Inventory, input StockMutationInput, txnType enums.StockTransactionType, stockDelta, reservedDelta int) *models.StockTransaction {
	return &models.StockTransaction{
		InventoryID:     inv.ID,
		SizeID:          inv.SizeID,
		Type:            txnType,
		Quantity:        input.Quantity,
		StockDelta:      stockDelta,
		ReservedDelta:   reservedDelta,
		ReferenceNumber: input.ReferenceNumber,
		OrderID:         input.OrderID,
		Actor:           input.Actor,
		Notes:           input.Notes,
	}
}
