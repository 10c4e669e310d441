package inventory

import (
	"context"
	"errors"

	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for inventory rows and the stock
// transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBySizeID(ctx context.Context, sizeID uuid.UUID) (*models.Inventory, error)
	FindBySizeIDForUpdate(ctx context.Context, sizeID uuid.UUID) (*models.Inventory, error)
	FindBySizeIDs(ctx context.Context, sizeIDs []uuid.UUID) ([]models.Inventory, error)
	Create(ctx context.Context, inv *models.Inventory) error
	Save(ctx context.Context, inv *models.Inventory) error
	RecordTransaction(ctx context.Context, txn *models.StockTransaction) error
	ListTransactionsBySize(ctx context.Context, sizeID uuid.UUID, limit int) ([]models.StockTransaction, error)
	ListLowStock(ctx context.Context) ([]models.Inventory, error)
	ListOutOfStock(ctx context.Context) ([]models.Inventory, error)
	Aggregate(ctx context.Context) (*StockAggregate, error)
}

// StockAggregate holds catalog-wide stock totals.
type StockAggregate struct {
	TotalSizes      int64
	TotalInStock    int64
	TotalReserved   int64
	LowStockCount   int64
	OutOfStockCount int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBySizeID(ctx context.Context, sizeID uuid.UUID) (*models.Inventory, error) {
	return r.findBySizeID(r.db.WithContext(ctx), sizeID)
}

// FindBySizeIDForUpdate reads the ledger row with a SELECT ... FOR UPDATE so
// a mutation inside an open transaction serializes against concurrent writers
// on the same row, not just against this process's size mutex. SQLite has no
// row-level locks; its driver drops the clause and serializes writers itself.
func (r *repository) FindBySizeIDForUpdate(ctx context.Context, sizeID uuid.UUID) (*models.Inventory, error) {
	return r.findBySizeID(
		r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}),
		sizeID,
	)
}

func (r *repository) findBySizeID(q *gorm.DB, sizeID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	if err := q.Where("size_id = ?", sizeID).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) FindBySizeIDs(ctx context.Context, sizeIDs []uuid.UUID) ([]models.Inventory, error) {
	if len(sizeIDs) == 0 {
		return nil, nil
	}
	var invs []models.Inventory
	if err := r.db.WithContext(ctx).
		Where("size_id IN ?", sizeIDs).
		Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *repository) Create(ctx context.Context, inv *models.Inventory) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *repository) Save(ctx context.Context, inv *models.Inventory) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

func (r *repository) RecordTransaction(ctx context.Context, txn *models.StockTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactionsBySize(ctx context.Context, sizeID uuid.UUID, limit int) ([]models.StockTransaction, error) {
	q := r.db.WithContext(ctx).
		Where("size_id = ?", sizeID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var txns []models.StockTransaction
	if err := q.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListLowStock(ctx context.Context) ([]models.Inventory, error) {
	var invs []models.Inventory
	if err := r.db.WithContext(ctx).
		Where("quantity_in_stock - reserved_quantity <= min_stock_level").
		Where("quantity_in_stock - reserved_quantity > 0").
		Order("quantity_in_stock - reserved_quantity ASC").
		Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *repository) ListOutOfStock(ctx context.Context) ([]models.Inventory, error) {
	var invs []models.Inventory
	if err := r.db.WithContext(ctx).
		Where("quantity_in_stock - reserved_quantity <= 0").
		Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *repository) Aggregate(ctx context.Context) (*StockAggregate, error) {
	var agg StockAggregate
	row := r.db.WithContext(ctx).
		Model(&models.Inventory{}).
		Select(`COUNT(*) AS total_sizes,
			COALESCE(SUM(quantity_in_stock), 0) AS total_in_stock,
			COALESCE(SUM(reserved_quantity), 0) AS total_reserved,
			COALESCE(SUM(CASE WHEN quantity_in_stock - reserved_quantity <= min_stock_level AND quantity_in_stock - reserved_quantity > 0 THEN 1 ELSE 0 END), 0) AS low_stock_count,
			COALESCE(SUM(CASE WHEN quantity_in_stock - reserved_quantity <= 0 THEN 1 ELSE 0 END), 0) AS out_of_stock_count`)
	if err := row.Scan(&agg).Error; err != nil {
		return nil, err
	}
	return &agg, nil
}
