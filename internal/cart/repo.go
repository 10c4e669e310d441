package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
)

// Repository manages persistence for cart items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error)
	FindPendingByCustomerAndSize(ctx context.Context, customerID, sizeID uuid.UUID) (*models.CartItem, error)
	ListPendingByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	Save(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	TransitionState(ctx context.Context, id uuid.UUID, from, to enums.ReservationState) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindPendingByCustomerAndSize(ctx context.Context, customerID, sizeID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND size_id = ? AND reservation_state = ?", customerID, sizeID, enums.ReservationStatePending).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListPendingByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND reservation_state = ?", customerID, enums.ReservationStatePending).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.CartItem, error) {
	q := r.db.WithContext(ctx).
		Where("reservation_state = ? AND reserved_until <= ?", enums.ReservationStatePending, now).
		Order("reserved_until ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var items []models.CartItem
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Save(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", id).Error
}

// TransitionState performs a guarded state change and reports whether this
// caller won it. Exactly one of the confirm path and the expiry scanner can
// move an item out of pending.
func (r *repository) TransitionState(ctx context.Context, id uuid.UUID, from, to enums.ReservationState) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND reservation_state = ?", id, from).
		Update("reservation_state", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
