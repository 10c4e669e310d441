package autotransition

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
)

// Repository manages persistence for scheduled order transitions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transition *models.OrderAutoTransition) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderAutoTransition, error)
	FindPending(ctx context.Context, orderID uuid.UUID, transitionType enums.AutoTransitionType) (*models.OrderAutoTransition, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.OrderAutoTransition, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderAutoTransition, error)
	MarkExecuted(ctx context.Context, id uuid.UUID, result string, at time.Time) error
	CancelPendingForOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transition repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, transition *models.OrderAutoTransition) error {
	return r.db.WithContext(ctx).Create(transition).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderAutoTransition, error) {
	var row models.OrderAutoTransition
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindPending(ctx context.Context, orderID uuid.UUID, transitionType enums.AutoTransitionType) (*models.OrderAutoTransition, error) {
	var row models.OrderAutoTransition
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND transition_type = ? AND is_executed = ?", orderID, transitionType, false).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.OrderAutoTransition, error) {
	q := r.db.WithContext(ctx).
		Where("is_executed = ? AND scheduled_at <= ?", false, now).
		Order("scheduled_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.OrderAutoTransition
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderAutoTransition, error) {
	var rows []models.OrderAutoTransition
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkExecuted(ctx context.Context, id uuid.UUID, result string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderAutoTransition{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_executed":      true,
			"executed_at":      at,
			"execution_result": result,
		}).Error
}

// CancelPendingForOrder retires every unexecuted transition for the order,
// keeping the rows for audit.
func (r *repository) CancelPendingForOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderAutoTransition{}).
		Where("order_id = ? AND is_executed = ?", orderID, false).
		Updates(map[string]any{
			"is_executed":      true,
			"executed_at":      at,
			"execution_result": resultCancelled,
		})
	return res.RowsAffected, res.Error
}
