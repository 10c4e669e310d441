package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/pkg/enums"
)

// OrderAutoTransition is a durable "move order X to status Y at time T"
// record. Rows survive process restarts; the executor marks them executed
// exactly once, recording the outcome in ExecutionResult.
type OrderAutoTransition struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	TransitionType  enums.AutoTransitionType `gorm:"column:transition_type;type:text;not null"`
	FromStatus      enums.OrderStatus        `gorm:"column:from_status;type:text;not null"`
	ToStatus        enums.OrderStatus        `gorm:"column:to_status;type:text;not null"`
	ScheduledAt     time.Time                `gorm:"column:scheduled_at;not null;index"`
	IsExecuted      bool                     `gorm:"column:is_executed;not null;default:false"`
	ExecutedAt      *time.Time               `gorm:"column:executed_at"`
	ExecutionResult *string                  `gorm:"column:execution_result"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns an ID when the caller did not.
func (o *OrderAutoTransition) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
