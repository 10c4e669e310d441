package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/pkg/enums"
)

// StockTransaction is one immutable entry in the append-only stock audit
// trail. StockDelta and ReservedDelta carry the signed effect of the entry on
// the ledger's two counters, so replaying all entries for a size reconstructs
// its current state.
type StockTransaction struct {
	ID              uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	InventoryID     uuid.UUID                  `gorm:"column:inventory_id;type:uuid;not null;index"`
	SizeID          uuid.UUID                  `gorm:"column:size_id;type:uuid;not null;index"`
	Type            enums.StockTransactionType `gorm:"column:transaction_type;type:text;not null"`
	Quantity        int                        `gorm:"column:quantity;not null"`
	StockDelta      int                        `gorm:"column:stock_delta;not null;default:0"`
	ReservedDelta   int                        `gorm:"column:reserved_delta;not null;default:0"`
	ReferenceNumber string                     `gorm:"column:reference_number;not null"`
	OrderID         *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	Actor           string                     `gorm:"column:actor;not null"`
	Notes           *string                    `gorm:"column:notes"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns an ID when the caller did not.
func (s *StockTransaction) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
