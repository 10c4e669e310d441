package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/pkg/enums"
)

// CartItem holds one line of a customer's cart together with its stock
// reservation. The reservation is created when the item is added and ends
// either confirmed (checkout) or released (removal or expiry).
type CartItem struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID       uuid.UUID              `gorm:"column:customer_id;type:uuid;not null;index"`
	SizeID           uuid.UUID              `gorm:"column:size_id;type:uuid;not null;index"`
	ProductName      string                 `gorm:"column:product_name;not null;default:''"`
	Quantity         int                    `gorm:"column:quantity;not null"`
	UnitPrice        decimal.Decimal        `gorm:"column:unit_price;type:decimal(12,2);not null"`
	ReferenceNumber  string                 `gorm:"column:reference_number;not null"`
	ReservationState enums.ReservationState `gorm:"column:reservation_state;type:text;not null;default:'pending'"`
	ReservedUntil    time.Time              `gorm:"column:reserved_until;not null;index"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the caller did not.
func (c *CartItem) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
