package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/pkg/enums"
)

// Order is a customer order. Rows are never deleted; canceled and returned
// orders stay around for history.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID  uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal    decimal.Decimal   `gorm:"column:subtotal;type:decimal(12,2);not null"`
	Total       decimal.Decimal   `gorm:"column:total;type:decimal(12,2);not null"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ConfirmedAt *time.Time        `gorm:"column:confirmed_at"`
	ShippedAt   *time.Time        `gorm:"column:shipped_at"`
	DeliveredAt *time.Time        `gorm:"column:delivered_at"`
	CanceledAt  *time.Time        `gorm:"column:canceled_at"`
	ReturnedAt  *time.Time        `gorm:"column:returned_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the caller did not.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots one line of an order. ReferenceNumber correlates the
// line with the stock transactions its reservation produced.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	SizeID          uuid.UUID       `gorm:"column:size_id;type:uuid;not null"`
	ProductName     string          `gorm:"column:product_name;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null"`
	ReferenceNumber string          `gorm:"column:reference_number;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns an ID when the caller did not.
func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
