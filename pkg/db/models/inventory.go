package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inventory is the per-size stock ledger row. It is created when the size is
// created and only ever mutated through the inventory service.
type Inventory struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SizeID           uuid.UUID `gorm:"column:size_id;type:uuid;not null;uniqueIndex"`
	QuantityInStock  int       `gorm:"column:quantity_in_stock;not null;default:0"`
	ReservedQuantity int       `gorm:"column:reserved_quantity;not null;default:0"`
	MinStockLevel    int       `gorm:"column:min_stock_level;not null;default:5"`
	LastUpdated      time.Time `gorm:"column:last_updated;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Inventory) TableName() string { return "inventories" }

// BeforeCreate assigns an ID when the caller did not.
func (i *Inventory) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// AvailableQuantity is the sellable amount: on hand minus reserved.
func (i Inventory) AvailableQuantity() int {
	return i.QuantityInStock - i.ReservedQuantity
}
