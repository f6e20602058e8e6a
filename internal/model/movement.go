package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementType string

const (
	MovementStockIn     MovementType = "stock_in"
	MovementSale        MovementType = "sale"
	MovementAdjustment  MovementType = "adjustment"
	MovementOrderUpdate MovementType = "order_update"
	MovementOrderCancel MovementType = "order_cancel"
)

// InventoryMovement is an append-only audit record of one stock change.
type InventoryMovement struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key;" json:"id"`
	ProductID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string       `gorm:"type:varchar(255)" json:"product_name"`
	Type        MovementType `gorm:"type:varchar(20);not null;index" json:"type"`
	Quantity    int          `gorm:"not null" json:"quantity"` // signed delta
	StockBefore int          `gorm:"not null" json:"stock_before"`
	StockAfter  int          `gorm:"not null" json:"stock_after"`
	BatchID     *uuid.UUID   `gorm:"type:uuid" json:"batch_id,omitempty"`
	OrderID     *uuid.UUID   `gorm:"type:uuid;index" json:"order_id,omitempty"`
	ActorID     string       `gorm:"type:varchar(255)" json:"actor_id"`
	ActorName   string       `gorm:"type:varchar(255)" json:"actor_name"`
	Note        string       `gorm:"type:text" json:"note,omitempty"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
}

func (m *InventoryMovement) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
