package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Deletable
	SKU          string     `gorm:"type:varchar(50);uniqueIndex:idx_products_sku_live,where:deleted_at IS NULL;not null" json:"sku"`
	Name         string     `gorm:"type:varchar(255);not null;index" json:"name"`
	Description  string     `gorm:"type:text" json:"description"`
	CategoryID   *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	CategoryName string     `gorm:"type:varchar(255)" json:"category_name"` // denormalized, cascaded on rename
	Unit         string     `gorm:"type:varchar(20)" json:"unit"`

	Price decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"price"`
	Cost  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"cost"`

	// Stock is the aggregate count. For batch tracked products it always
	// equals the sum of RemainingQuantity over Batches.
	Stock             int        `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	LowStockThreshold int        `gorm:"not null;default:10" json:"low_stock_threshold"`
	ExpiryDate        *time.Time `gorm:"type:date" json:"expiry_date,omitempty"` // legacy single expiry

	ImageURL string `gorm:"type:varchar(512)" json:"image_url,omitempty"`
	ImageID  string `gorm:"type:varchar(255)" json:"-"`

	Batches []Batch `gorm:"foreignKey:ProductID" json:"batches,omitempty"`
}

func (p *Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

// BatchTracked reports whether stock is held in expiry dated batches.
func (p *Product) BatchTracked() bool {
	return len(p.Batches) > 0
}

// Batch is a dated sub-quantity of a product's stock. Batches are never
// deleted, only drained to zero.
type Batch struct {
	BaseModel
	ProductID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"product_id"`
	BatchNumber       string           `gorm:"type:varchar(50)" json:"batch_number"`
	ExpiryDate        time.Time        `gorm:"type:date;not null;index" json:"expiry_date"`
	InitialQuantity   int              `gorm:"not null;check:chk_batches_initial,initial_quantity >= 0" json:"initial_quantity"`
	RemainingQuantity int              `gorm:"not null;check:chk_batches_remaining,remaining_quantity >= 0 AND remaining_quantity <= initial_quantity" json:"remaining_quantity"`
	UnitCost          *decimal.Decimal `gorm:"type:numeric(14,2)" json:"unit_cost,omitempty"`
}

// CostOr returns the batch unit cost, falling back to the product cost.
func (b *Batch) CostOr(fallback decimal.Decimal) decimal.Decimal {
	if b.UnitCost != nil {
		return *b.UnitCost
	}
	return fallback
}
