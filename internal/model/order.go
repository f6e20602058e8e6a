package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// orderTransitions lists the statuses reachable from each status. Nothing
// leads from a status that released its stock back to one that holds it.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCompleted, OrderCancelled},
	OrderProcessing: {OrderPending, OrderShipped, OrderCompleted, OrderCancelled},
	OrderShipped:    {OrderProcessing, OrderDelivered, OrderCompleted, OrderCancelled},
	OrderDelivered:  {OrderCompleted},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Editable reports whether line items may still change. Edits re-run batch
// consumption, so they stop once the goods have left the warehouse.
func (s OrderStatus) Editable() bool {
	return s == OrderPending || s == OrderProcessing
}

// HoldsStock reports whether the order's batch usage is still reversible.
func (s OrderStatus) HoldsStock() bool {
	return s != OrderDelivered && s != OrderCompleted && s != OrderCancelled
}

type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Order struct {
	BaseModel
	OrderNumber  string    `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	CustomerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	CustomerName string    `gorm:"type:varchar(255)" json:"customer_name"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`

	DiscountType   DiscountType    `gorm:"type:varchar(20)" json:"discount_type"`
	DiscountValue  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount_value"`
	ShippingFee    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"shipping_fee"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount_amount"`
	Total          decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total"`
	CostOfGoods    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"cost_of_goods"`
	Profit         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"profit"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Notes  string      `gorm:"type:text" json:"notes"`

	CreatedByID   string `gorm:"type:varchar(255)" json:"created_by_id"`
	CreatedByName string `gorm:"type:varchar(255)" json:"created_by_name"`

	// Deletion marker, orthogonal to Status. Deleted orders stay for audit.
	IsDeleted       bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	DeletedByUserID string     `gorm:"type:varchar(255)" json:"deleted_by_user_id,omitempty"`
	DeletedByName   string     `gorm:"type:varchar(255)" json:"deleted_by_name,omitempty"`
}

// OrderItem is a line item. UnitCost is the average cost of the batches
// consumed at commit time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255)" json:"product_name"`
	SKU         string          `gorm:"type:varchar(50)" json:"sku"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	UnitCost    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_cost"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"line_total"`

	BatchesUsed datatypes.JSONSlice[OrderBatchUsage] `gorm:"type:jsonb" json:"batches_used"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// OrderBatchUsage records how much of a batch a line item consumed, so the
// stock can be put back on edit or cancellation.
type OrderBatchUsage struct {
	BatchID      uuid.UUID `json:"batchId"`
	ExpiryDate   time.Time `json:"expiryDate"`
	QuantityUsed int       `json:"quantityUsed"`
}
