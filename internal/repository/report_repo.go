package repository

import (
	"context"
	"time"

	"stockpilot/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovementData is one day of the inbound/outbound chart.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type OrderSummary struct {
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type SalesDay struct {
	Date    string          `json:"date"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type TopProduct struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type ReportRepository interface {
	CountProducts(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context) (int64, error)
	CountCustomers(ctx context.Context) (int64, error)
	CountOrdersByStatus(ctx context.Context, status model.OrderStatus) (int64, error)
	// StockValuation is the sum of stock * cost over live products.
	StockValuation(ctx context.Context) (decimal.Decimal, error)
	OrderSummary(ctx context.Context, from, to time.Time) (*OrderSummary, error)
	StockMovement(ctx context.Context, from, to time.Time) ([]StockMovementData, error)
	SalesByDay(ctx context.Context, from, to time.Time) ([]SalesDay, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

// countedOrders limits a query to orders that represent real sales.
func countedOrders(db *gorm.DB) *gorm.DB {
	return db.Where("orders.is_deleted = ? AND orders.status <> ?", false, model.OrderCancelled)
}

func (r *reportRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&n).Error
	return n, err
}

func (r *reportRepo) CountLowStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("stock <= low_stock_threshold").Count(&n).Error
	return n, err
}

func (r *reportRepo) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Customer{}).Count(&n).Error
	return n, err
}

func (r *reportRepo) CountOrdersByStatus(ctx context.Context, status model.OrderStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("status = ? AND is_deleted = ?", status, false).
		Count(&n).Error
	return n, err
}

func (r *reportRepo) StockValuation(ctx context.Context) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Select("COALESCE(SUM(stock * cost), 0) AS total").
		Scan(&row).Error
	return row.Total, err
}

func (r *reportRepo) OrderSummary(ctx context.Context, from, to time.Time) (*OrderSummary, error) {
	var summary OrderSummary
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Scopes(countedOrders).
		Select("COUNT(*) AS orders, COALESCE(SUM(total), 0) AS revenue, COALESCE(SUM(profit), 0) AS profit").
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// movementTotals is one day's in and out quantities for one movement type.
type movementTotals struct {
	Date     string
	Type     model.MovementType
	Inbound  int
	Outbound int
}

func (r *reportRepo) StockMovement(ctx context.Context, from, to time.Time) ([]StockMovementData, error) {
	var rows []movementTotals
	err := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Select(`
			TO_CHAR(DATE(created_at), 'YYYY-MM-DD') AS date,
			type,
			COALESCE(SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END), 0) AS inbound,
			COALESCE(SUM(CASE WHEN quantity < 0 THEN -quantity ELSE 0 END), 0) AS outbound
		`).
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("DATE(created_at), type").
		Order("date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return foldStockMovement(rows), nil
}

// foldStockMovement merges per type totals into one point per day. An order
// edit books a restore and a re-consume of the same goods, so order_update
// only counts its net change.
func foldStockMovement(rows []movementTotals) []StockMovementData {
	results := []StockMovementData{}
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.Date]
		if !ok {
			i = len(results)
			index[row.Date] = i
			results = append(results, StockMovementData{Date: row.Date})
		}
		in, out := row.Inbound, row.Outbound
		if row.Type == model.MovementOrderUpdate {
			in, out = max(in-out, 0), max(out-in, 0)
		}
		results[i].Inbound += in
		results[i].Outbound += out
	}
	return results
}

func (r *reportRepo) SalesByDay(ctx context.Context, from, to time.Time) ([]SalesDay, error) {
	var results []SalesDay
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Scopes(countedOrders).
		Select(`
			TO_CHAR(DATE(created_at), 'YYYY-MM-DD') AS date,
			COUNT(*) AS orders,
			COALESCE(SUM(total), 0) AS revenue,
			COALESCE(SUM(profit), 0) AS profit
		`).
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results).Error
	return results, err
}

func (r *reportRepo) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	var results []TopProduct
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select(`
			order_items.product_id,
			MAX(order_items.product_name) AS product_name,
			MAX(order_items.sku) AS sku,
			SUM(order_items.quantity) AS quantity,
			COALESCE(SUM(order_items.line_total), 0) AS revenue
		`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Scopes(countedOrders).
		Where("orders.created_at >= ? AND orders.created_at < ?", from, to).
		Group("order_items.product_id").
		Order("quantity DESC").
		Limit(limit).
		Scan(&results).Error
	return results, err
}
