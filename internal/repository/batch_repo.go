package repository

import (
	"context"
	"time"

	"stockpilot/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchRepository interface {
	Create(ctx context.Context, batch *model.Batch) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Batch, error)
	// Decrement subtracts qty only if the batch still holds at least qty.
	Decrement(ctx context.Context, id uuid.UUID, qty int) error
	// Increment adds qty back without exceeding the initial quantity.
	Increment(ctx context.Context, id uuid.UUID, qty int) error
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]ExpiringBatch, error)
}

// ExpiringBatch is a batch with stock left that expires before a cutoff.
type ExpiringBatch struct {
	BatchID           uuid.UUID `json:"batch_id"`
	ProductID         uuid.UUID `json:"product_id"`
	ProductName       string    `json:"product_name"`
	SKU               string    `json:"sku"`
	BatchNumber       string    `json:"batch_number"`
	ExpiryDate        time.Time `json:"expiry_date"`
	RemainingQuantity int       `json:"remaining_quantity"`
}

type batchRepo struct {
	db *gorm.DB
}

func NewBatchRepo(db *gorm.DB) BatchRepository {
	return &batchRepo{db}
}

func (r *batchRepo) Create(ctx context.Context, batch *model.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at ASC").Find(&batches).Error
	return batches, err
}

func (r *batchRepo) Decrement(ctx context.Context, id uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).Model(&model.Batch{}).
		Where("id = ? AND remaining_quantity >= ?", id, qty).
		Updates(map[string]interface{}{
			"remaining_quantity": gorm.Expr("remaining_quantity - ?", qty),
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *batchRepo) Increment(ctx context.Context, id uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).Model(&model.Batch{}).
		Where("id = ? AND remaining_quantity + ? <= initial_quantity", id, qty).
		Updates(map[string]interface{}{
			"remaining_quantity": gorm.Expr("remaining_quantity + ?", qty),
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *batchRepo) ListExpiring(ctx context.Context, before time.Time, limit int) ([]ExpiringBatch, error) {
	var rows []ExpiringBatch
	err := r.db.WithContext(ctx).
		Table("batches b").
		Select(`b.id AS batch_id, b.product_id, p.name AS product_name, p.sku,
			b.batch_number, b.expiry_date, b.remaining_quantity`).
		Joins("JOIN products p ON p.id = b.product_id AND p.deleted_at IS NULL").
		Where("b.remaining_quantity > 0 AND b.expiry_date <= ?", before).
		Order("b.expiry_date ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
