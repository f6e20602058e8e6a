package repository

import (
	"context"
	"time"

	"stockpilot/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementFilter struct {
	ProductID *uuid.UUID
	OrderID   *uuid.UUID
	Type      model.MovementType
}

type MovementRepository interface {
	Create(ctx context.Context, movement *model.InventoryMovement) error
	List(ctx context.Context, filter MovementFilter, page Pagination) (*PageResult[model.InventoryMovement], error)
	// SoldSince sums units sold per product since the given time, net of
	// order edits and cancellations.
	SoldSince(ctx context.Context, since time.Time) (map[uuid.UUID]int, error)
}

type movementRepo struct {
	db *gorm.DB
}

func NewMovementRepo(db *gorm.DB) MovementRepository {
	return &movementRepo{db}
}

func (r *movementRepo) Create(ctx context.Context, movement *model.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *movementRepo) List(ctx context.Context, filter MovementFilter, page Pagination) (*PageResult[model.InventoryMovement], error) {
	query := r.db.WithContext(ctx).Model(&model.InventoryMovement{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var movements []model.InventoryMovement
	if err := query.Scopes(Paginate(page)).Order("created_at DESC").Find(&movements).Error; err != nil {
		return nil, err
	}
	return NewPageResult(movements, total, page), nil
}

func (r *movementRepo) SoldSince(ctx context.Context, since time.Time) (map[uuid.UUID]int, error) {
	type row struct {
		ProductID uuid.UUID
		Sold      int
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Select("product_id, COALESCE(-SUM(quantity), 0) AS sold").
		Where("type IN ? AND created_at >= ?", []model.MovementType{
			model.MovementSale, model.MovementOrderUpdate, model.MovementOrderCancel,
		}, since).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sold := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		if r.Sold > 0 {
			sold[r.ProductID] = r.Sold
		}
	}
	return sold, nil
}
