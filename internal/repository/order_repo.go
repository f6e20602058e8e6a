package repository

import (
	"context"
	"strings"
	"time"

	"stockpilot/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	Status         model.OrderStatus
	CustomerID     *uuid.UUID
	From           *time.Time
	To             *time.Time
	Search         string
	IncludeDeleted bool
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	// Update saves the header and replaces every line item.
	Update(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter, page Pagination) (*PageResult[model.Order], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, updatedBy string) error
	SoftDelete(ctx context.Context, id uuid.UUID, actor model.Actor) error
	RenameCustomer(ctx context.Context, customerID uuid.UUID, name string) error
	RenameProduct(ctx context.Context, productID uuid.UUID, name string) error
	CountByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepo) Update(ctx context.Context, order *model.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", order.ID).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	for i := range order.Items {
		order.Items[i].ID = uuid.Nil
		order.Items[i].OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if err := db.Create(&order.Items).Error; err != nil {
			return err
		}
	}
	return db.Omit("Items").Save(order).Error
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter, page Pagination) (*PageResult[model.Order], error) {
	query := r.db.WithContext(ctx).Model(&model.Order{})
	if !filter.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(customer_name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []model.Order
	err := query.Scopes(Paginate(page)).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return NewPageResult(orders, total, page), nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, updatedBy string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
		}).Error
}

func (r *orderRepo) SoftDelete(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted":         true,
			"deleted_at":         now,
			"deleted_by_user_id": actor.ID,
			"deleted_by_name":    actor.Name,
		}).Error
}

func (r *orderRepo) RenameCustomer(ctx context.Context, customerID uuid.UUID, name string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("customer_id = ?", customerID).
		Update("customer_name", name).Error
}

func (r *orderRepo) RenameProduct(ctx context.Context, productID uuid.UUID, name string) error {
	return r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("product_id = ?", productID).
		Update("product_name", name).Error
}

func (r *orderRepo) CountByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("customer_id = ? AND is_deleted = ?", customerID, false).
		Count(&count).Error
	return count, err
}
