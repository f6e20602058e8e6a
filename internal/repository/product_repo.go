package repository

import (
	"context"
	"strings"

	"stockpilot/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductFilter struct {
	Search       string
	CategoryID   *uuid.UUID
	LowStockOnly bool
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	// Update writes the editable details only. Stock is owned by UpdateStock.
	Update(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindByIDForUpdate locks the product row until the transaction ends.
	// Soft-deleted products are included so stock held by orders can still
	// be restored.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter, page Pagination) (*PageResult[model.Product], error)
	ListLowStock(ctx context.Context, limit int) ([]model.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, newStock int, updatedBy string) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	RenameCategory(ctx context.Context, categoryID uuid.UUID, name string) error
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func preloadBatches(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit("Batches").Create(product).Error
}

// productDetailColumns are the columns Update may write.
var productDetailColumns = []string{
	"sku", "name", "description", "category_id", "category_name", "unit",
	"price", "cost", "low_stock_threshold", "expiry_date",
	"image_url", "image_id", "updated_at", "updated_by",
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Model(product).
		Select(productDetailColumns).
		Updates(product).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Preload("Batches", preloadBatches).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Batches", preloadBatches).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter, page Pagination) (*PageResult[model.Product], error) {
	query := r.db.WithContext(ctx).Model(&model.Product{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.LowStockOnly {
		query = query.Where("stock <= low_stock_threshold")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []model.Product
	err := query.Scopes(Paginate(page)).
		Preload("Batches", preloadBatches).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return NewPageResult(products, total, page), nil
}

func (r *productRepo) ListLowStock(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("stock <= low_stock_threshold").
		Order("stock ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

// UpdateStock writes the aggregate stock; callers hold the row lock.
func (r *productRepo) UpdateStock(ctx context.Context, id uuid.UUID, newStock int, updatedBy string) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      newStock,
			"updated_by": updatedBy,
		}).Error
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Product{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Product{}, "id = ?", id).Error
	})
}

func (r *productRepo) RenameCategory(ctx context.Context, categoryID uuid.UUID, name string) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("category_id = ?", categoryID).
		Update("category_name", name).Error
}

func (r *productRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}
