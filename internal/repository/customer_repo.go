package repository

import (
	"context"
	"strings"

	"stockpilot/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerFilter struct {
	Search     string
	CategoryID *uuid.UUID
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
	List(ctx context.Context, filter CustomerFilter, page Pagination) (*PageResult[model.Customer], error)
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	RenameCategory(ctx context.Context, categoryID uuid.UUID, name string) error
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepository {
	return &customerRepo{db}
}

func (r *customerRepo) Create(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *customerRepo) Update(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *customerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepo) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepo) List(ctx context.Context, filter CustomerFilter, page Pagination) (*PageResult[model.Customer], error) {
	query := r.db.WithContext(ctx).Model(&model.Customer{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}
	if filter.CategoryID != nil {
		query = query.Where("customer_category_id = ?", *filter.CategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var customers []model.Customer
	if err := query.Scopes(Paginate(page)).Order("name ASC").Find(&customers).Error; err != nil {
		return nil, err
	}
	return NewPageResult(customers, total, page), nil
}

func (r *customerRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Customer{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Customer{}, "id = ?", id).Error
	})
}

func (r *customerRepo) RenameCategory(ctx context.Context, categoryID uuid.UUID, name string) error {
	return r.db.WithContext(ctx).Model(&model.Customer{}).
		Where("customer_category_id = ?", categoryID).
		Update("customer_category_name", name).Error
}

func (r *customerRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Customer{}).Where("customer_category_id = ?", categoryID).Count(&count).Error
	return count, err
}
