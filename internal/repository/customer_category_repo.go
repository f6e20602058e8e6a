package repository

import (
	"context"
	"strings"

	"stockpilot/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerCategoryRepository interface {
	Create(ctx context.Context, category *model.CustomerCategory) error
	Update(ctx context.Context, category *model.CustomerCategory) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CustomerCategory, error)
	FindByCode(ctx context.Context, code string) (*model.CustomerCategory, error)
	FindAll(ctx context.Context) ([]model.CustomerCategory, error)
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
}

type customerCategoryRepo struct {
	db *gorm.DB
}

func NewCustomerCategoryRepo(db *gorm.DB) CustomerCategoryRepository {
	return &customerCategoryRepo{db}
}

func (r *customerCategoryRepo) Create(ctx context.Context, category *model.CustomerCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *customerCategoryRepo) Update(ctx context.Context, category *model.CustomerCategory) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *customerCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CustomerCategory, error) {
	var category model.CustomerCategory
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *customerCategoryRepo) FindByCode(ctx context.Context, code string) (*model.CustomerCategory, error) {
	var category model.CustomerCategory
	err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *customerCategoryRepo) FindAll(ctx context.Context) ([]model.CustomerCategory, error) {
	var categories []model.CustomerCategory
	err := r.db.WithContext(ctx).Order("code ASC").Find(&categories).Error
	return categories, err
}

func (r *customerCategoryRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.CustomerCategory{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Delete(&model.CustomerCategory{}, "id = ?", id).Error
	})
}
