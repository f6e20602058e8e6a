package service

import (
	"context"
	"log"
	"strings"

	"stockpilot/internal/apperr"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/pkg/validator"

	"github.com/google/uuid"
)

type CategoryService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, in *CategoryInput, actor model.Actor) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in *CategoryInput, actor model.Actor) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID, actor model.Actor) error
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type categoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
}

func NewCategoryService(categories repository.CategoryRepository, products repository.ProductRepository) CategoryService {
	return &categoryService{categories: categories, products: products}
}

func (s *categoryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return categories, nil
}

func (s *categoryService) ensureUniqueName(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.categories.FindByName(ctx, name)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return apperr.Wrap(err)
	}
	if existing.ID != self {
		return apperr.Conflict("Category '%s' already exists", existing.Name)
	}
	return nil
}

func (s *categoryService) CreateCategory(ctx context.Context, in *CategoryInput, actor model.Actor) (*model.Category, error) {
	if fields := validator.Fields(in); fields != nil {
		return nil, apperr.Validation(fields)
	}
	name := strings.TrimSpace(in.Name)
	if err := s.ensureUniqueName(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	category := &model.Category{Name: name, Description: in.Description}
	category.CreatedBy = actor.ID
	category.UpdatedBy = actor.ID
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, translate(err, "Category not found")
	}
	return category, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, id uuid.UUID, in *CategoryInput, actor model.Actor) (*model.Category, error) {
	if fields := validator.Fields(in); fields != nil {
		return nil, apperr.Validation(fields)
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Category not found")
	}

	name := strings.TrimSpace(in.Name)
	if err := s.ensureUniqueName(ctx, name, category.ID); err != nil {
		return nil, err
	}

	renamed := category.Name != name
	category.Name = name
	category.Description = in.Description
	category.UpdatedBy = actor.ID
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, translate(err, "Category not found")
	}

	if renamed {
		if err := s.products.RenameCategory(ctx, category.ID, category.Name); err != nil {
			log.Printf("category %s: failed to cascade rename to products: %v", category.ID, err)
		}
	}
	return category, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Only an administrator can delete categories")
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return translate(err, "Category not found")
	}
	inUse, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return apperr.Wrap(err)
	}
	if inUse > 0 {
		return apperr.Conflict("Category '%s' is used by %d product(s)", category.Name, inUse)
	}
	if err := s.categories.Delete(ctx, id, actor.ID); err != nil {
		return apperr.Wrap(err)
	}
	return nil
}
