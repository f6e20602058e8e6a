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
	"github.com/shopspring/decimal"
)

type CustomerCategoryService interface {
	ListCustomerCategories(ctx context.Context) ([]model.CustomerCategory, error)
	CreateCustomerCategory(ctx context.Context, in *CustomerCategoryInput, actor model.Actor) (*model.CustomerCategory, error)
	UpdateCustomerCategory(ctx context.Context, id uuid.UUID, in *CustomerCategoryInput, actor model.Actor) (*model.CustomerCategory, error)
	DeleteCustomerCategory(ctx context.Context, id uuid.UUID, actor model.Actor) error
}

type CustomerCategoryInput struct {
	Code                   string          `json:"code" validate:"required,max=30"`
	Name                   string          `json:"name" validate:"required,max=100"`
	Description            string          `json:"description"`
	DefaultDiscountPercent decimal.Decimal `json:"default_discount_percent"`
}

type customerCategoryService struct {
	categories repository.CustomerCategoryRepository
	customers  repository.CustomerRepository
}

func NewCustomerCategoryService(categories repository.CustomerCategoryRepository, customers repository.CustomerRepository) CustomerCategoryService {
	return &customerCategoryService{categories: categories, customers: customers}
}

func validateCustomerCategory(in *CustomerCategoryInput) error {
	fields := validator.Fields(in)
	if fields == nil {
		fields = map[string]string{}
	}
	if in.DefaultDiscountPercent.IsNegative() || in.DefaultDiscountPercent.GreaterThan(hundredPercent) {
		fields["default_discount_percent"] = "must be between 0 and 100"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

var hundredPercent = decimal.NewFromInt(100)

func (s *customerCategoryService) ListCustomerCategories(ctx context.Context) ([]model.CustomerCategory, error) {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return categories, nil
}

func (s *customerCategoryService) ensureUniqueCode(ctx context.Context, code string, self uuid.UUID) error {
	existing, err := s.categories.FindByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return apperr.Wrap(err)
	}
	if existing.ID != self {
		return apperr.Conflict("Customer category code '%s' already exists", existing.Code)
	}
	return nil
}

func (s *customerCategoryService) CreateCustomerCategory(ctx context.Context, in *CustomerCategoryInput, actor model.Actor) (*model.CustomerCategory, error) {
	if err := validateCustomerCategory(in); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if err := s.ensureUniqueCode(ctx, code, uuid.Nil); err != nil {
		return nil, err
	}

	category := &model.CustomerCategory{
		Code:                   code,
		Name:                   strings.TrimSpace(in.Name),
		Description:            in.Description,
		DefaultDiscountPercent: in.DefaultDiscountPercent.Round(2),
	}
	category.CreatedBy = actor.ID
	category.UpdatedBy = actor.ID
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, translate(err, "Customer category not found")
	}
	return category, nil
}

func (s *customerCategoryService) UpdateCustomerCategory(ctx context.Context, id uuid.UUID, in *CustomerCategoryInput, actor model.Actor) (*model.CustomerCategory, error) {
	if err := validateCustomerCategory(in); err != nil {
		return nil, err
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Customer category not found")
	}

	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if err := s.ensureUniqueCode(ctx, code, category.ID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	renamed := category.Name != name
	category.Code = code
	category.Name = name
	category.Description = in.Description
	category.DefaultDiscountPercent = in.DefaultDiscountPercent.Round(2)
	category.UpdatedBy = actor.ID
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, translate(err, "Customer category not found")
	}

	if renamed {
		if err := s.customers.RenameCategory(ctx, category.ID, category.Name); err != nil {
			log.Printf("customer category %s: failed to cascade rename: %v", category.ID, err)
		}
	}
	return category, nil
}

func (s *customerCategoryService) DeleteCustomerCategory(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Only an administrator can delete customer categories")
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return translate(err, "Customer category not found")
	}
	inUse, err := s.customers.CountByCategory(ctx, id)
	if err != nil {
		return apperr.Wrap(err)
	}
	if inUse > 0 {
		return apperr.Conflict("Customer category '%s' is used by %d customer(s)", category.Code, inUse)
	}
	if err := s.categories.Delete(ctx, id, actor.ID); err != nil {
		return apperr.Wrap(err)
	}
	return nil
}
