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
	"golang.org/x/sync/errgroup"
)

type CustomerService interface {
	ListCustomers(ctx context.Context, filter repository.CustomerFilter, page repository.Pagination) (*repository.PageResult[model.Customer], error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	CreateCustomer(ctx context.Context, in *CustomerInput, actor model.Actor) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, in *CustomerInput, actor model.Actor) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID, actor model.Actor) error
	// CustomerOrders loads the customer and a page of their orders together.
	CustomerOrders(ctx context.Context, id uuid.UUID, page repository.Pagination) (*CustomerOrders, error)
}

type CustomerInput struct {
	Name               string     `json:"name" validate:"required,max=255"`
	Email              string     `json:"email" validate:"omitempty,email,max=255"`
	Phone              string     `json:"phone" validate:"max=30"`
	Address            string     `json:"address"`
	CustomerCategoryID *uuid.UUID `json:"customer_category_id"`
	Notes              string     `json:"notes"`
}

type CustomerOrders struct {
	Customer *model.Customer                     `json:"customer"`
	Orders   *repository.PageResult[model.Order] `json:"orders"`
}

type customerService struct {
	store      repository.Store
	categories repository.CustomerCategoryRepository
}

func NewCustomerService(store repository.Store, categories repository.CustomerCategoryRepository) CustomerService {
	return &customerService{store: store, categories: categories}
}

func (s *customerService) ListCustomers(ctx context.Context, filter repository.CustomerFilter, page repository.Pagination) (*repository.PageResult[model.Customer], error) {
	result, err := s.store.Customers().List(ctx, filter, page)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return result, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	customer, err := s.store.Customers().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Customer not found")
	}
	return customer, nil
}

func (s *customerService) ensureUniqueEmail(ctx context.Context, email string, self uuid.UUID) error {
	if email == "" {
		return nil
	}
	existing, err := s.store.Customers().FindByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return apperr.Wrap(err)
	}
	if existing.ID != self {
		return apperr.Conflict("A customer with email '%s' already exists", email)
	}
	return nil
}

func (s *customerService) resolveCategory(ctx context.Context, id *uuid.UUID) (string, error) {
	if id == nil || *id == uuid.Nil {
		return "", nil
	}
	category, err := s.categories.FindByID(ctx, *id)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", apperr.Validation(map[string]string{"customer_category_id": "customer category not found"})
		}
		return "", apperr.Wrap(err)
	}
	return category.Name, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, in *CustomerInput, actor model.Actor) (*model.Customer, error) {
	if fields := validator.Fields(in); fields != nil {
		return nil, apperr.Validation(fields)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.ensureUniqueEmail(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}
	categoryName, err := s.resolveCategory(ctx, in.CustomerCategoryID)
	if err != nil {
		return nil, err
	}

	customer := &model.Customer{
		Name:                 strings.TrimSpace(in.Name),
		Email:                email,
		Phone:                strings.TrimSpace(in.Phone),
		Address:              in.Address,
		CustomerCategoryID:   in.CustomerCategoryID,
		CustomerCategoryName: categoryName,
		Notes:                in.Notes,
	}
	customer.CreatedBy = actor.ID
	customer.UpdatedBy = actor.ID
	if err := s.store.Customers().Create(ctx, customer); err != nil {
		return nil, translate(err, "Customer not found")
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id uuid.UUID, in *CustomerInput, actor model.Actor) (*model.Customer, error) {
	if fields := validator.Fields(in); fields != nil {
		return nil, apperr.Validation(fields)
	}
	customer, err := s.store.Customers().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Customer not found")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.ensureUniqueEmail(ctx, email, customer.ID); err != nil {
		return nil, err
	}
	categoryName, err := s.resolveCategory(ctx, in.CustomerCategoryID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	renamed := customer.Name != name
	customer.Name = name
	customer.Email = email
	customer.Phone = strings.TrimSpace(in.Phone)
	customer.Address = in.Address
	customer.CustomerCategoryID = in.CustomerCategoryID
	customer.CustomerCategoryName = categoryName
	customer.Notes = in.Notes
	customer.UpdatedBy = actor.ID
	if err := s.store.Customers().Update(ctx, customer); err != nil {
		return nil, translate(err, "Customer not found")
	}

	if renamed {
		if err := s.store.Orders().RenameCustomer(ctx, customer.ID, customer.Name); err != nil {
			log.Printf("customer %s: failed to cascade rename to orders: %v", customer.ID, err)
		}
	}
	return customer, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Only an administrator can delete customers")
	}
	if _, err := s.store.Customers().FindByID(ctx, id); err != nil {
		return translate(err, "Customer not found")
	}
	// Orders keep the denormalized customer name, so they stay readable.
	if err := s.store.Customers().Delete(ctx, id, actor.ID); err != nil {
		return apperr.Wrap(err)
	}
	return nil
}

func (s *customerService) CustomerOrders(ctx context.Context, id uuid.UUID, page repository.Pagination) (*CustomerOrders, error) {
	var result CustomerOrders
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		customer, err := s.store.Customers().FindByID(gctx, id)
		if err != nil {
			return translate(err, "Customer not found")
		}
		result.Customer = customer
		return nil
	})
	g.Go(func() error {
		orders, err := s.store.Orders().List(gctx, repository.OrderFilter{CustomerID: &id}, page)
		if err != nil {
			return apperr.Wrap(err)
		}
		result.Orders = orders
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &result, nil
}
