package handler

import (
	"strings"

	"stockpilot/internal/repository"
	"stockpilot/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves categories, customer categories and customers.
type CatalogHandler struct {
	categories         service.CategoryService
	customerCategories service.CustomerCategoryService
	customers          service.CustomerService
}

func NewCatalogHandler(categories service.CategoryService, customerCategories service.CustomerCategoryService, customers service.CustomerService) *CatalogHandler {
	return &CatalogHandler{
		categories:         categories,
		customerCategories: customerCategories,
		customers:          customers,
	}
}

func (h *CatalogHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.categories.ListCategories(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, categories)
}

func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req service.CategoryInput
	if !parseBody(c, &req) {
		return nil
	}
	category, err := h.categories.CreateCategory(c.UserContext(), &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, category)
}

func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, valid := paramID(c, "category")
	if !valid {
		return nil
	}
	var req service.CategoryInput
	if !parseBody(c, &req) {
		return nil
	}
	category, err := h.categories.UpdateCategory(c.UserContext(), id, &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, category)
}

func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, valid := paramID(c, "category")
	if !valid {
		return nil
	}
	if err := h.categories.DeleteCategory(c.UserContext(), id, currentActor(c)); err != nil {
		return fail(c, err)
	}
	return done(c, "Category deleted")
}

func (h *CatalogHandler) GetCustomerCategories(c *fiber.Ctx) error {
	categories, err := h.customerCategories.ListCustomerCategories(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, categories)
}

func (h *CatalogHandler) CreateCustomerCategory(c *fiber.Ctx) error {
	var req service.CustomerCategoryInput
	if !parseBody(c, &req) {
		return nil
	}
	category, err := h.customerCategories.CreateCustomerCategory(c.UserContext(), &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, category)
}

func (h *CatalogHandler) UpdateCustomerCategory(c *fiber.Ctx) error {
	id, valid := paramID(c, "customer category")
	if !valid {
		return nil
	}
	var req service.CustomerCategoryInput
	if !parseBody(c, &req) {
		return nil
	}
	category, err := h.customerCategories.UpdateCustomerCategory(c.UserContext(), id, &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, category)
}

func (h *CatalogHandler) DeleteCustomerCategory(c *fiber.Ctx) error {
	id, valid := paramID(c, "customer category")
	if !valid {
		return nil
	}
	if err := h.customerCategories.DeleteCustomerCategory(c.UserContext(), id, currentActor(c)); err != nil {
		return fail(c, err)
	}
	return done(c, "Customer category deleted")
}

// GET /api/v1/customers?search=&category_id=&page=&limit=
func (h *CatalogHandler) GetCustomers(c *fiber.Ctx) error {
	filter := repository.CustomerFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		CategoryID: queryUUID(c, "category_id"),
	}
	customers, err := h.customers.ListCustomers(c.UserContext(), filter, pagination(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, customers)
}

func (h *CatalogHandler) GetCustomer(c *fiber.Ctx) error {
	id, valid := paramID(c, "customer")
	if !valid {
		return nil
	}
	customer, err := h.customers.GetCustomer(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, customer)
}

func (h *CatalogHandler) GetCustomerOrders(c *fiber.Ctx) error {
	id, valid := paramID(c, "customer")
	if !valid {
		return nil
	}
	history, err := h.customers.CustomerOrders(c.UserContext(), id, pagination(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, history)
}

func (h *CatalogHandler) CreateCustomer(c *fiber.Ctx) error {
	var req service.CustomerInput
	if !parseBody(c, &req) {
		return nil
	}
	customer, err := h.customers.CreateCustomer(c.UserContext(), &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, customer)
}

func (h *CatalogHandler) UpdateCustomer(c *fiber.Ctx) error {
	id, valid := paramID(c, "customer")
	if !valid {
		return nil
	}
	var req service.CustomerInput
	if !parseBody(c, &req) {
		return nil
	}
	customer, err := h.customers.UpdateCustomer(c.UserContext(), id, &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, customer)
}

func (h *CatalogHandler) DeleteCustomer(c *fiber.Ctx) error {
	id, valid := paramID(c, "customer")
	if !valid {
		return nil
	}
	if err := h.customers.DeleteCustomer(c.UserContext(), id, currentActor(c)); err != nil {
		return fail(c, err)
	}
	return done(c, "Customer deleted")
}
