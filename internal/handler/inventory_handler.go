package handler

import (
	"io"
	"strings"

	"stockpilot/internal/repository"
	"stockpilot/internal/service"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	service service.InventoryService
	reorder service.ReorderService
}

func NewInventoryHandler(s service.InventoryService, reorder service.ReorderService) *InventoryHandler {
	return &InventoryHandler{service: s, reorder: reorder}
}

// GET /api/v1/products?search=&category_id=&low_stock=true&page=&limit=
func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	filter := repository.ProductFilter{
		Search:       strings.TrimSpace(c.Query("search")),
		CategoryID:   queryUUID(c, "category_id"),
		LowStockOnly: c.QueryBool("low_stock"),
	}
	products, err := h.service.ListProducts(c.UserContext(), filter, pagination(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, products)
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	id, valid := paramID(c, "product")
	if !valid {
		return nil
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, product)
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.ProductInput
	if !parseBody(c, &req) {
		return nil
	}

	product, err := h.service.CreateProduct(c.UserContext(), &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, product)
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	id, valid := paramID(c, "product")
	if !valid {
		return nil
	}
	var req service.ProductInput
	if !parseBody(c, &req) {
		return nil
	}

	product, err := h.service.UpdateProduct(c.UserContext(), id, &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, product)
}

func (h *InventoryHandler) DeleteProduct(c *fiber.Ctx) error {
	id, valid := paramID(c, "product")
	if !valid {
		return nil
	}
	if err := h.service.DeleteProduct(c.UserContext(), id, currentActor(c)); err != nil {
		return fail(c, err)
	}
	return done(c, "Product deleted")
}

// StockIn receives a new batch.
// POST /api/v1/products/:id/batches
func (h *InventoryHandler) StockIn(c *fiber.Ctx) error {
	id, valid := paramID(c, "product")
	if !valid {
		return nil
	}
	var req service.StockInInput
	if !parseBody(c, &req) {
		return nil
	}

	batch, err := h.service.StockIn(c.UserContext(), id, &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, batch)
}

// POST /api/v1/products/:id/adjust
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	id, valid := paramID(c, "product")
	if !valid {
		return nil
	}
	var req service.AdjustStockInput
	if !parseBody(c, &req) {
		return nil
	}

	movement, err := h.service.AdjustStock(c.UserContext(), id, &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, movement)
}

func (h *InventoryHandler) GetMovements(c *fiber.Ctx) error {
	id, valid := paramID(c, "product")
	if !valid {
		return nil
	}
	movements, err := h.service.ListMovements(c.UserContext(), id, pagination(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, movements)
}

// UploadImage expects a multipart form with an "image" file.
// POST /api/v1/products/:id/image
func (h *InventoryHandler) UploadImage(c *fiber.Ctx) error {
	id, valid := paramID(c, "product")
	if !valid {
		return nil
	}
	header, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "Missing image file")
	}
	file, err := header.Open()
	if err != nil {
		return badRequest(c, "Unreadable image file")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "Unreadable image file")
	}

	product, err := h.service.UploadImage(c.UserContext(), id, data, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, product)
}

// GET /api/v1/products/:id/reorder-suggestion
func (h *InventoryHandler) ReorderSuggestion(c *fiber.Ctx) error {
	id, valid := paramID(c, "product")
	if !valid {
		return nil
	}
	suggestion, err := h.reorder.Suggest(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, suggestion)
}
