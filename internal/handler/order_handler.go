package handler

import (
	"strings"
	"time"

	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	service  service.OrderService
	location *time.Location
}

func NewOrderHandler(s service.OrderService, loc *time.Location) *OrderHandler {
	return &OrderHandler{service: s, location: loc}
}

// GET /api/v1/orders?status=&customer_id=&from=&to=&search=&include_deleted=
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	filter := repository.OrderFilter{
		Status:         model.OrderStatus(c.Query("status")),
		CustomerID:     queryUUID(c, "customer_id"),
		Search:         strings.TrimSpace(c.Query("search")),
		IncludeDeleted: c.QueryBool("include_deleted"),
	}
	from, err := queryDate(c, "from", h.location)
	if err != nil {
		return fail(c, err)
	}
	to, err := queryDate(c, "to", h.location)
	if err != nil {
		return fail(c, err)
	}
	if to != nil {
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	filter.From, filter.To = from, to

	orders, err := h.service.ListOrders(c.UserContext(), filter, pagination(c), currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, orders)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, valid := paramID(c, "order")
	if !valid {
		return nil
	}
	order, err := h.service.GetOrder(c.UserContext(), id, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, order)
}

// Quote prices a draft order without reserving stock.
// POST /api/v1/orders/quote
func (h *OrderHandler) Quote(c *fiber.Ctx) error {
	var req service.OrderInput
	if !parseBody(c, &req) {
		return nil
	}
	quote, err := h.service.Quote(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, quote)
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req service.OrderInput
	if !parseBody(c, &req) {
		return nil
	}
	order, err := h.service.CreateOrder(c.UserContext(), &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, order)
}

func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	id, valid := paramID(c, "order")
	if !valid {
		return nil
	}
	var req service.OrderInput
	if !parseBody(c, &req) {
		return nil
	}
	order, err := h.service.UpdateOrder(c.UserContext(), id, &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, order)
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// PATCH /api/v1/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, valid := paramID(c, "order")
	if !valid {
		return nil
	}
	var req statusRequest
	if !parseBody(c, &req) {
		return nil
	}
	order, err := h.service.UpdateStatus(c.UserContext(), id, req.Status, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, order)
}

// DeleteOrder hides the order; consumed stock stays consumed.
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	id, valid := paramID(c, "order")
	if !valid {
		return nil
	}
	if err := h.service.DeleteOrder(c.UserContext(), id, currentActor(c)); err != nil {
		return fail(c, err)
	}
	return done(c, "Order deleted")
}
