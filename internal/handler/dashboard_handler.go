package handler

import (
	"time"

	"stockpilot/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service  service.DashboardService
	location *time.Location
}

func NewDashboardHandler(s service.DashboardService, loc *time.Location) *DashboardHandler {
	return &DashboardHandler{service: s, location: loc}
}

// GetStockMovement returns stock movement data for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetStockMovement(c *fiber.Ctx) error {
	days := queryPositive(c, "days", 7)

	data, err := h.service.GetStockMovement(c.UserContext(), days)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, stats)
}

// reportRange reads from/to (inclusive dates), defaulting to the last 30 days.
func (h *DashboardHandler) reportRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := time.Now().In(h.location)
	y, m, d := now.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, h.location).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -30)

	from, err := queryDate(c, "from", h.location)
	if err != nil {
		return start, end, err
	}
	to, err := queryDate(c, "to", h.location)
	if err != nil {
		return start, end, err
	}
	if from != nil {
		start = *from
	}
	if to != nil {
		end = to.AddDate(0, 0, 1)
	}
	return start, end, nil
}

// GET /api/v1/reports/sales?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *DashboardHandler) SalesReport(c *fiber.Ctx) error {
	from, to, err := h.reportRange(c)
	if err != nil {
		return fail(c, err)
	}
	report, err := h.service.SalesReport(c.UserContext(), from, to)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}

// GET /api/v1/reports/top-products?from=&to=&limit=
func (h *DashboardHandler) TopProducts(c *fiber.Ctx) error {
	from, to, err := h.reportRange(c)
	if err != nil {
		return fail(c, err)
	}
	top, err := h.service.TopProducts(c.UserContext(), from, to, queryPositive(c, "limit", 10))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, top)
}

// GET /api/v1/reports/expiring-batches?days=
func (h *DashboardHandler) ExpiringBatches(c *fiber.Ctx) error {
	batches, err := h.service.ExpiringBatches(c.UserContext(), queryPositive(c, "days", 0))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, batches)
}

// GET /api/v1/reports/low-stock?limit=
func (h *DashboardHandler) LowStock(c *fiber.Ctx) error {
	products, err := h.service.LowStock(c.UserContext(), queryPositive(c, "limit", 50))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, products)
}
