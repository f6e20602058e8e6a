package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockpilot/internal/apperr"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decoded struct {
	Success     bool              `json:"success"`
	Data        json.RawMessage   `json:"data"`
	Message     string            `json:"message"`
	Error       string            `json:"error"`
	FieldErrors map[string]string `json:"fieldErrors"`
	Shortfall   *apperr.Shortfall `json:"shortfall"`
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, decoded) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body decoded
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func TestFailMapsKindsToStatus(t *testing.T) {
	shortfall := apperr.Shortfall{ProductID: "p-1", ProductName: "Milk", Requested: 5, Available: 2, Shortfall: 3}
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.Validation(map[string]string{"items": "required"}), fiber.StatusBadRequest},
		{"conflict", apperr.Conflict("sku taken"), fiber.StatusConflict},
		{"not found", apperr.NotFound("order not found"), fiber.StatusNotFound},
		{"insufficient stock", apperr.InsufficientStock(shortfall), fiber.StatusUnprocessableEntity},
		{"forbidden", apperr.Forbidden("admins only"), fiber.StatusForbidden},
		{"unauthorized", apperr.Unauthorized("session expired"), fiber.StatusUnauthorized},
		{"foreign error", errors.New("dial tcp 10.0.0.5:5432: i/o timeout"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return fail(c, tt.err) })

			status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.status, status)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
			assert.NotContains(t, body.Error, "10.0.0.5")
		})
	}
}

func TestFailCarriesDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/fields", func(c *fiber.Ctx) error {
		return fail(c, apperr.Validation(map[string]string{"customerId": "is required"}))
	})
	app.Get("/stock", func(c *fiber.Ctx) error {
		return fail(c, apperr.InsufficientStock(apperr.Shortfall{ProductName: "Milk", Requested: 5, Available: 2, Shortfall: 3}))
	})

	_, body := do(t, app, httptest.NewRequest(http.MethodGet, "/fields", nil))
	assert.Equal(t, "is required", body.FieldErrors["customerId"])

	_, body = do(t, app, httptest.NewRequest(http.MethodGet, "/stock", nil))
	require.NotNil(t, body.Shortfall)
	assert.Equal(t, 3, body.Shortfall.Shortfall)
	assert.Equal(t, "Milk", body.Shortfall.ProductName)
}

// stubOrders answers only the calls a test wires; anything else panics.
type stubOrders struct {
	service.OrderService
	created  *service.OrderInput
	actor    model.Actor
	filter   repository.OrderFilter
	createFn func(in *service.OrderInput) (*model.Order, error)
}

func (s *stubOrders) CreateOrder(_ context.Context, in *service.OrderInput, actor model.Actor) (*model.Order, error) {
	s.created, s.actor = in, actor
	return s.createFn(in)
}

func (s *stubOrders) ListOrders(_ context.Context, filter repository.OrderFilter, page repository.Pagination, _ model.Actor) (*repository.PageResult[model.Order], error) {
	s.filter = filter
	return repository.NewPageResult([]model.Order{}, 0, page), nil
}

func withActor(c *fiber.Ctx) error {
	c.Locals("user_id", "u-1")
	c.Locals("user_name", "Rina")
	c.Locals("user_role", model.RoleEmployee)
	c.Locals("user_privileges", []string{model.PrivOrderCreate})
	return c.Next()
}

func TestCreateOrder(t *testing.T) {
	customerID := uuid.New()
	stub := &stubOrders{createFn: func(in *service.OrderInput) (*model.Order, error) {
		return &model.Order{CustomerID: in.CustomerID, CustomerName: "Budi"}, nil
	}}
	app := fiber.New()
	app.Post("/orders", withActor, NewOrderHandler(stub, time.UTC).CreateOrder)

	body := `{"customerId":"` + customerID.String() + `","items":[{"productId":"` + uuid.NewString() + `","quantity":2}],"discountType":"percentage","discountValue":"10"}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	status, resp := do(t, app, req)

	assert.Equal(t, fiber.StatusCreated, status)
	assert.True(t, resp.Success)
	require.NotNil(t, stub.created)
	assert.Equal(t, customerID, stub.created.CustomerID)
	assert.Equal(t, 2, stub.created.Items[0].Quantity)
	assert.Equal(t, "10", stub.created.DiscountValue.String())
	assert.Equal(t, "Rina", stub.actor.Name)
	assert.Equal(t, model.RoleEmployee, stub.actor.RoleCode)
}

func TestCreateOrderRejectsBadJSON(t *testing.T) {
	stub := &stubOrders{}
	app := fiber.New()
	app.Post("/orders", withActor, NewOrderHandler(stub, time.UTC).CreateOrder)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":`))
	req.Header.Set("Content-Type", "application/json")

	status, resp := do(t, app, req)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid JSON", resp.Error)
	assert.Nil(t, stub.created)
}

func TestGetOrdersFilters(t *testing.T) {
	stub := &stubOrders{}
	app := fiber.New()
	app.Get("/orders", withActor, NewOrderHandler(stub, time.UTC).GetOrders)

	status, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/orders?status=pending&from=2026-03-01&to=2026-03-31&customer_id=not-a-uuid", nil))

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, model.OrderStatus("pending"), stub.filter.Status)
	assert.Nil(t, stub.filter.CustomerID)
	require.NotNil(t, stub.filter.From)
	require.NotNil(t, stub.filter.To)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *stub.filter.From)
	// to is inclusive: the filter ends at the start of the next day
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *stub.filter.To)
}

func TestGetOrdersRejectsBadDate(t *testing.T) {
	app := fiber.New()
	app.Get("/orders", withActor, NewOrderHandler(&stubOrders{}, time.UTC).GetOrders)

	status, resp := do(t, app, httptest.NewRequest(http.MethodGet, "/orders?from=01-03-2026", nil))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, resp.FieldErrors, "from")
}

func TestParamIDRejectsGarbage(t *testing.T) {
	app := fiber.New()
	app.Get("/orders/:id", withActor, NewOrderHandler(&stubOrders{}, time.UTC).GetOrder)

	status, resp := do(t, app, httptest.NewRequest(http.MethodGet, "/orders/42", nil))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid order ID", resp.Error)
}
