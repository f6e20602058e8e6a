package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"stockpilot/internal/allocator"
	"stockpilot/internal/apperr"
	"stockpilot/internal/metrics"
	"stockpilot/internal/model"
	"stockpilot/internal/pricing"
	"stockpilot/internal/repository"
	"stockpilot/internal/ws"
	"stockpilot/pkg/cache"
	"stockpilot/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderService interface {
	// Quote prices an order without touching stock.
	Quote(ctx context.Context, in *OrderInput) (*Quote, error)
	CreateOrder(ctx context.Context, in *OrderInput, actor model.Actor) (*model.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, in *OrderInput, actor model.Actor) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, actor model.Actor) (*model.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID, actor model.Actor) error
	GetOrder(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter, page repository.Pagination, actor model.Actor) (*repository.PageResult[model.Order], error)
}

type OrderLineInput struct {
	ProductID uuid.UUID `json:"productId" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
	// UnitPrice overrides the catalog price when set.
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

type OrderInput struct {
	CustomerID    uuid.UUID          `json:"customerId" validate:"uuid_required"`
	Items         []OrderLineInput   `json:"items" validate:"required,min=1,dive"`
	DiscountType  model.DiscountType `json:"discountType" validate:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discountValue"`
	ShippingFee   decimal.Decimal    `json:"shippingFee"`
	Notes         string             `json:"notes" validate:"max=2000"`
}

type QuoteLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Available   int             `json:"available"`
}

type Quote struct {
	pricing.Totals
	Lines      []QuoteLine        `json:"lines"`
	Shortfalls []apperr.Shortfall `json:"shortfalls,omitempty"`
}

type orderService struct {
	store     repository.Store
	publisher ws.Publisher
	cache     cache.Cache
	now       func() time.Time
}

func NewOrderService(store repository.Store, publisher ws.Publisher, c cache.Cache) OrderService {
	return &orderService{
		store:     store,
		publisher: publisher,
		cache:     c,
		now:       time.Now,
	}
}

// linePlan is a validated line item together with the batches it will draw from.
type linePlan struct {
	product     *model.Product
	quantity    int
	unitPrice   decimal.Decimal
	allocations []allocator.Allocation
}

func validateOrderInput(in *OrderInput) error {
	fields := validator.Fields(in)
	if fields == nil {
		fields = map[string]string{}
	}

	seen := make(map[uuid.UUID]int, len(in.Items))
	for i, item := range in.Items {
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			fields[fmt.Sprintf("items[%d].unitPrice", i)] = "must be at least 0"
		}
		if item.ProductID == uuid.Nil {
			continue
		}
		if j, dup := seen[item.ProductID]; dup {
			fields[fmt.Sprintf("items[%d].productId", i)] = fmt.Sprintf("duplicates items[%d]", j)
			continue
		}
		seen[item.ProductID] = i
	}
	if in.DiscountValue.IsNegative() {
		fields["discountValue"] = "must be at least 0"
	}
	if in.ShippingFee.IsNegative() {
		fields["shippingFee"] = "must be at least 0"
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

func lineProductIDs(items []OrderLineInput) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}

func unitPriceFor(item OrderLineInput, p *model.Product) decimal.Decimal {
	if item.UnitPrice != nil {
		return item.UnitPrice.Round(2)
	}
	return p.Price
}

// planLines checks every line against the locked products before any write.
func planLines(products map[uuid.UUID]*model.Product, items []OrderLineInput) ([]linePlan, error) {
	plans := make([]linePlan, 0, len(items))
	for _, item := range items {
		p := products[item.ProductID]
		if p == nil || p.DeletedAt.Valid {
			return nil, apperr.NotFound("Product %s not found", item.ProductID)
		}
		allocs, err := planDraw(p, item.Quantity)
		if err != nil {
			return nil, err
		}
		plans = append(plans, linePlan{
			product:     p,
			quantity:    item.Quantity,
			unitPrice:   unitPriceFor(item, p),
			allocations: allocs,
		})
	}
	return plans, nil
}

func findBatch(p *model.Product, id uuid.UUID) *model.Batch {
	for i := range p.Batches {
		if p.Batches[i].ID == id {
			return &p.Batches[i]
		}
	}
	return nil
}

func buildItem(lp linePlan) (model.OrderItem, decimal.Decimal) {
	p := lp.product

	var costLines []pricing.CostLine
	usages := make([]model.OrderBatchUsage, 0, len(lp.allocations))
	for _, a := range lp.allocations {
		unitCost := p.Cost
		if b := findBatch(p, a.BatchID); b != nil {
			unitCost = b.CostOr(p.Cost)
		}
		costLines = append(costLines, pricing.CostLine{Quantity: a.QuantityUsed, UnitCost: unitCost})
		usages = append(usages, model.OrderBatchUsage{
			BatchID:      a.BatchID,
			ExpiryDate:   a.ExpiryDate,
			QuantityUsed: a.QuantityUsed,
		})
	}
	if len(costLines) == 0 {
		costLines = []pricing.CostLine{{Quantity: lp.quantity, UnitCost: p.Cost}}
	}
	cogs := pricing.CostOfGoods(costLines)

	return model.OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		Quantity:    lp.quantity,
		UnitPrice:   lp.unitPrice,
		UnitCost:    pricing.AverageUnitCost(cogs, lp.quantity),
		LineTotal:   lp.unitPrice.Mul(decimal.NewFromInt(int64(lp.quantity))).Round(2),
		BatchesUsed: usages,
	}, cogs
}

// fillOrder prices the planned lines and writes items and totals onto order.
func fillOrder(order *model.Order, customer *model.Customer, plans []linePlan, in *OrderInput) {
	items := make([]model.OrderItem, 0, len(plans))
	lines := make([]pricing.Line, 0, len(plans))
	cogs := decimal.Zero
	for _, lp := range plans {
		item, lineCost := buildItem(lp)
		item.OrderID = order.ID
		items = append(items, item)
		lines = append(lines, pricing.Line{Quantity: lp.quantity, UnitPrice: lp.unitPrice})
		cogs = cogs.Add(lineCost)
	}

	discount := pricing.Discount{Type: in.DiscountType, Value: in.DiscountValue}
	totals := pricing.Compute(lines, discount, in.ShippingFee)

	order.CustomerID = customer.ID
	order.CustomerName = customer.Name
	order.Items = items
	order.DiscountType = in.DiscountType
	order.DiscountValue = in.DiscountValue
	order.ShippingFee = totals.ShippingFee
	order.Subtotal = totals.Subtotal
	order.DiscountAmount = totals.DiscountAmount
	order.Total = totals.Total
	order.CostOfGoods = cogs
	order.Profit = pricing.Profit(totals, cogs)
	order.Notes = strings.TrimSpace(in.Notes)
}

// applyLines performs the planned batch and aggregate decrements.
func applyLines(ctx context.Context, tx repository.Store, orderID uuid.UUID, plans []linePlan, actor model.Actor, kind model.MovementType, note string) ([]*model.InventoryMovement, error) {
	movements := make([]*model.InventoryMovement, 0, len(plans))
	for _, lp := range plans {
		if err := drainBatches(ctx, tx, lp.product, lp.allocations); err != nil {
			return nil, err
		}
		m, err := applyStock(ctx, tx, lp.product, stockChange{
			Delta:   -lp.quantity,
			Type:    kind,
			OrderID: &orderID,
			Note:    note,
		}, actor)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}

// restoreItems puts back everything the order's items consumed.
func restoreItems(ctx context.Context, tx repository.Store, order *model.Order, products map[uuid.UUID]*model.Product, actor model.Actor, kind model.MovementType, note string) ([]*model.InventoryMovement, error) {
	movements := make([]*model.InventoryMovement, 0, len(order.Items))
	for _, item := range order.Items {
		p := products[item.ProductID]
		if p == nil {
			return nil, apperr.NotFound("Product %s not found", item.ProductID)
		}

		change := stockChange{Delta: item.Quantity, Type: kind, OrderID: &order.ID, Note: note}
		switch {
		case len(item.BatchesUsed) > 0:
			if err := refillBatches(ctx, tx, p, item.BatchesUsed); err != nil {
				return nil, err
			}
		case p.BatchTracked():
			// Sold before batch tracking started: return the units as their own batch.
			batch, err := returnBatch(ctx, tx, p, item.Quantity, order, actor)
			if err != nil {
				return nil, err
			}
			change.BatchID = &batch.ID
		}

		m, err := applyStock(ctx, tx, p, change, actor)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}

func returnBatch(ctx context.Context, tx repository.Store, p *model.Product, qty int, order *model.Order, actor model.Actor) (*model.Batch, error) {
	batch := &model.Batch{
		ProductID:         p.ID,
		BatchNumber:       "RET-" + order.OrderNumber,
		ExpiryDate:        openingExpiry(p),
		InitialQuantity:   qty,
		RemainingQuantity: qty,
	}
	batch.CreatedBy = actor.ID
	batch.UpdatedBy = actor.ID
	if err := tx.Batches().Create(ctx, batch); err != nil {
		return nil, err
	}
	p.Batches = append(p.Batches, *batch)
	return batch, nil
}

func (s *orderService) orderNumber(id uuid.UUID) string {
	return fmt.Sprintf("SO-%s-%s", s.now().Format("20060102"), strings.ToUpper(id.String()[:8]))
}

func (s *orderService) findCustomer(ctx context.Context, tx repository.Store, id uuid.UUID) (*model.Customer, error) {
	customer, err := tx.Customers().FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Validation(map[string]string{"customerId": "customer not found"})
		}
		return nil, err
	}
	return customer, nil
}

func (s *orderService) Quote(ctx context.Context, in *OrderInput) (*Quote, error) {
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	quote := &Quote{Lines: make([]QuoteLine, 0, len(in.Items))}
	lines := make([]pricing.Line, 0, len(in.Items))
	for _, item := range in.Items {
		p, err := s.store.Products().FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, translate(err, fmt.Sprintf("Product %s not found", item.ProductID))
		}
		price := unitPriceFor(item, p)
		lines = append(lines, pricing.Line{Quantity: item.Quantity, UnitPrice: price})
		quote.Lines = append(quote.Lines, QuoteLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   price,
			LineTotal:   price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
			Available:   p.Stock,
		})
		if item.Quantity > p.Stock {
			quote.Shortfalls = append(quote.Shortfalls, apperr.Shortfall{
				ProductID:   p.ID.String(),
				ProductName: p.Name,
				Requested:   item.Quantity,
				Available:   p.Stock,
				Shortfall:   item.Quantity - p.Stock,
			})
		}
	}

	quote.Totals = pricing.Compute(lines, pricing.Discount{Type: in.DiscountType, Value: in.DiscountValue}, in.ShippingFee)
	return quote, nil
}

func (s *orderService) CreateOrder(ctx context.Context, in *OrderInput, actor model.Actor) (*model.Order, error) {
	// 1. Validate request
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	order := &model.Order{Status: model.OrderPending}
	order.ID = uuid.New()
	order.OrderNumber = s.orderNumber(order.ID)
	order.CreatedBy = actor.ID
	order.UpdatedBy = actor.ID
	order.CreatedByID = actor.ID
	order.CreatedByName = actor.Name

	var movements []*model.InventoryMovement
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		// 2. Resolve references and lock stock rows
		customer, err := s.findCustomer(ctx, tx, in.CustomerID)
		if err != nil {
			return err
		}
		products, err := lockProducts(ctx, tx, lineProductIDs(in.Items))
		if err != nil {
			return err
		}

		// 3. Plan every line, aborting on the first shortfall
		plans, err := planLines(products, in.Items)
		if err != nil {
			return err
		}

		// 4. Price and persist
		fillOrder(order, customer, plans, in)
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		// 5. Consume batches and aggregate stock
		movements, err = applyLines(ctx, tx, order.ID, plans, actor, model.MovementSale, "Order "+order.OrderNumber)
		return err
	})
	if err != nil {
		return nil, translate(err, "Order references a missing record")
	}

	s.announce(ctx, "created", order, movements, actor)
	return order, nil
}

func (s *orderService) lockEditable(ctx context.Context, tx repository.Store, id uuid.UUID) (*model.Order, error) {
	order, err := tx.Orders().FindByIDForUpdate(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, err
	}
	if order.IsDeleted {
		return nil, apperr.Conflict("Order %s has been deleted", order.OrderNumber)
	}
	return order, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, id uuid.UUID, in *OrderInput, actor model.Actor) (*model.Order, error) {
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	var order *model.Order
	var movements []*model.InventoryMovement
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		order, err = s.lockEditable(ctx, tx, id)
		if err != nil {
			return err
		}
		if !order.Status.Editable() {
			return apperr.Conflict("Order %s is %s and can no longer be edited", order.OrderNumber, order.Status)
		}

		customer, err := s.findCustomer(ctx, tx, in.CustomerID)
		if err != nil {
			return err
		}

		ids := lineProductIDs(in.Items)
		for _, item := range order.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := lockProducts(ctx, tx, ids)
		if err != nil {
			return err
		}

		// Put the old consumption back, then plan the new lines against it.
		note := "Edit of order " + order.OrderNumber
		restored, err := restoreItems(ctx, tx, order, products, actor, model.MovementOrderUpdate, note)
		if err != nil {
			return err
		}
		plans, err := planLines(products, in.Items)
		if err != nil {
			return err
		}
		fillOrder(order, customer, plans, in)
		applied, err := applyLines(ctx, tx, order.ID, plans, actor, model.MovementOrderUpdate, note)
		if err != nil {
			return err
		}

		order.UpdatedBy = actor.ID
		if err := tx.Orders().Update(ctx, order); err != nil {
			return err
		}
		movements = append(restored, applied...)
		return nil
	})
	if err != nil {
		return nil, translate(err, "Order not found")
	}

	s.announce(ctx, "updated", order, movements, actor)
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, actor model.Actor) (*model.Order, error) {
	if !status.Valid() {
		return nil, apperr.Validation(map[string]string{
			"status": "must be one of: pending processing shipped delivered completed cancelled",
		})
	}

	var order *model.Order
	var movements []*model.InventoryMovement
	changed := false
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		order, err = s.lockEditable(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Status == status {
			return nil
		}
		if !order.Status.CanTransitionTo(status) {
			return apperr.Conflict("Order %s cannot move from %s to %s", order.OrderNumber, order.Status, status)
		}

		if status == model.OrderCancelled && order.Status.HoldsStock() {
			ids := make([]uuid.UUID, 0, len(order.Items))
			for _, item := range order.Items {
				ids = append(ids, item.ProductID)
			}
			products, err := lockProducts(ctx, tx, ids)
			if err != nil {
				return err
			}
			movements, err = restoreItems(ctx, tx, order, products, actor, model.MovementOrderCancel, "Cancellation of order "+order.OrderNumber)
			if err != nil {
				return err
			}
		}

		if err := tx.Orders().UpdateStatus(ctx, order.ID, status, actor.ID); err != nil {
			return err
		}
		order.Status = status
		order.UpdatedBy = actor.ID
		changed = true
		return nil
	})
	if err != nil {
		return nil, translate(err, "Order not found")
	}

	if changed {
		s.announce(ctx, string(status), order, movements, actor)
	}
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Only an administrator can delete orders")
	}

	order, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return translate(err, "Order not found")
	}
	if order.IsDeleted {
		return apperr.Conflict("Order %s is already deleted", order.OrderNumber)
	}
	if err := s.store.Orders().SoftDelete(ctx, id, actor); err != nil {
		return apperr.Wrap(err)
	}

	order.IsDeleted = true
	s.announce(ctx, "deleted", order, nil, actor)
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Order not found")
	}
	if order.IsDeleted && !actor.IsAdmin() {
		return nil, apperr.NotFound("Order not found")
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter, page repository.Pagination, actor model.Actor) (*repository.PageResult[model.Order], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation(map[string]string{"status": "unknown order status"})
	}
	if !actor.IsAdmin() {
		filter.IncludeDeleted = false
	}
	result, err := s.store.Orders().List(ctx, filter, page)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return result, nil
}

// announce runs after commit: metrics, cache invalidation and live events.
func (s *orderService) announce(ctx context.Context, action string, order *model.Order, movements []*model.InventoryMovement, actor model.Actor) {
	metrics.OrdersTotal.WithLabelValues(action).Inc()
	observeMovements(movements)
	if err := invalidateReports(ctx, s.cache); err != nil {
		log.Printf("order %s: cache invalidation failed: %v", order.OrderNumber, err)
	}

	s.publisher.Publish(ws.Event{
		Type:   ws.EventOrderUpdate,
		Action: action,
		Data: map[string]any{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"total":        order.Total,
			"is_deleted":   order.IsDeleted,
		},
		User:    eventUser(actor),
		Message: fmt.Sprintf("%s %s order %s", actor.Name, action, order.OrderNumber),
	})
	if len(movements) > 0 {
		s.publisher.Publish(ws.Event{
			Type:   ws.EventStockUpdate,
			Action: "order_" + action,
			Data:   stockEventData(movements),
			User:   eventUser(actor),
		})
	}
}
