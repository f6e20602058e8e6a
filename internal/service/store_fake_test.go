package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/internal/ws"
	"stockpilot/pkg/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memState is everything the fake store persists.
type memState struct {
	products  map[uuid.UUID]model.Product
	batches   map[uuid.UUID]model.Batch
	batchSeq  []uuid.UUID
	orders    map[uuid.UUID]model.Order
	customers map[uuid.UUID]model.Customer
	movements []model.InventoryMovement
}

func newMemState() *memState {
	return &memState{
		products:  map[uuid.UUID]model.Product{},
		batches:   map[uuid.UUID]model.Batch{},
		orders:    map[uuid.UUID]model.Order{},
		customers: map[uuid.UUID]model.Customer{},
	}
}

func cloneOrder(o model.Order) model.Order {
	items := make([]model.OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.BatchesUsed = slices.Clone(item.BatchesUsed)
		items[i] = item
	}
	o.Items = items
	return o
}

func (m *memState) clone() *memState {
	c := newMemState()
	for k, v := range m.products {
		c.products[k] = v
	}
	for k, v := range m.batches {
		c.batches[k] = v
	}
	c.batchSeq = slices.Clone(m.batchSeq)
	for k, v := range m.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range m.customers {
		c.customers[k] = v
	}
	c.movements = slices.Clone(m.movements)
	return c
}

// memStore is an in-memory repository.Store. Transaction snapshots the state
// and puts the snapshot back when fn fails, like a database rollback.
type memStore struct {
	mu    sync.Mutex
	state *memState
	calls map[string]int
	fail  map[string]failRule
}

type failRule struct {
	nth int
	err error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), calls: map[string]int{}, fail: map[string]failRule{}}
}

// failOn makes the nth call (1-based) of op return err.
func (s *memStore) failOn(op string, nth int, err error) {
	s.fail[op] = failRule{nth: nth, err: err}
}

func (s *memStore) hook(op string) error {
	s.calls[op]++
	if rule, ok := s.fail[op]; ok && s.calls[op] == rule.nth {
		return rule.err
	}
	return nil
}

func (s *memStore) Products() repository.ProductRepository   { return memProducts{s} }
func (s *memStore) Batches() repository.BatchRepository     { return memBatches{s} }
func (s *memStore) Orders() repository.OrderRepository       { return memOrders{s} }
func (s *memStore) Customers() repository.CustomerRepository { return memCustomers{s} }
func (s *memStore) Movements() repository.MovementRepository { return memMovements{s} }

func (s *memStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Seeding and inspection helpers.

func (s *memStore) addCustomer(name string) model.Customer {
	c := model.Customer{Name: name}
	c.ID = uuid.New()
	s.state.customers[c.ID] = c
	return c
}

func (s *memStore) addProduct(name string, price, cost int64, stock int) model.Product {
	p := model.Product{
		SKU:               strings.ToUpper(name),
		Name:              name,
		Price:             dec(price),
		Cost:              dec(cost),
		Stock:             stock,
		LowStockThreshold: 2,
	}
	p.ID = uuid.New()
	s.state.products[p.ID] = p
	return p
}

// addBatch adds a batch and raises the product's aggregate stock with it.
func (s *memStore) addBatch(productID uuid.UUID, expiry time.Time, qty int) model.Batch {
	b := model.Batch{ProductID: productID, ExpiryDate: expiry, InitialQuantity: qty, RemainingQuantity: qty}
	b.ID = uuid.New()
	s.state.batches[b.ID] = b
	s.state.batchSeq = append(s.state.batchSeq, b.ID)
	p := s.state.products[productID]
	p.Stock += qty
	s.state.products[productID] = p
	return b
}

func (s *memStore) stock(productID uuid.UUID) int {
	return s.state.products[productID].Stock
}

func (s *memStore) remaining(batchID uuid.UUID) int {
	return s.state.batches[batchID].RemainingQuantity
}

func (s *memStore) movementsOf(productID uuid.UUID) []model.InventoryMovement {
	var out []model.InventoryMovement
	for _, m := range s.state.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) productWithBatches(id uuid.UUID) *model.Product {
	p := s.state.products[id]
	p.Batches = nil
	for _, bid := range s.state.batchSeq {
		if b := s.state.batches[bid]; b.ProductID == id {
			p.Batches = append(p.Batches, b)
		}
	}
	return &p
}

func paged[T any](items []T, page repository.Pagination) *repository.PageResult[T] {
	page = page.Normalize()
	total := int64(len(items))
	start := min(page.Offset(), len(items))
	end := min(start+page.Limit, len(items))
	return repository.NewPageResult(items[start:end], total, page)
}

type memProducts struct{ s *memStore }

func (r memProducts) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hook("products.create"); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	stored := *p
	stored.Batches = nil
	r.s.state.products[p.ID] = stored
	return nil
}

// Update keeps the stored stock, matching the column list the gorm
// repository writes.
func (r memProducts) Update(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.state.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored := *p
	stored.Batches = nil
	stored.Stock = current.Stock
	stored.DeletedAt = current.DeletedAt
	r.s.state.products[p.ID] = stored
	return nil
}

func (r memProducts) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.state.products[id]
	if !ok || p.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	return r.s.productWithBatches(id), nil
}

func (r memProducts) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.products[id]; !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.productWithBatches(id), nil
}

func (r memProducts) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.state.products {
		if p.SKU == sku && !p.DeletedAt.Valid {
			return r.s.productWithBatches(id), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memProducts) List(_ context.Context, filter repository.ProductFilter, page repository.Pagination) (*repository.PageResult[model.Product], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []model.Product
	for id, p := range r.s.state.products {
		if p.DeletedAt.Valid || (filter.LowStockOnly && !p.IsLowStock()) {
			continue
		}
		items = append(items, *r.s.productWithBatches(id))
	}
	slices.SortFunc(items, func(a, b model.Product) int { return strings.Compare(a.Name, b.Name) })
	return paged(items, page), nil
}

func (r memProducts) ListLowStock(_ context.Context, limit int) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []model.Product
	for _, p := range r.s.state.products {
		if !p.DeletedAt.Valid && p.IsLowStock() {
			items = append(items, p)
		}
	}
	slices.SortFunc(items, func(a, b model.Product) int { return a.Stock - b.Stock })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r memProducts) UpdateStock(_ context.Context, id uuid.UUID, newStock int, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hook("products.update_stock"); err != nil {
		return err
	}
	p := r.s.state.products[id]
	p.Stock = newStock
	p.UpdatedBy = updatedBy
	r.s.state.products[id] = p
	return nil
}

func (r memProducts) Delete(_ context.Context, id uuid.UUID, deletedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := r.s.state.products[id]
	p.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	p.DeletedBy = deletedBy
	r.s.state.products[id] = p
	return nil
}

func (r memProducts) RenameCategory(_ context.Context, categoryID uuid.UUID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.state.products {
		if p.CategoryID != nil && *p.CategoryID == categoryID {
			p.CategoryName = name
			r.s.state.products[id] = p
		}
	}
	return nil
}

func (r memProducts) CountByCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.state.products {
		if !p.DeletedAt.Valid && p.CategoryID != nil && *p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

type memBatches struct{ s *memStore }

func (r memBatches) Create(_ context.Context, b *model.Batch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hook("batches.create"); err != nil {
		return err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.s.state.batches[b.ID] = *b
	r.s.state.batchSeq = append(r.s.state.batchSeq, b.ID)
	return nil
}

func (r memBatches) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.productWithBatches(productID).Batches, nil
}

func (r memBatches) Decrement(_ context.Context, id uuid.UUID, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hook("batches.decrement"); err != nil {
		return err
	}
	b, ok := r.s.state.batches[id]
	if !ok || b.RemainingQuantity < qty {
		return repository.ErrStockConflict
	}
	b.RemainingQuantity -= qty
	r.s.state.batches[id] = b
	return nil
}

func (r memBatches) Increment(_ context.Context, id uuid.UUID, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.state.batches[id]
	if !ok || b.RemainingQuantity+qty > b.InitialQuantity {
		return repository.ErrStockConflict
	}
	b.RemainingQuantity += qty
	r.s.state.batches[id] = b
	return nil
}

func (r memBatches) ListExpiring(_ context.Context, before time.Time, limit int) ([]repository.ExpiringBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.ExpiringBatch
	for _, id := range r.s.state.batchSeq {
		b := r.s.state.batches[id]
		p := r.s.state.products[b.ProductID]
		if b.RemainingQuantity == 0 || b.ExpiryDate.After(before) || p.DeletedAt.Valid {
			continue
		}
		out = append(out, repository.ExpiringBatch{
			BatchID:           b.ID,
			ProductID:         p.ID,
			ProductName:       p.Name,
			SKU:               p.SKU,
			BatchNumber:       b.BatchNumber,
			ExpiryDate:        b.ExpiryDate,
			RemainingQuantity: b.RemainingQuantity,
		})
	}
	slices.SortStableFunc(out, func(a, b repository.ExpiringBatch) int { return a.ExpiryDate.Compare(b.ExpiryDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memOrders struct{ s *memStore }

func (r memOrders) save(o *model.Order) {
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
	r.s.state.orders[o.ID] = cloneOrder(*o)
}

func (r memOrders) Create(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hook("orders.create"); err != nil {
		return err
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now()
	r.save(o)
	return nil
}

func (r memOrders) Update(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hook("orders.update"); err != nil {
		return err
	}
	for i := range o.Items {
		o.Items[i].ID = uuid.Nil
	}
	r.save(o)
	return nil
}

func (r memOrders) find(id uuid.UUID) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.state.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneOrder(o)
	return &c, nil
}

func (r memOrders) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return r.find(id)
}

func (r memOrders) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return r.find(id)
}

func (r memOrders) List(_ context.Context, filter repository.OrderFilter, page repository.Pagination) (*repository.PageResult[model.Order], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []model.Order
	for _, o := range r.s.state.orders {
		if o.IsDeleted && !filter.IncludeDeleted {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		items = append(items, cloneOrder(o))
	}
	slices.SortFunc(items, func(a, b model.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paged(items, page), nil
}

func (r memOrders) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o := r.s.state.orders[id]
	o.Status = status
	o.UpdatedBy = updatedBy
	r.s.state.orders[id] = o
	return nil
}

func (r memOrders) SoftDelete(_ context.Context, id uuid.UUID, actor model.Actor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	o := r.s.state.orders[id]
	o.IsDeleted = true
	o.DeletedAt = &now
	o.DeletedByUserID = actor.ID
	o.DeletedByName = actor.Name
	r.s.state.orders[id] = o
	return nil
}

func (r memOrders) RenameCustomer(_ context.Context, customerID uuid.UUID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, o := range r.s.state.orders {
		if o.CustomerID == customerID {
			o.CustomerName = name
			r.s.state.orders[id] = o
		}
	}
	return nil
}

func (r memOrders) RenameProduct(_ context.Context, productID uuid.UUID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, o := range r.s.state.orders {
		for i := range o.Items {
			if o.Items[i].ProductID == productID {
				o.Items[i].ProductName = name
			}
		}
		r.s.state.orders[id] = o
	}
	return nil
}

func (r memOrders) CountByCustomer(_ context.Context, customerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, o := range r.s.state.orders {
		if o.CustomerID == customerID && !o.IsDeleted {
			n++
		}
	}
	return n, nil
}

type memCustomers struct{ s *memStore }

func (r memCustomers) Create(_ context.Context, c *model.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.s.state.customers[c.ID] = *c
	return nil
}

func (r memCustomers) Update(_ context.Context, c *model.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.state.customers[c.ID] = *c
	return nil
}

func (r memCustomers) FindByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.state.customers[id]
	if !ok || c.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r memCustomers) FindByEmail(_ context.Context, email string) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.state.customers {
		if !c.DeletedAt.Valid && strings.EqualFold(c.Email, email) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memCustomers) List(_ context.Context, filter repository.CustomerFilter, page repository.Pagination) (*repository.PageResult[model.Customer], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []model.Customer
	for _, c := range r.s.state.customers {
		if !c.DeletedAt.Valid {
			items = append(items, c)
		}
	}
	slices.SortFunc(items, func(a, b model.Customer) int { return strings.Compare(a.Name, b.Name) })
	return paged(items, page), nil
}

func (r memCustomers) Delete(_ context.Context, id uuid.UUID, deletedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.s.state.customers[id]
	c.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	c.DeletedBy = deletedBy
	r.s.state.customers[id] = c
	return nil
}

func (r memCustomers) RenameCategory(_ context.Context, categoryID uuid.UUID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.state.customers {
		if c.CustomerCategoryID != nil && *c.CustomerCategoryID == categoryID {
			c.CustomerCategoryName = name
			r.s.state.customers[id] = c
		}
	}
	return nil
}

func (r memCustomers) CountByCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.state.customers {
		if !c.DeletedAt.Valid && c.CustomerCategoryID != nil && *c.CustomerCategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

type memMovements struct{ s *memStore }

func (r memMovements) Create(_ context.Context, m *model.InventoryMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hook("movements.create"); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.s.state.movements = append(r.s.state.movements, *m)
	return nil
}

func (r memMovements) List(_ context.Context, filter repository.MovementFilter, page repository.Pagination) (*repository.PageResult[model.InventoryMovement], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []model.InventoryMovement
	for i := len(r.s.state.movements) - 1; i >= 0; i-- {
		m := r.s.state.movements[i]
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.OrderID != nil && (m.OrderID == nil || *m.OrderID != *filter.OrderID) {
			continue
		}
		items = append(items, m)
	}
	return paged(items, page), nil
}

func (r memMovements) SoldSince(_ context.Context, since time.Time) (map[uuid.UUID]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sold := map[uuid.UUID]int{}
	for _, m := range r.s.state.movements {
		switch m.Type {
		case model.MovementSale, model.MovementOrderUpdate, model.MovementOrderCancel:
			if !m.CreatedAt.Before(since) {
				sold[m.ProductID] -= m.Quantity
			}
		}
	}
	for id, n := range sold {
		if n <= 0 {
			delete(sold, id)
		}
	}
	return sold, nil
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []ws.Event
}

func (r *recorder) Publish(event ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type + ":" + e.Action
	}
	return out
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	admin    = model.Actor{ID: "u-admin", Name: "Ada Admin", RoleCode: model.RoleAdmin}
	employee = model.Actor{ID: "u-emp", Name: "Eli Employee", RoleCode: model.RoleEmployee}
)

func decPtr(v int64) *decimal.Decimal {
	d := dec(v)
	return &d
}

// memCache only tracks which keys are present.
type memCache struct {
	mu     sync.Mutex
	values map[string]bool
}

func (c *memCache) Get(_ context.Context, key string, _ any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

func (c *memCache) Set(_ context.Context, key string, _ any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = true
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

// interleavedStore runs between once around the first product read. A plain
// read returns before between runs, so the caller holds a stale copy. A
// locked read waits for between to commit first, the way a row lock does.
type interleavedStore struct {
	*memStore
	between     func()
	lockedReads int
}

func (s *interleavedStore) Products() repository.ProductRepository {
	return interleavedProducts{memProducts: memProducts{s.memStore}, s: s}
}

func (s *interleavedStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.memStore.Transaction(ctx, func(repository.Store) error { return fn(s) })
}

func (s *interleavedStore) fire() {
	if f := s.between; f != nil {
		s.between = nil
		f()
	}
}

type interleavedProducts struct {
	memProducts
	s *interleavedStore
}

func (r interleavedProducts) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := r.memProducts.FindByID(ctx, id)
	r.s.fire()
	return p, err
}

func (r interleavedProducts) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.lockedReads++
	r.s.fire()
	return r.memProducts.FindByIDForUpdate(ctx, id)
}

// memImages is an ImageStore that keeps uploads in a map.
type memImages struct {
	seq     int
	stored  map[string]bool
	deleted []string
}

func newMemImages() *memImages {
	return &memImages{stored: map[string]bool{}}
}

func (m *memImages) Upload(_ context.Context, data []byte, folder string) (*storage.Uploaded, error) {
	m.seq++
	id := fmt.Sprintf("%s/img-%d", folder, m.seq)
	m.stored[id] = true
	return &storage.Uploaded{URL: "https://cdn.example.com/" + id, ID: id}, nil
}

func (m *memImages) Delete(_ context.Context, id string) error {
	delete(m.stored, id)
	m.deleted = append(m.deleted, id)
	return nil
}
