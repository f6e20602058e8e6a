package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"stockpilot/internal/apperr"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/internal/ws"
	"stockpilot/pkg/cache"
	"stockpilot/pkg/storage"
	"stockpilot/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// farExpiry dates stock whose real expiry is unknown.
var farExpiry = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

type InventoryService interface {
	CreateProduct(ctx context.Context, in *ProductInput, actor model.Actor) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in *ProductInput, actor model.Actor) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, actor model.Actor) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter, page repository.Pagination) (*repository.PageResult[model.Product], error)
	StockIn(ctx context.Context, id uuid.UUID, in *StockInInput, actor model.Actor) (*model.Batch, error)
	AdjustStock(ctx context.Context, id uuid.UUID, in *AdjustStockInput, actor model.Actor) (*model.InventoryMovement, error)
	ListMovements(ctx context.Context, productID uuid.UUID, page repository.Pagination) (*repository.PageResult[model.InventoryMovement], error)
	UploadImage(ctx context.Context, id uuid.UUID, data []byte, actor model.Actor) (*model.Product, error)
}

type ProductInput struct {
	SKU               string          `json:"sku" validate:"required,max=50"`
	Name              string          `json:"name" validate:"required,max=255"`
	Description       string          `json:"description"`
	CategoryID        *uuid.UUID      `json:"category_id"`
	Unit              string          `json:"unit" validate:"max=20"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	LowStockThreshold *int            `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	// Opening stock, only read on create.
	InitialStock int     `json:"initial_stock" validate:"gte=0"`
	ExpiryDate   *string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

type StockInInput struct {
	Quantity    int              `json:"quantity" validate:"gt=0"`
	ExpiryDate  string           `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	BatchNumber string           `json:"batch_number" validate:"max=50"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
	Note        string           `json:"note"`
}

type AdjustStockInput struct {
	// Delta is signed: positive adds stock, negative removes it.
	Delta      int     `json:"delta" validate:"required"`
	Reason     string  `json:"reason" validate:"required,max=500"`
	ExpiryDate *string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

type inventoryService struct {
	store      repository.Store
	categories repository.CategoryRepository
	images     storage.ImageStore
	publisher  ws.Publisher
	cache      cache.Cache
}

func NewInventoryService(store repository.Store, categories repository.CategoryRepository, images storage.ImageStore, publisher ws.Publisher, c cache.Cache) InventoryService {
	return &inventoryService{
		store:      store,
		categories: categories,
		images:     images,
		publisher:  publisher,
		cache:      c,
	}
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

// openingExpiry dates stock that predates batch tracking.
func openingExpiry(p *model.Product) time.Time {
	if p.ExpiryDate != nil {
		return *p.ExpiryDate
	}
	return farExpiry
}

func validateProduct(in *ProductInput) error {
	fields := validator.Fields(in)
	if fields == nil {
		fields = map[string]string{}
	}
	if in.Price.IsNegative() {
		fields["price"] = "must be at least 0"
	}
	if in.Cost.IsNegative() {
		fields["cost"] = "must be at least 0"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

func (s *inventoryService) resolveCategory(ctx context.Context, id *uuid.UUID) (string, error) {
	if id == nil || *id == uuid.Nil {
		return "", nil
	}
	category, err := s.categories.FindByID(ctx, *id)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", apperr.Validation(map[string]string{"category_id": "category not found"})
		}
		return "", err
	}
	return category.Name, nil
}

func (s *inventoryService) checkSKU(ctx context.Context, sku string, self uuid.UUID) error {
	existing, err := s.store.Products().FindBySKU(ctx, sku)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return apperr.Conflict("SKU '%s' already exists", sku)
	}
	return nil
}

func (s *inventoryService) CreateProduct(ctx context.Context, in *ProductInput, actor model.Actor) (*model.Product, error) {
	// 1. Validate request
	if err := validateProduct(in); err != nil {
		return nil, err
	}
	in.SKU = strings.TrimSpace(in.SKU)

	// 2. Business checks
	if err := s.checkSKU(ctx, in.SKU, uuid.Nil); err != nil {
		return nil, apperr.Wrap(err)
	}
	categoryName, err := s.resolveCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	product := &model.Product{
		SKU:               in.SKU,
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		CategoryName:      categoryName,
		Unit:              in.Unit,
		Price:             in.Price.Round(2),
		Cost:              in.Cost.Round(2),
		LowStockThreshold: 10,
	}
	if in.LowStockThreshold != nil {
		product.LowStockThreshold = *in.LowStockThreshold
	}
	product.ID = uuid.New()
	product.CreatedBy = actor.ID
	product.UpdatedBy = actor.ID

	// 3. Save, booking any opening stock as a stock-in
	var movements []*model.InventoryMovement
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Products().Create(ctx, product); err != nil {
			return err
		}
		if in.InitialStock == 0 {
			return nil
		}

		change := stockChange{Delta: in.InitialStock, Type: model.MovementStockIn, Note: "Opening stock"}
		if in.ExpiryDate != nil {
			batch, err := s.newBatch(ctx, tx, product, in.InitialStock, parseDate(*in.ExpiryDate), "", nil, actor)
			if err != nil {
				return err
			}
			change.BatchID = &batch.ID
		}
		m, err := applyStock(ctx, tx, product, change, actor)
		if err != nil {
			return err
		}
		movements = append(movements, m)
		return nil
	})
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	s.announce(ctx, "product_created", product, movements, actor,
		fmt.Sprintf("%s created product '%s'", actor.Name, product.Name))
	return product, nil
}

func (s *inventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, in *ProductInput, actor model.Actor) (*model.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}
	in.SKU = strings.TrimSpace(in.SKU)

	categoryName, err := s.resolveCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	// Stock is only changed through stock-in, adjustments and orders, so the
	// row is locked and Update leaves the stock column alone.
	var product *model.Product
	var oldName string
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		product, err = s.lockLive(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.SKU != product.SKU {
			if err := s.checkSKU(ctx, in.SKU, product.ID); err != nil {
				return err
			}
		}

		oldName = product.Name
		product.SKU = in.SKU
		product.Name = strings.TrimSpace(in.Name)
		product.Description = in.Description
		product.CategoryID = in.CategoryID
		product.CategoryName = categoryName
		product.Unit = in.Unit
		product.Price = in.Price.Round(2)
		product.Cost = in.Cost.Round(2)
		if in.LowStockThreshold != nil {
			product.LowStockThreshold = *in.LowStockThreshold
		}
		if in.ExpiryDate != nil && !product.BatchTracked() {
			expiry := parseDate(*in.ExpiryDate)
			product.ExpiryDate = &expiry
		}
		product.UpdatedBy = actor.ID
		return tx.Products().Update(ctx, product)
	})
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	if product.Name != oldName {
		if err := s.store.Orders().RenameProduct(ctx, product.ID, product.Name); err != nil {
			log.Printf("product %s: failed to cascade rename to order items: %v", product.ID, err)
		}
	}

	s.announce(ctx, "product_updated", product, nil, actor,
		fmt.Sprintf("%s updated product '%s'", actor.Name, product.Name))
	return product, nil
}

func (s *inventoryService) DeleteProduct(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Only an administrator can delete products")
	}
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return translate(err, "Product not found")
	}
	if err := s.store.Products().Delete(ctx, id, actor.ID); err != nil {
		return apperr.Wrap(err)
	}
	if product.ImageID != "" {
		if err := s.images.Delete(ctx, product.ImageID); err != nil {
			log.Printf("product %s: failed to delete image %s: %v", product.ID, product.ImageID, err)
		}
	}

	s.announce(ctx, "product_deleted", product, nil, actor,
		fmt.Sprintf("%s deleted product '%s'", actor.Name, product.Name))
	return nil
}

func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Product not found")
	}
	return product, nil
}

func (s *inventoryService) ListProducts(ctx context.Context, filter repository.ProductFilter, page repository.Pagination) (*repository.PageResult[model.Product], error) {
	result, err := s.store.Products().List(ctx, filter, page)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return result, nil
}

// newBatch creates a batch for a locked product. The first batch of a
// product that already holds untracked stock is preceded by an opening batch
// for that stock, so the aggregate keeps matching the batch total.
func (s *inventoryService) newBatch(ctx context.Context, tx repository.Store, p *model.Product, qty int, expiry time.Time, number string, unitCost *decimal.Decimal, actor model.Actor) (*model.Batch, error) {
	if !p.BatchTracked() && p.Stock > 0 {
		opening := &model.Batch{
			ProductID:         p.ID,
			BatchNumber:       "OPENING",
			ExpiryDate:        openingExpiry(p),
			InitialQuantity:   p.Stock,
			RemainingQuantity: p.Stock,
		}
		opening.CreatedBy = actor.ID
		opening.UpdatedBy = actor.ID
		if err := tx.Batches().Create(ctx, opening); err != nil {
			return nil, err
		}
		p.Batches = append(p.Batches, *opening)
	}

	if number == "" {
		number = fmt.Sprintf("B%s-%d", expiry.Format("20060102"), len(p.Batches)+1)
	}
	batch := &model.Batch{
		ProductID:         p.ID,
		BatchNumber:       number,
		ExpiryDate:        expiry,
		InitialQuantity:   qty,
		RemainingQuantity: qty,
		UnitCost:          unitCost,
	}
	batch.CreatedBy = actor.ID
	batch.UpdatedBy = actor.ID
	if err := tx.Batches().Create(ctx, batch); err != nil {
		return nil, err
	}
	p.Batches = append(p.Batches, *batch)
	return batch, nil
}

func (s *inventoryService) lockLive(ctx context.Context, tx repository.Store, id uuid.UUID) (*model.Product, error) {
	products, err := lockProducts(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	p := products[id]
	if p.DeletedAt.Valid {
		return nil, apperr.NotFound("Product %s not found", id)
	}
	return p, nil
}

func (s *inventoryService) StockIn(ctx context.Context, id uuid.UUID, in *StockInInput, actor model.Actor) (*model.Batch, error) {
	fields := validator.Fields(in)
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["unit_cost"] = "must be at least 0"
	}
	if fields != nil {
		return nil, apperr.Validation(fields)
	}

	var product *model.Product
	var batch *model.Batch
	var movement *model.InventoryMovement
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		product, err = s.lockLive(ctx, tx, id)
		if err != nil {
			return err
		}

		var unitCost *decimal.Decimal
		if in.UnitCost != nil {
			c := in.UnitCost.Round(2)
			unitCost = &c
		}
		batch, err = s.newBatch(ctx, tx, product, in.Quantity, parseDate(in.ExpiryDate), strings.TrimSpace(in.BatchNumber), unitCost, actor)
		if err != nil {
			return err
		}
		movement, err = applyStock(ctx, tx, product, stockChange{
			Delta:   in.Quantity,
			Type:    model.MovementStockIn,
			BatchID: &batch.ID,
			Note:    in.Note,
		}, actor)
		return err
	})
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	s.announce(ctx, "stock_in", product, []*model.InventoryMovement{movement}, actor,
		fmt.Sprintf("%s received %d %s of '%s'", actor.Name, in.Quantity, product.Unit, product.Name))
	return batch, nil
}

func (s *inventoryService) AdjustStock(ctx context.Context, id uuid.UUID, in *AdjustStockInput, actor model.Actor) (*model.InventoryMovement, error) {
	if fields := validator.Fields(in); fields != nil {
		return nil, apperr.Validation(fields)
	}

	var product *model.Product
	var movement *model.InventoryMovement
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		product, err = s.lockLive(ctx, tx, id)
		if err != nil {
			return err
		}

		change := stockChange{Delta: in.Delta, Type: model.MovementAdjustment, Note: in.Reason}
		switch {
		case in.Delta > 0 && product.BatchTracked():
			if in.ExpiryDate == nil {
				return apperr.Validation(map[string]string{"expiry_date": "is required for batch tracked products"})
			}
			batch, err := s.newBatch(ctx, tx, product, in.Delta, parseDate(*in.ExpiryDate), "ADJ-"+time.Now().Format("20060102"), nil, actor)
			if err != nil {
				return err
			}
			change.BatchID = &batch.ID
		case in.Delta < 0:
			allocs, err := planDraw(product, -in.Delta)
			if err != nil {
				return err
			}
			if err := drainBatches(ctx, tx, product, allocs); err != nil {
				return err
			}
		}

		movement, err = applyStock(ctx, tx, product, change, actor)
		return err
	})
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	s.announce(ctx, "adjustment", product, []*model.InventoryMovement{movement}, actor,
		fmt.Sprintf("%s adjusted '%s' by %+d", actor.Name, product.Name, in.Delta))
	return movement, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, productID uuid.UUID, page repository.Pagination) (*repository.PageResult[model.InventoryMovement], error) {
	result, err := s.store.Movements().List(ctx, repository.MovementFilter{ProductID: &productID}, page)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return result, nil
}

func (s *inventoryService) UploadImage(ctx context.Context, id uuid.UUID, data []byte, actor model.Actor) (*model.Product, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Product not found")
	}

	uploaded, err := s.images.Upload(ctx, data, "products")
	switch {
	case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrUnsupportedImage):
		return nil, apperr.Validation(map[string]string{"image": err.Error()})
	case errors.Is(err, storage.ErrNotConfigured):
		return nil, apperr.Conflict("Image uploads are not enabled on this server")
	case err != nil:
		return nil, apperr.Internal(err)
	}

	var oldImage string
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		product, err = s.lockLive(ctx, tx, id)
		if err != nil {
			return err
		}
		oldImage = product.ImageID
		product.ImageURL = uploaded.URL
		product.ImageID = uploaded.ID
		product.UpdatedBy = actor.ID
		return tx.Products().Update(ctx, product)
	})
	if err != nil {
		if delErr := s.images.Delete(ctx, uploaded.ID); delErr != nil {
			log.Printf("product %s: failed to remove orphaned image %s: %v", id, uploaded.ID, delErr)
		}
		return nil, translate(err, "Product not found")
	}
	if oldImage != "" {
		if err := s.images.Delete(ctx, oldImage); err != nil {
			log.Printf("product %s: failed to delete old image %s: %v", product.ID, oldImage, err)
		}
	}

	s.announce(ctx, "product_updated", product, nil, actor,
		fmt.Sprintf("%s changed the image of '%s'", actor.Name, product.Name))
	return product, nil
}

func (s *inventoryService) announce(ctx context.Context, action string, p *model.Product, movements []*model.InventoryMovement, actor model.Actor, message string) {
	observeMovements(movements)
	if err := invalidateReports(ctx, s.cache); err != nil {
		log.Printf("product %s: cache invalidation failed: %v", p.ID, err)
	}
	s.publisher.Publish(ws.Event{
		Type:   ws.EventStockUpdate,
		Action: action,
		Data: map[string]any{
			"product": map[string]any{
				"id":        p.ID,
				"sku":       p.SKU,
				"name":      p.Name,
				"stock":     p.Stock,
				"price":     p.Price,
				"low_stock": p.IsLowStock(),
			},
			"movements": stockEventData(movements),
		},
		User:    eventUser(actor),
		Message: message,
	})
}
