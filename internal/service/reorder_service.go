package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"stockpilot/internal/apperr"
	"stockpilot/internal/repository"

	"github.com/google/uuid"
)

const salesWindowDays = 30

// ProductContext is what a suggester sees about one product.
type ProductContext struct {
	ProductID         uuid.UUID  `json:"product_id"`
	Name              string     `json:"name"`
	SKU               string     `json:"sku"`
	CurrentStock      int        `json:"current_stock"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	SoldLast30Days    int        `json:"sold_last_30_days"`
	NearestExpiry     *time.Time `json:"nearest_expiry,omitempty"`
}

type Suggestion struct {
	ReorderQuantity int    `json:"reorder_quantity"`
	Reasoning       string `json:"reasoning"`
}

// ReorderSuggester proposes how many units to order next.
type ReorderSuggester interface {
	SuggestReorderQuantity(ctx context.Context, pc ProductContext) (*Suggestion, error)
}

// VelocitySuggester orders enough to cover lead time plus a review period
// at the recent sales rate, on top of the low stock threshold.
type VelocitySuggester struct {
	LeadTimeDays int
	CoverDays    int
}

func (v VelocitySuggester) SuggestReorderQuantity(_ context.Context, pc ProductContext) (*Suggestion, error) {
	horizon := v.LeadTimeDays + v.CoverDays
	if horizon <= 0 {
		horizon = 14
	}

	daily := float64(pc.SoldLast30Days) / salesWindowDays
	demand := int(math.Ceil(daily * float64(horizon)))
	target := demand + pc.LowStockThreshold
	qty := max(target-pc.CurrentStock, 0)

	var reasoning string
	if pc.SoldLast30Days == 0 {
		reasoning = fmt.Sprintf("No sales in the last %d days. Keeping stock at the low stock level of %d; %d on hand.",
			salesWindowDays, pc.LowStockThreshold, pc.CurrentStock)
	} else {
		reasoning = fmt.Sprintf("Sold %d in the last %d days (%.1f/day). %d days of demand is %d, plus a safety level of %d; %d on hand.",
			pc.SoldLast30Days, salesWindowDays, daily, horizon, demand, pc.LowStockThreshold, pc.CurrentStock)
	}
	if pc.NearestExpiry != nil && qty > 0 {
		reasoning += fmt.Sprintf(" Oldest batch expires %s, sell it first.", pc.NearestExpiry.Format(dateLayout))
	}

	return &Suggestion{ReorderQuantity: qty, Reasoning: reasoning}, nil
}

type ReorderSuggestion struct {
	Context    ProductContext `json:"context"`
	Suggestion Suggestion     `json:"suggestion"`
}

type ReorderService interface {
	Suggest(ctx context.Context, productID uuid.UUID) (*ReorderSuggestion, error)
}

type reorderService struct {
	store     repository.Store
	suggester ReorderSuggester
	now       func() time.Time
}

func NewReorderService(store repository.Store, suggester ReorderSuggester) ReorderService {
	return &reorderService{store: store, suggester: suggester, now: time.Now}
}

func (s *reorderService) Suggest(ctx context.Context, productID uuid.UUID) (*ReorderSuggestion, error) {
	product, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, translate(err, "Product not found")
	}
	sold, err := s.store.Movements().SoldSince(ctx, s.now().AddDate(0, 0, -salesWindowDays))
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	pc := ProductContext{
		ProductID:         product.ID,
		Name:              product.Name,
		SKU:               product.SKU,
		CurrentStock:      product.Stock,
		LowStockThreshold: product.LowStockThreshold,
		SoldLast30Days:    sold[product.ID],
	}
	for _, b := range product.Batches {
		if b.RemainingQuantity > 0 && (pc.NearestExpiry == nil || b.ExpiryDate.Before(*pc.NearestExpiry)) {
			expiry := b.ExpiryDate
			pc.NearestExpiry = &expiry
		}
	}

	suggestion, err := s.suggester.SuggestReorderQuantity(ctx, pc)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &ReorderSuggestion{Context: pc, Suggestion: *suggestion}, nil
}
