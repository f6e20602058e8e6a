package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockpilot/internal/apperr"
	"stockpilot/pkg/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVelocitySuggester(t *testing.T) {
	expiry := day("2027-01-15")
	tests := []struct {
		name   string
		pc     ProductContext
		want   int
		reason string
	}{
		{
			name:   "covers lead time and review period",
			pc:     ProductContext{CurrentStock: 5, LowStockThreshold: 10, SoldLast30Days: 60},
			want:   33, // 2/day * 14 days + 10 - 5
			reason: "2.0/day",
		},
		{
			name:   "well stocked",
			pc:     ProductContext{CurrentStock: 200, LowStockThreshold: 10, SoldLast30Days: 60},
			want:   0,
			reason: "200 on hand",
		},
		{
			name:   "no sales tops up to threshold",
			pc:     ProductContext{CurrentStock: 3, LowStockThreshold: 10},
			want:   7,
			reason: "No sales",
		},
		{
			name:   "mentions oldest batch",
			pc:     ProductContext{CurrentStock: 0, LowStockThreshold: 0, SoldLast30Days: 30, NearestExpiry: &expiry},
			want:   14,
			reason: "expires 2027-01-15",
		},
	}
	suggester := VelocitySuggester{LeadTimeDays: 7, CoverDays: 7}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := suggester.SuggestReorderQuantity(context.Background(), tt.pc)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ReorderQuantity)
			assert.Contains(t, got.Reasoning, tt.reason)
		})
	}
}

type failingSuggester struct{}

func (failingSuggester) SuggestReorderQuantity(context.Context, ProductContext) (*Suggestion, error) {
	return nil, errors.New("model offline")
}

func TestReorderSuggestUsesRecentSales(t *testing.T) {
	f := newOrderFixture()
	p := f.store.addProduct("Saline", 10, 4, 0)
	f.store.addBatch(p.ID, day("2027-06-01"), 50)
	f.store.addBatch(p.ID, day("2027-02-01"), 10)
	ctx := context.Background()

	order, err := f.orders.CreateOrder(ctx, f.input(line(p.ID, 20)), employee)
	require.NoError(t, err)
	_, err = f.orders.UpdateOrder(ctx, order.ID, f.input(line(p.ID, 15)), employee)
	require.NoError(t, err)

	reorder := NewReorderService(f.store, VelocitySuggester{LeadTimeDays: 7, CoverDays: 23})
	got, err := reorder.Suggest(ctx, p.ID)

	require.NoError(t, err)
	assert.Equal(t, 15, got.Context.SoldLast30Days)
	assert.Equal(t, 45, got.Context.CurrentStock)
	require.NotNil(t, got.Context.NearestExpiry)
	assert.Equal(t, day("2027-06-01"), *got.Context.NearestExpiry)
	assert.Equal(t, 0, got.Suggestion.ReorderQuantity)
}

func TestReorderSuggestErrors(t *testing.T) {
	store := newMemStore()
	p := store.addProduct("Saline", 10, 4, 3)
	ctx := context.Background()

	_, err := NewReorderService(store, VelocitySuggester{}).Suggest(ctx, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = NewReorderService(store, failingSuggester{}).Suggest(ctx, p.ID)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

type capturedMail struct {
	subject string
	body    string
}

type mailbox struct {
	sent []capturedMail
	err  error
}

func (m *mailbox) Notify(subject, body string) error {
	m.sent = append(m.sent, capturedMail{subject, body})
	return m.err
}

func TestAlertScan(t *testing.T) {
	store := newMemStore()
	low := store.addProduct("Gauze", 10, 4, 1)
	fresh := store.addProduct("Tape", 10, 4, 0)
	store.addBatch(fresh.ID, time.Now().AddDate(0, 0, 5), 50)
	store.addBatch(fresh.ID, time.Now().AddDate(1, 0, 0), 50)
	mail := &mailbox{err: errors.New("smtp down")}
	events := &recorder{}

	digest, err := NewAlertService(store.Products(), store.Batches(), mail, events, 30).Scan(context.Background())

	require.NoError(t, err)
	require.Len(t, digest.LowStock, 1)
	assert.Equal(t, low.ID, digest.LowStock[0].ID)
	require.Len(t, digest.Expiring, 1)
	assert.Equal(t, fresh.ID, digest.Expiring[0].ProductID)
	assert.Equal(t, []string{"alert:daily_digest"}, events.types())
	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].subject, "1 low stock, 1 expiring")
	assert.Contains(t, mail.sent[0].body, "Gauze")
	assert.Contains(t, mail.sent[0].body, "Tape")
}

func TestAlertScanQuietWhenHealthy(t *testing.T) {
	store := newMemStore()
	store.addProduct("Tape", 10, 4, 100)
	mail := &mailbox{}
	events := &recorder{}

	digest, err := NewAlertService(store.Products(), store.Batches(), mail, events, 0).Scan(context.Background())

	require.NoError(t, err)
	assert.True(t, digest.Empty())
	assert.Empty(t, mail.sent)
	assert.Empty(t, events.types())
}

func TestDashboardStatsCacheInvalidatedByOrders(t *testing.T) {
	f := newOrderFixture()
	p := f.store.addProduct("Saline", 10, 4, 5)
	c := &memCache{values: map[string]bool{cacheKeyDashboardStats: true}}
	orders := NewOrderService(f.store, f.events, c)

	_, err := orders.CreateOrder(context.Background(), f.input(line(p.ID, 1)), employee)

	require.NoError(t, err)
	assert.NotContains(t, c.values, cacheKeyDashboardStats)
}

var _ cache.Cache = (*memCache)(nil)
