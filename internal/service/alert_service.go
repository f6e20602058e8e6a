package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/internal/ws"
	"stockpilot/pkg/notify"
)

// AlertDigest is the result of one stock health scan.
type AlertDigest struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	LowStock    []model.Product            `json:"low_stock"`
	Expiring    []repository.ExpiringBatch `json:"expiring"`
}

func (d *AlertDigest) Empty() bool {
	return len(d.LowStock) == 0 && len(d.Expiring) == 0
}

// Text renders the digest as a plain text e-mail body.
func (d *AlertDigest) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock report for %s\n\n", d.GeneratedAt.Format(dateLayout))

	if len(d.LowStock) > 0 {
		b.WriteString("Low stock:\n")
		for _, p := range d.LowStock {
			fmt.Fprintf(&b, "  - %s (%s): %d left, threshold %d\n", p.Name, p.SKU, p.Stock, p.LowStockThreshold)
		}
		b.WriteString("\n")
	}
	if len(d.Expiring) > 0 {
		b.WriteString("Expiring batches:\n")
		for _, e := range d.Expiring {
			fmt.Fprintf(&b, "  - %s (%s) batch %s: %d units expire %s\n",
				e.ProductName, e.SKU, e.BatchNumber, e.RemainingQuantity, e.ExpiryDate.Format(dateLayout))
		}
	}
	return b.String()
}

type AlertService interface {
	Scan(ctx context.Context) (*AlertDigest, error)
}

type alertService struct {
	products   repository.ProductRepository
	batches    repository.BatchRepository
	notifier   notify.Notifier
	publisher  ws.Publisher
	expiryDays int
	now        func() time.Time
}

func NewAlertService(products repository.ProductRepository, batches repository.BatchRepository, notifier notify.Notifier, publisher ws.Publisher, expiryDays int) AlertService {
	if expiryDays <= 0 {
		expiryDays = 30
	}
	return &alertService{
		products:   products,
		batches:    batches,
		notifier:   notifier,
		publisher:  publisher,
		expiryDays: expiryDays,
		now:        time.Now,
	}
}

// Scan collects low stock products and soon to expire batches, then pushes
// the digest to dashboards and mails it to staff.
func (s *alertService) Scan(ctx context.Context) (*AlertDigest, error) {
	now := s.now()
	lowStock, err := s.products.ListLowStock(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	expiring, err := s.batches.ListExpiring(ctx, now.AddDate(0, 0, s.expiryDays), 100)
	if err != nil {
		return nil, fmt.Errorf("list expiring batches: %w", err)
	}

	digest := &AlertDigest{GeneratedAt: now, LowStock: lowStock, Expiring: expiring}
	if digest.Empty() {
		return digest, nil
	}

	s.publisher.Publish(ws.Event{
		Type:    ws.EventAlert,
		Action:  "daily_digest",
		Data:    digest,
		Message: fmt.Sprintf("%d product(s) low on stock, %d batch(es) expiring soon", len(lowStock), len(expiring)),
	})

	subject := fmt.Sprintf("[StockPilot] %d low stock, %d expiring", len(lowStock), len(expiring))
	if err := s.notifier.Notify(subject, digest.Text()); err != nil {
		// Dashboards already have the digest; mail is best effort.
		log.Printf("alerts: failed to send digest mail: %v", err)
	}
	return digest, nil
}
