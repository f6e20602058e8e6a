package service

import (
	"context"
	"log"
	"time"

	"stockpilot/internal/apperr"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/pkg/cache"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const cacheKeyDashboardStats = "dashboard:stats"

// invalidateReports drops cached aggregates after stock or order changes.
func invalidateReports(ctx context.Context, c cache.Cache) error {
	return c.Delete(ctx, cacheKeyDashboardStats)
}

type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]repository.TopProduct, error)
	ExpiringBatches(ctx context.Context, days int) ([]repository.ExpiringBatch, error)
	LowStock(ctx context.Context, limit int) ([]model.Product, error)
}

type DashboardStats struct {
	TotalProducts  int64                   `json:"total_products"`
	LowStockCount  int64                   `json:"low_stock_count"`
	TotalValuation decimal.Decimal         `json:"total_valuation"`
	TotalCustomers int64                   `json:"total_customers"`
	PendingOrders  int64                   `json:"pending_orders"`
	Today          repository.OrderSummary `json:"today"`
	ThisMonth      repository.OrderSummary `json:"this_month"`
}

type SalesReport struct {
	From    time.Time               `json:"from"`
	To      time.Time               `json:"to"`
	Summary repository.OrderSummary `json:"summary"`
	Days    []repository.SalesDay   `json:"days"`
}

type dashboardService struct {
	reports    repository.ReportRepository
	batches    repository.BatchRepository
	products   repository.ProductRepository
	cache      cache.Cache
	ttl        time.Duration
	loc        *time.Location
	expiryDays int
}

func NewDashboardService(reports repository.ReportRepository, batches repository.BatchRepository, products repository.ProductRepository, c cache.Cache, ttl time.Duration, loc *time.Location, expiryDays int) DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	if expiryDays <= 0 {
		expiryDays = 30
	}
	return &dashboardService{
		reports:    reports,
		batches:    batches,
		products:   products,
		cache:      c,
		ttl:        ttl,
		loc:        loc,
		expiryDays: expiryDays,
	}
}

func clampDays(days, fallback int) int {
	if days <= 0 {
		return fallback
	}
	if days > 365 {
		return 365
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if hit, err := s.cache.Get(ctx, cacheKeyDashboardStats, &stats); err != nil {
		log.Printf("dashboard: cache read failed: %v", err)
	} else if hit {
		return &stats, nil
	}

	now := time.Now().In(s.loc)
	today := startOfDay(now)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	tomorrow := today.AddDate(0, 0, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalProducts, err = s.reports.CountProducts(gctx)
		return
	})
	g.Go(func() (err error) {
		stats.LowStockCount, err = s.reports.CountLowStock(gctx)
		return
	})
	g.Go(func() (err error) {
		stats.TotalValuation, err = s.reports.StockValuation(gctx)
		return
	})
	g.Go(func() (err error) {
		stats.TotalCustomers, err = s.reports.CountCustomers(gctx)
		return
	})
	g.Go(func() (err error) {
		stats.PendingOrders, err = s.reports.CountOrdersByStatus(gctx, model.OrderPending)
		return
	})
	g.Go(func() error {
		summary, err := s.reports.OrderSummary(gctx, today, tomorrow)
		if err == nil {
			stats.Today = *summary
		}
		return err
	})
	g.Go(func() error {
		summary, err := s.reports.OrderSummary(gctx, month, tomorrow)
		if err == nil {
			stats.ThisMonth = *summary
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(err)
	}

	if err := s.cache.Set(ctx, cacheKeyDashboardStats, &stats, s.ttl); err != nil {
		log.Printf("dashboard: cache write failed: %v", err)
	}
	return &stats, nil
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	days = clampDays(days, 7)
	endDate := startOfDay(time.Now().In(s.loc)).AddDate(0, 0, 1)
	startDate := endDate.AddDate(0, 0, -days)

	data, err := s.reports.StockMovement(ctx, startDate, endDate)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return data, nil
}

func (s *dashboardService) SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	if !from.Before(to) {
		return nil, apperr.Validation(map[string]string{"to": "must be after from"})
	}

	report := &SalesReport{From: from, To: to}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.reports.OrderSummary(gctx, from, to)
		if err == nil {
			report.Summary = *summary
		}
		return err
	})
	g.Go(func() (err error) {
		report.Days, err = s.reports.SalesByDay(gctx, from, to)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(err)
	}
	return report, nil
}

func (s *dashboardService) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]repository.TopProduct, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	top, err := s.reports.TopProducts(ctx, from, to, limit)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return top, nil
}

func (s *dashboardService) ExpiringBatches(ctx context.Context, days int) ([]repository.ExpiringBatch, error) {
	days = clampDays(days, s.expiryDays)
	before := startOfDay(time.Now().In(s.loc)).AddDate(0, 0, days)
	batches, err := s.batches.ListExpiring(ctx, before, 200)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return batches, nil
}

func (s *dashboardService) LowStock(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	products, err := s.products.ListLowStock(ctx, limit)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return products, nil
}
