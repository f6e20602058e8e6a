package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_orders_total",
			Help: "Committed order operations",
		},
		[]string{"action"},
	)

	StockUnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_stock_units_total",
			Help: "Absolute units moved, by movement type",
		},
		[]string{"type"},
	)

	InsufficientStockTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockpilot_insufficient_stock_total",
			Help: "Order commits rejected for lack of stock",
		},
	)

	StockConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockpilot_stock_conflicts_total",
			Help: "Conditional batch updates that lost a race",
		},
	)
)

// Register adds every collector to reg. Call once at startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		OrdersTotal,
		StockUnitsTotal,
		InsufficientStockTotal,
		StockConflictsTotal,
	)
}

// ObserveMovement counts |qty| units under the movement type.
func ObserveMovement(movementType string, qty int) {
	if qty < 0 {
		qty = -qty
	}
	StockUnitsTotal.WithLabelValues(movementType).Add(float64(qty))
}
