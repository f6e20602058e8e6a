package middleware

import (
	"strconv"
	"time"

	"stockpilot/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Prometheus records request counts and latency per route pattern.
func Prometheus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		path := c.Route().Path
		if path == "" {
			path = "undefined"
		}

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
		return err
	}
}
