package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"stockpilot/internal/service"

	"github.com/go-co-op/gocron"
)

// Start schedules the daily stock alert scan at "HH:MM" in loc and starts
// the scheduler in the background. Stop the returned scheduler on shutdown.
func Start(alerts service.AlertService, at string, loc *time.Location) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(loc)
	_, err := s.Every(1).Day().At(at).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		digest, err := alerts.Scan(ctx)
		if err != nil {
			log.Printf("scheduler: alert scan failed: %v", err)
			return
		}
		log.Printf("scheduler: alert scan done (%d low stock, %d expiring)", len(digest.LowStock), len(digest.Expiring))
	})
	if err != nil {
		return nil, fmt.Errorf("schedule alert scan at %q: %w", at, err)
	}
	s.StartAsync()
	return s, nil
}
