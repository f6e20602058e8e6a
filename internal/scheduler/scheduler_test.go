package scheduler

import (
	"context"
	"testing"
	"time"

	"stockpilot/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAlerts struct {
	calls chan struct{}
}

func (c *countingAlerts) Scan(context.Context) (*service.AlertDigest, error) {
	c.calls <- struct{}{}
	return &service.AlertDigest{}, nil
}

func TestStartRejectsBadTime(t *testing.T) {
	_, err := Start(&countingAlerts{calls: make(chan struct{}, 1)}, "25:99", time.UTC)
	assert.Error(t, err)
}

func TestStartSchedulesDailyJob(t *testing.T) {
	s, err := Start(&countingAlerts{calls: make(chan struct{}, 1)}, "07:30", time.UTC)
	require.NoError(t, err)
	defer s.Stop()

	assert.True(t, s.IsRunning())
	assert.Len(t, s.Jobs(), 1)
}
