package repository

import (
	"testing"

	"stockpilot/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestFoldStockMovementNetsOrderEdits(t *testing.T) {
	rows := []movementTotals{
		{Date: "2026-03-01", Type: model.MovementStockIn, Inbound: 50},
		{Date: "2026-03-01", Type: model.MovementSale, Outbound: 8},
		// an edit from 5 to 7 units restores 5 and consumes 7
		{Date: "2026-03-01", Type: model.MovementOrderUpdate, Inbound: 5, Outbound: 7},
		{Date: "2026-03-02", Type: model.MovementOrderUpdate, Inbound: 6, Outbound: 2},
		{Date: "2026-03-02", Type: model.MovementOrderCancel, Inbound: 3},
		{Date: "2026-03-03", Type: model.MovementOrderUpdate, Inbound: 4, Outbound: 4},
	}

	assert.Equal(t, []StockMovementData{
		{Date: "2026-03-01", Inbound: 50, Outbound: 10},
		{Date: "2026-03-02", Inbound: 7, Outbound: 0},
		{Date: "2026-03-03", Inbound: 0, Outbound: 0},
	}, foldStockMovement(rows))
}

func TestFoldStockMovementEmpty(t *testing.T) {
	assert.Empty(t, foldStockMovement(nil))
	assert.NotNil(t, foldStockMovement(nil))
}
