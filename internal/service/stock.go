package service

import (
	"context"
	"errors"
	"slices"

	"stockpilot/internal/allocator"
	"stockpilot/internal/apperr"
	"stockpilot/internal/metrics"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/internal/ws"

	"github.com/google/uuid"
)

// lockProducts loads and row-locks products in ascending id order, so two
// transactions touching the same products cannot deadlock.
func lockProducts(ctx context.Context, tx repository.Store, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	sorted = slices.Compact(sorted)

	products := make(map[uuid.UUID]*model.Product, len(sorted))
	for _, id := range sorted {
		p, err := tx.Products().FindByIDForUpdate(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperr.NotFound("Product %s not found", id)
			}
			return nil, err
		}
		products[id] = p
	}
	return products, nil
}

func batchView(p *model.Product) []allocator.Batch {
	out := make([]allocator.Batch, len(p.Batches))
	for i, b := range p.Batches {
		out[i] = allocator.Batch{ID: b.ID, ExpiryDate: b.ExpiryDate, Remaining: b.RemainingQuantity}
	}
	return out
}

// shortfallFor builds the InsufficientStock error for a product.
func shortfallFor(p *model.Product, requested, available int) error {
	metrics.InsufficientStockTotal.Inc()
	return apperr.InsufficientStock(apperr.Shortfall{
		ProductID:   p.ID.String(),
		ProductName: p.Name,
		Requested:   requested,
		Available:   available,
		Shortfall:   requested - available,
	})
}

// planDraw decides which batches qty units come from. Legacy products only
// check the aggregate count and return no allocations.
func planDraw(p *model.Product, qty int) ([]allocator.Allocation, error) {
	if p.Stock < qty {
		return nil, shortfallFor(p, qty, p.Stock)
	}
	if !p.BatchTracked() {
		return nil, nil
	}
	plan := allocator.Allocate(batchView(p), qty)
	if !plan.Satisfied() {
		return nil, shortfallFor(p, qty, plan.Allocated())
	}
	return plan.Allocations, nil
}

// drainBatches decrements each allocated batch, mirroring the change on p.
func drainBatches(ctx context.Context, tx repository.Store, p *model.Product, allocs []allocator.Allocation) error {
	for _, a := range allocs {
		if err := tx.Batches().Decrement(ctx, a.BatchID, a.QuantityUsed); err != nil {
			return err
		}
		adjustCachedBatch(p, a.BatchID, -a.QuantityUsed)
	}
	return nil
}

// refillBatches credits recorded usages back to their batches.
func refillBatches(ctx context.Context, tx repository.Store, p *model.Product, usages []model.OrderBatchUsage) error {
	for _, u := range usages {
		if err := tx.Batches().Increment(ctx, u.BatchID, u.QuantityUsed); err != nil {
			return err
		}
		adjustCachedBatch(p, u.BatchID, u.QuantityUsed)
	}
	return nil
}

func adjustCachedBatch(p *model.Product, batchID uuid.UUID, delta int) {
	for i := range p.Batches {
		if p.Batches[i].ID == batchID {
			p.Batches[i].RemainingQuantity += delta
			return
		}
	}
}

type stockChange struct {
	Delta   int
	Type    model.MovementType
	OrderID *uuid.UUID
	BatchID *uuid.UUID
	Note    string
}

// applyStock writes the new aggregate stock of a locked product and appends
// the matching movement.
func applyStock(ctx context.Context, tx repository.Store, p *model.Product, change stockChange, actor model.Actor) (*model.InventoryMovement, error) {
	before := p.Stock
	after := before + change.Delta
	if after < 0 {
		return nil, shortfallFor(p, -change.Delta, before)
	}

	if err := tx.Products().UpdateStock(ctx, p.ID, after, actor.ID); err != nil {
		return nil, err
	}
	p.Stock = after

	movement := &model.InventoryMovement{
		ProductID:   p.ID,
		ProductName: p.Name,
		Type:        change.Type,
		Quantity:    change.Delta,
		StockBefore: before,
		StockAfter:  after,
		BatchID:     change.BatchID,
		OrderID:     change.OrderID,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		Note:        change.Note,
	}
	if err := tx.Movements().Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// translate turns repository failures into typed errors for the caller.
func translate(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStockConflict):
		metrics.StockConflictsTotal.Inc()
		return apperr.Conflict("Stock changed while saving, please try again")
	case repository.IsNotFound(err):
		return apperr.NotFound("%s", notFound)
	case repository.IsDuplicate(err):
		return apperr.Conflict("A record with the same unique value already exists")
	}
	return apperr.Wrap(err)
}

func observeMovements(movements []*model.InventoryMovement) {
	for _, m := range movements {
		metrics.ObserveMovement(string(m.Type), m.Quantity)
	}
}

func eventUser(actor model.Actor) *ws.EventUser {
	return &ws.EventUser{ID: actor.ID, Name: actor.Name, Email: actor.Email}
}

func stockEventData(movements []*model.InventoryMovement) []map[string]any {
	data := make([]map[string]any, 0, len(movements))
	for _, m := range movements {
		data = append(data, map[string]any{
			"product_id":   m.ProductID,
			"product_name": m.ProductName,
			"type":         m.Type,
			"quantity":     m.Quantity,
			"old_stock":    m.StockBefore,
			"new_stock":    m.StockAfter,
		})
	}
	return data
}
