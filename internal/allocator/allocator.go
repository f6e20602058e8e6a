// Package allocator plans which batches a stock request is drawn from,
// earliest expiry first (FEFO). It only returns plans; callers apply them.
package allocator

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Batch is the allocator's view of a stock batch. Input order is taken as
// creation order and breaks ties between equal expiry dates.
type Batch struct {
	ID         uuid.UUID
	ExpiryDate time.Time
	Remaining  int
}

type Allocation struct {
	BatchID      uuid.UUID
	ExpiryDate   time.Time
	QuantityUsed int
}

type Plan struct {
	Allocations []Allocation
	Shortfall   int
}

// Allocated is the total quantity covered by the plan.
func (p Plan) Allocated() int {
	total := 0
	for _, a := range p.Allocations {
		total += a.QuantityUsed
	}
	return total
}

func (p Plan) Satisfied() bool {
	return p.Shortfall == 0
}

// Allocate draws requested units from batches in expiry order. Empty batches
// are skipped and no allocation is ever zero. A non-zero Shortfall means the
// batches could not cover the request.
func Allocate(batches []Batch, requested int) Plan {
	if requested <= 0 {
		return Plan{}
	}

	eligible := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.Remaining > 0 {
			eligible = append(eligible, b)
		}
	}
	slices.SortStableFunc(eligible, func(a, b Batch) int {
		return a.ExpiryDate.Compare(b.ExpiryDate)
	})

	plan := Plan{}
	need := requested
	for _, b := range eligible {
		if need == 0 {
			break
		}
		take := min(b.Remaining, need)
		plan.Allocations = append(plan.Allocations, Allocation{
			BatchID:      b.ID,
			ExpiryDate:   b.ExpiryDate,
			QuantityUsed: take,
		})
		need -= take
	}
	plan.Shortfall = need
	return plan
}

// Available sums the remaining quantity across batches.
func Available(batches []Batch) int {
	total := 0
	for _, b := range batches {
		if b.Remaining > 0 {
			total += b.Remaining
		}
	}
	return total
}

// Restore returns a copy of batches with previously consumed quantities
// credited back. Usages for unknown batches are ignored.
func Restore(batches []Batch, usages []Allocation) []Batch {
	out := slices.Clone(batches)
	index := make(map[uuid.UUID]int, len(out))
	for i, b := range out {
		index[b.ID] = i
	}
	for _, u := range usages {
		if i, ok := index[u.BatchID]; ok {
			out[i].Remaining += u.QuantityUsed
		}
	}
	return out
}

// Apply returns a copy of batches with the plan's allocations deducted.
func Apply(batches []Batch, plan Plan) []Batch {
	negated := make([]Allocation, len(plan.Allocations))
	for i, a := range plan.Allocations {
		negated[i] = a
		negated[i].QuantityUsed = -a.QuantityUsed
	}
	return Restore(batches, negated)
}
