package allocator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func batch(days, remaining int) Batch {
	return Batch{ID: uuid.New(), ExpiryDate: day0.AddDate(0, 0, days), Remaining: remaining}
}

func TestAllocateScenarioB(t *testing.T) {
	only := batch(10, 5)

	plan := Allocate([]Batch{only}, 10)

	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, only.ID, plan.Allocations[0].BatchID)
	assert.Equal(t, 5, plan.Allocations[0].QuantityUsed)
	assert.Equal(t, 5, plan.Shortfall)
	assert.False(t, plan.Satisfied())
}

func TestAllocateScenarioC(t *testing.T) {
	later := batch(30, 10)
	earlier := batch(5, 3)

	plan := Allocate([]Batch{later, earlier}, 5)

	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, earlier.ID, plan.Allocations[0].BatchID)
	assert.Equal(t, 3, plan.Allocations[0].QuantityUsed)
	assert.Equal(t, later.ID, plan.Allocations[1].BatchID)
	assert.Equal(t, 2, plan.Allocations[1].QuantityUsed)
	assert.True(t, plan.Satisfied())
}

func TestAllocateSkipsEmptyBatches(t *testing.T) {
	empty := batch(1, 0)
	full := batch(2, 4)

	plan := Allocate([]Batch{empty, full}, 3)

	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, full.ID, plan.Allocations[0].BatchID)
}

func TestAllocateTieBreaksOnInputOrder(t *testing.T) {
	first := batch(7, 2)
	second := batch(7, 2)

	plan := Allocate([]Batch{first, second}, 3)

	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, first.ID, plan.Allocations[0].BatchID)
	assert.Equal(t, 2, plan.Allocations[0].QuantityUsed)
	assert.Equal(t, second.ID, plan.Allocations[1].BatchID)
	assert.Equal(t, 1, plan.Allocations[1].QuantityUsed)
}

func TestAllocateNonPositiveRequest(t *testing.T) {
	batches := []Batch{batch(1, 5)}

	assert.Empty(t, Allocate(batches, 0).Allocations)
	assert.Equal(t, 0, Allocate(batches, -2).Shortfall)
}

func TestAllocateDoesNotMutateInput(t *testing.T) {
	batches := []Batch{batch(9, 4), batch(1, 4)}
	before := append([]Batch(nil), batches...)

	Allocate(batches, 6)

	assert.Equal(t, before, batches)
}

func TestAllocateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := rng.Intn(6)
		batches := make([]Batch, n)
		for j := range batches {
			batches[j] = batch(rng.Intn(20), rng.Intn(8))
		}
		available := Available(batches)
		requested := rng.Intn(available + 6)

		plan := Allocate(batches, requested)

		remaining := make(map[uuid.UUID]int, n)
		for _, b := range batches {
			remaining[b.ID] = b.Remaining
		}
		for k, a := range plan.Allocations {
			assert.Positive(t, a.QuantityUsed)
			assert.LessOrEqual(t, a.QuantityUsed, remaining[a.BatchID])
			if k > 0 {
				assert.False(t, a.ExpiryDate.Before(plan.Allocations[k-1].ExpiryDate), "allocations must follow expiry order")
			}
		}

		if requested <= available {
			assert.Equal(t, requested, plan.Allocated())
			assert.Zero(t, plan.Shortfall)
		} else {
			assert.Equal(t, requested-available, plan.Shortfall)
			assert.Equal(t, available, plan.Allocated())
		}
	}
}

// Restoring an order's usage and allocating the new quantity must leave the
// batches exactly as a fresh allocation of the new quantity would.
func TestRestoreThenReallocateMatchesFreshAllocation(t *testing.T) {
	original := []Batch{batch(3, 4), batch(8, 6), batch(15, 10)}

	first := Allocate(original, 9)
	afterOrder := Apply(original, first)

	restored := Restore(afterOrder, first.Allocations)
	assert.Equal(t, original, restored)

	edited := Allocate(restored, 5)
	fresh := Allocate(original, 5)

	assert.Equal(t, Apply(original, fresh), Apply(restored, edited))
	assert.Equal(t, fresh, edited)
}
