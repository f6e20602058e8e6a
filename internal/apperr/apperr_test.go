package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation(map[string]string{"name": "required"}), KindValidation},
		{"conflict", Conflict("duplicate %s", "sku"), KindConflict},
		{"not found", NotFound("order not found"), KindNotFound},
		{"forbidden", Forbidden("admins only"), KindForbidden},
		{"unauthorized", Unauthorized("session expired"), KindUnauthorized},
		{"stock", InsufficientStock(Shortfall{Requested: 3, Available: 1, Shortfall: 2}), KindInsufficientStock},
		{"wrapped typed", fmt.Errorf("create order: %w", NotFound("customer not found")), KindNotFound},
		{"foreign", errors.New("connection refused"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:5432: i/o timeout")
	err := Internal(cause)

	assert.NotContains(t, err.Message, "10.0.0.5")
	assert.ErrorIs(t, err, cause)
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil))

	typed := Conflict("taken")
	assert.Same(t, typed, Wrap(typed))

	wrapped, ok := As(Wrap(errors.New("boom")))
	require.True(t, ok)
	assert.Equal(t, KindInternal, wrapped.Kind)
}

func TestInsufficientStockMessage(t *testing.T) {
	err := InsufficientStock(Shortfall{ProductName: "Milk", Requested: 10, Available: 5, Shortfall: 5})

	assert.Contains(t, err.Error(), "short by 5")
	require.NotNil(t, err.Shortfall)
	assert.Equal(t, 5, err.Shortfall.Shortfall)
}
