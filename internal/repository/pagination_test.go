package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationNormalize(t *testing.T) {
	tests := []struct {
		in     Pagination
		want   Pagination
		offset int
	}{
		{Pagination{}, Pagination{Page: 1, Limit: DefaultPageSize}, 0},
		{Pagination{Page: 3, Limit: 10}, Pagination{Page: 3, Limit: 10}, 20},
		{Pagination{Page: -1, Limit: 1000}, Pagination{Page: 1, Limit: MaxPageSize}, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize())
		assert.Equal(t, tt.offset, tt.in.Offset())
	}
}

func TestNewPageResult(t *testing.T) {
	res := NewPageResult[int](nil, 41, Pagination{Page: 2, Limit: 20})

	assert.Equal(t, 3, res.TotalPages)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)

	empty := NewPageResult([]string{}, 0, Pagination{})
	assert.Equal(t, 0, empty.TotalPages)
}
