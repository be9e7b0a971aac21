package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		pageSize int
		want     int
	}{
		{"empty", 0, 10, 1},
		{"exact fit", 20, 10, 2},
		{"partial last page", 21, 10, 3},
		{"smaller than a page", 3, 10, 1},
		{"invalid page size", 5, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalPages(tt.total, tt.pageSize))
		})
	}
}

func TestNewPaginated_NilItems(t *testing.T) {
	p := NewPaginated[int](nil, 0, 1, 10)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.Equal(t, 1, p.TotalPages)
}
