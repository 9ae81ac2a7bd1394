package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page, size int
		wantFrom   int
		wantLimit  int
	}{
		{"defaults", 1, 10, 0, 10},
		{"second page", 2, 10, 10, 10},
		{"zero page clamps", 0, 10, 0, 10},
		{"negative page clamps", -3, 10, 0, 10},
		{"zero size falls back", 1, 0, 0, DefaultPageSize},
		{"oversized falls back", 1, 500, 0, DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			from, limit := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestPageMeta(t *testing.T) {
	t.Parallel()

	meta := PageMeta(2, 10, 25)
	assert.Equal(t, 2, meta["page"])
	assert.Equal(t, int64(3), meta["totalPages"])
	assert.Equal(t, true, meta["hasPrev"])
	assert.Equal(t, true, meta["hasNext"])

	last := PageMeta(3, 10, 25)
	assert.Equal(t, false, last["hasNext"])
}
