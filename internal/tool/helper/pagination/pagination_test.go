package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}
	tests := []struct {
		name          string
		offset, limit int
		want          []int
		truncated     bool
	}{
		{"first page", 0, 2, []int{0, 1}, true},
		{"middle", 2, 2, []int{2, 3}, true},
		{"last page exact", 3, 2, []int{3, 4}, false},
		{"limit beyond end", 1, 10, []int{1, 2, 3, 4}, false},
		{"offset beyond end", 9, 2, []int{}, false},
		{"no limit", 0, 0, []int{0, 1, 2, 3, 4}, false},
		{"negative offset", -1, 1, []int{0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := Apply(items, tt.offset, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 5, res.Total)
			assert.Equal(t, tt.truncated, res.Truncated)
		})
	}
}
