package sliceutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	ID   int64
	Name string
}

func byID(i item) (int64, bool) { return i.ID, i.ID != 0 }

func TestDeduplicate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		items []item
		want  []item
	}{
		{
			name:  "no duplicates",
			items: []item{{1, "A"}, {2, "B"}, {3, "C"}},
			want:  []item{{1, "A"}, {2, "B"}, {3, "C"}},
		},
		{
			name:  "first occurrence wins",
			items: []item{{1, "A"}, {2, "B"}, {1, "C"}, {3, "D"}},
			want:  []item{{1, "A"}, {2, "B"}, {3, "D"}},
		},
		{
			name:  "all duplicates",
			items: []item{{1, "A"}, {1, "B"}, {1, "C"}},
			want:  []item{{1, "A"}},
		},
		{
			name:  "keyless items are kept",
			items: []item{{0, "A"}, {1, "B"}, {0, "C"}, {1, "D"}},
			want:  []item{{0, "A"}, {1, "B"}, {0, "C"}},
		},
		{
			name:  "empty",
			items: []item{},
			want:  []item{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Deduplicate(tt.items, byID))
		})
	}
}

func TestDeduplicateNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Deduplicate[item](nil, byID))
}
