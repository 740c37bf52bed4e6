package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
)

func TestCompare(t *testing.T) {
	ref := domain.Seat{Row: 10, Number: 10, Quality: 10}

	tests := []struct {
		name  string
		other domain.Seat
		want  int
	}{
		{"equal", ref, 0},
		{"lower quality", domain.Seat{Row: 10, Number: 10, Quality: 9}, -1},
		{"higher quality", domain.Seat{Row: 10, Number: 10, Quality: 11}, 1},
		{"same quality higher row", domain.Seat{Row: 11, Number: 10, Quality: 10}, -1},
		{"same quality lower row", domain.Seat{Row: 9, Number: 10, Quality: 10}, 1},
		{"same row higher number", domain.Seat{Row: 10, Number: 11, Quality: 10}, -1},
		{"same row lower number", domain.Seat{Row: 10, Number: 9, Quality: 10}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Compare(ref, tt.other))
			assert.Equal(t, -tt.want, domain.Compare(tt.other, ref))
		})
	}
}

func TestLess_StrictTotalOrder(t *testing.T) {
	seats := []domain.Seat{
		{Row: 1, Number: 1, Quality: 5},
		{Row: 1, Number: 2, Quality: 5},
		{Row: 2, Number: 1, Quality: 5},
		{Row: 3, Number: 3, Quality: 7},
	}
	for i, a := range seats {
		for j, b := range seats {
			if i == j {
				assert.False(t, domain.Less(a, b))
				continue
			}
			assert.NotEqual(t, domain.Less(a, b), domain.Less(b, a), "%v vs %v", a, b)
		}
	}
}
