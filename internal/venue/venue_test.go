package venue_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/venue"
)

func TestGrid_DistinctQualities(t *testing.T) {
	seats := venue.Grid(10, 10)
	require.Len(t, seats, 100)

	seen := make(map[int]bool)
	for _, s := range seats {
		assert.False(t, seen[s.Quality], "duplicate quality %d", s.Quality)
		seen[s.Quality] = true
	}
}

func TestGrid_FrontRowIsBest(t *testing.T) {
	seats := venue.Grid(3, 4)
	best := seats[0]
	for _, s := range seats[1:] {
		assert.True(t, domain.Less(best, s))
	}
	assert.Equal(t, domain.Seat{Row: 1, Number: 1, Quality: best.Quality}, best)
}

type stubSource struct {
	seats []domain.Seat
	err   error
}

func (s stubSource) GetLayout(context.Context, string) ([]domain.Seat, error) {
	return s.seats, s.err
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	seats, err := venue.Load(ctx, nil, "", 2, 3)
	require.NoError(t, err)
	assert.Len(t, seats, 6)

	_, err = venue.Load(ctx, nil, "", 0, 3)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	stored := []domain.Seat{{Row: 1, Number: 1, Quality: 9}}
	seats, err = venue.Load(ctx, stubSource{seats: stored}, "hall-a", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, stored, seats)

	_, err = venue.Load(ctx, stubSource{}, "hall-b", 0, 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	boom := errors.New("boom")
	_, err = venue.Load(ctx, stubSource{err: boom}, "hall-c", 0, 0)
	assert.True(t, errors.Is(err, boom))
}
