package inventory_test

import (
	"sort"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/inventory"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
	"github.com/robertarktes/venue-seat-holds/internal/venue"
)

func newInventory(t *testing.T, rows, perRow int) (*inventory.Inventory, []domain.Seat) {
	t.Helper()
	seats := venue.Grid(rows, perRow)
	inv, err := inventory.New(seats)
	require.NoError(t, err)
	return inv, seats
}

func TestNew_RejectsDuplicates(t *testing.T) {
	s := domain.Seat{Row: 1, Number: 1, Quality: 1}
	_, err := inventory.New([]domain.Seat{s, s})
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestTakeBest_RankedOrder(t *testing.T) {
	inv, seats := newInventory(t, 10, 10)

	ranked := append([]domain.Seat(nil), seats...)
	sort.Slice(ranked, func(i, j int) bool { return domain.Less(ranked[i], ranked[j]) })

	var got []domain.Seat
	for i := 0; i < 5; i++ {
		s, err := inv.TakeBest(4)
		require.NoError(t, err)
		require.Len(t, s, 4)
		got = append(got, s...)
	}

	assert.Equal(t, ranked[:20], got)
	assert.Equal(t, 80, inv.AvailableCount())
}

func TestTakeBest_InvalidQuantity(t *testing.T) {
	inv, _ := newInventory(t, 2, 2)

	_, err := inv.TakeBest(0)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	_, err = inv.TakeBest(-3)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	assert.Equal(t, 4, inv.AvailableCount())
}

func TestTakeBest_Insufficient(t *testing.T) {
	inv, _ := newInventory(t, 1, 3)

	_, err := inv.TakeBest(5)
	assert.True(t, errors.Is(err, domain.ErrInsufficientInventory))
	assert.Equal(t, 3, inv.AvailableCount())

	_, err = inv.TakeBest(2)
	require.NoError(t, err)
	_, err = inv.TakeBest(2)
	assert.True(t, errors.Is(err, domain.ErrInsufficientInventory))
	assert.Equal(t, 1, inv.AvailableCount())
}

func TestTakeBest_Exhausted(t *testing.T) {
	inv, seats := newInventory(t, 3, 3)

	_, err := inv.TakeBest(len(seats))
	require.NoError(t, err)
	_, err = inv.TakeBest(1)
	assert.True(t, errors.Is(err, domain.ErrInsufficientInventory))
}

func TestRelease_RestoresRank(t *testing.T) {
	inv, _ := newInventory(t, 5, 5)

	first, err := inv.TakeBest(1)
	require.NoError(t, err)
	inv.Release(first)
	assert.Equal(t, 25, inv.AvailableCount())

	again, err := inv.TakeBest(1)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestRelease_TwicePanics(t *testing.T) {
	inv, _ := newInventory(t, 2, 2)

	s, err := inv.TakeBest(2)
	require.NoError(t, err)
	inv.Release(s)
	assert.Panics(t, func() { inv.Release(s) })
	assert.Equal(t, 4, inv.AvailableCount())
}

func TestConcurrentTakeAndRelease(t *testing.T) {
	inv, seats := newInventory(t, 20, 20)

	var (
		mu      sync.Mutex
		granted = make(map[domain.Seat]int)
		wg      sync.WaitGroup
	)
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				got, err := inv.TakeBest(1 + (w+i)%4)
				if err != nil {
					continue
				}
				if i%2 == 0 {
					inv.Release(got)
					continue
				}
				mu.Lock()
				for _, s := range got {
					granted[s]++
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	for s, n := range granted {
		assert.Equal(t, 1, n, "seat %s granted %d times", s, n)
	}
	assert.Equal(t, len(seats), inv.AvailableCount()+len(granted))
}

func TestAvailableGaugeTracksPool(t *testing.T) {
	inv, _ := newInventory(t, 4, 5)
	assert.Equal(t, float64(20), testutil.ToFloat64(observability.SeatsAvailable))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seats, err := inv.TakeBest(2)
			if err != nil {
				return
			}
			inv.Release(seats[:1])
		}()
	}
	wg.Wait()

	assert.Equal(t, 12, inv.AvailableCount())
	assert.Equal(t, float64(inv.AvailableCount()), testutil.ToFloat64(observability.SeatsAvailable))
}
