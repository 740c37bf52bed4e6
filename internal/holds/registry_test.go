package holds_test

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/holds"
)

var seats = []domain.Seat{{Row: 1, Number: 1, Quality: 10}, {Row: 1, Number: 2, Quality: 9}}

func TestCreate_MonotonicIDs(t *testing.T) {
	r := holds.NewRegistry()

	a := r.Create("a@example.com", seats, time.Minute)
	b := r.Create("b@example.com", seats, time.Minute)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, domain.HoldStateHold, a.State)
	assert.NotEqual(t, a.ConfirmationCode, b.ConfirmationCode)
	assert.Equal(t, seats, a.Seats)
}

func TestCreate_ConcurrentUniqueIDs(t *testing.T) {
	r := holds.NewRegistry()

	var (
		mu  sync.Mutex
		ids = make(map[int64]bool)
		wg  sync.WaitGroup
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := r.Create("x", seats, time.Minute)
			mu.Lock()
			ids[h.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 64)
	assert.Equal(t, 64, r.Len())
}

func TestLookup(t *testing.T) {
	r := holds.NewRegistry()
	h := r.Create("a", seats, time.Minute)

	got, err := r.Lookup(h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.ConfirmationCode, got.ConfirmationCode)

	got, err = r.LookupByCode(h.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, h.ID, got.ID)

	_, err = r.Lookup(99)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = r.LookupByCode("nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLookup_ReturnsCopy(t *testing.T) {
	r := holds.NewRegistry()
	h := r.Create("a", seats, time.Minute)

	h.Seats[0].Quality = -1
	got, err := r.Lookup(h.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Seats[0].Quality)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name   string
		first  domain.HoldState
		second domain.HoldState
	}{
		{"reserve after cancel", domain.HoldStateCancelled, domain.HoldStateReserved},
		{"cancel after reserve", domain.HoldStateReserved, domain.HoldStateCancelled},
		{"cancel twice", domain.HoldStateCancelled, domain.HoldStateCancelled},
		{"reserve twice", domain.HoldStateReserved, domain.HoldStateReserved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := holds.NewRegistry()
			h := r.Create("a", seats, time.Minute)

			got, ok, err := r.Transition(h.ID, tt.first)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.first, got.State)

			got, ok, err = r.Transition(h.ID, tt.second)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, tt.first, got.State)
		})
	}
}

func TestTransition_Errors(t *testing.T) {
	r := holds.NewRegistry()
	h := r.Create("a", seats, time.Minute)

	_, _, err := r.Transition(42, domain.HoldStateReserved)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, _, err = r.Transition(h.ID, domain.HoldStateHold)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestTransition_RaceHasOneWinner(t *testing.T) {
	for round := 0; round < 200; round++ {
		r := holds.NewRegistry()
		h := r.Create("a", seats, time.Minute)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []domain.HoldState
		)
		for i := 0; i < 8; i++ {
			target := domain.HoldStateReserved
			if i%2 == 1 {
				target = domain.HoldStateCancelled
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, _ := r.Transition(h.ID, target); ok {
					mu.Lock()
					winners = append(winners, target)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Len(t, winners, 1)
		final, err := r.Lookup(h.ID)
		require.NoError(t, err)
		assert.Equal(t, winners[0], final.State)
	}
}
