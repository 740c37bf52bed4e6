package inventory

import (
	"container/heap"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
)

// Inventory is the pool of seats not bound to any live hold. Taking and
// releasing seats are serialized by a single mutex; the heap keeps the best
// seat at the root so TakeBest runs in O(n log total).
type Inventory struct {
	mu        sync.Mutex
	available seatHeap
	taken     map[domain.Seat]struct{}
	total     int
}

// New builds an inventory holding every seat as available. Duplicate seats
// are rejected because they would break conservation.
func New(seats []domain.Seat) (*Inventory, error) {
	seen := make(map[domain.Seat]struct{}, len(seats))
	h := make(seatHeap, 0, len(seats))
	for _, s := range seats {
		if _, dup := seen[s]; dup {
			return nil, errors.Wrapf(domain.ErrInvalidRequest, "duplicate seat %s", s)
		}
		seen[s] = struct{}{}
		h = append(h, s)
	}
	heap.Init(&h)
	inv := &Inventory{
		available: h,
		taken:     make(map[domain.Seat]struct{}),
		total:     len(seats),
	}
	inv.publish()
	return inv, nil
}

// publish updates the available-seats gauge; callers hold inv.mu.
func (inv *Inventory) publish() {
	observability.SeatsAvailable.Set(float64(inv.available.Len()))
}

// TakeBest removes and returns the n best available seats in ranked order.
// Either all n seats are granted or none are.
func (inv *Inventory) TakeBest(n int) ([]domain.Seat, error) {
	if n < 1 {
		return nil, errors.Wrapf(domain.ErrInvalidRequest, "must request at least 1 seat, got %d", n)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if n > inv.available.Len() {
		return nil, errors.Wrapf(domain.ErrInsufficientInventory,
			"requested %d seats, %d available", n, inv.available.Len())
	}

	seats := make([]domain.Seat, n)
	for i := range seats {
		s := heap.Pop(&inv.available).(domain.Seat)
		inv.taken[s] = struct{}{}
		seats[i] = s
	}
	inv.publish()
	return seats, nil
}

// Release returns seats to the pool. Releasing a seat that is not currently
// taken is a programming error and panics.
func (inv *Inventory) Release(seats []domain.Seat) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, s := range seats {
		if _, ok := inv.taken[s]; !ok {
			panic(errors.AssertionFailedf("seat %s released while not taken", s))
		}
	}
	for _, s := range seats {
		delete(inv.taken, s)
		heap.Push(&inv.available, s)
	}
	inv.publish()
}

// AvailableCount is a snapshot; it may be stale as soon as it returns.
func (inv *Inventory) AvailableCount() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.available.Len()
}

// Total is the number of seats the inventory was built with.
func (inv *Inventory) Total() int {
	return inv.total
}

type seatHeap []domain.Seat

func (h seatHeap) Len() int           { return len(h) }
func (h seatHeap) Less(i, j int) bool { return domain.Less(h[i], h[j]) }
func (h seatHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *seatHeap) Push(x any) {
	*h = append(*h, x.(domain.Seat))
}

func (h *seatHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	*h = old[:n-1]
	return s
}
