package holds

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
)

type entry struct {
	hold    domain.Hold
	version uint64
}

// Registry maps hold ids to holds. Ids are never reused and entries are
// never removed; only the state of an entry changes, and only through
// Transition.
type Registry struct {
	nextID atomic.Int64

	mu     sync.RWMutex
	holds  map[int64]*entry
	byCode map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		holds:  make(map[int64]*entry),
		byCode: make(map[string]int64),
	}
}

// Create registers a new hold in state HOLD under the next id.
func (r *Registry) Create(requester string, seats []domain.Seat, ttl time.Duration) domain.Hold {
	id := r.nextID.Add(1)
	h := domain.NewHold(id, requester, slices.Clone(seats), ttl)

	r.mu.Lock()
	r.holds[id] = &entry{hold: h}
	r.byCode[h.ConfirmationCode] = id
	r.mu.Unlock()

	return snapshot(h)
}

func (r *Registry) Lookup(id int64) (domain.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.holds[id]
	if !ok {
		return domain.Hold{}, errors.Wrapf(domain.ErrNotFound, "hold %d", id)
	}
	return snapshot(e.hold), nil
}

func (r *Registry) LookupByCode(code string) (domain.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return domain.Hold{}, errors.Wrapf(domain.ErrNotFound, "confirmation code %q", code)
	}
	return snapshot(r.holds[id].hold), nil
}

// Transition attempts a single compare-and-swap from the observed state to
// target. It commits only if the entry is unchanged since it was observed and
// the observed state is HOLD, so exactly one of any racing transitions wins
// and a terminal state is never left. It never retries.
//
// The returned hold is the committed snapshot when ok is true, and the
// observed snapshot otherwise. An error is returned only for unknown ids or
// a target that is not terminal.
func (r *Registry) Transition(id int64, target domain.HoldState) (domain.Hold, bool, error) {
	if !target.Terminal() {
		return domain.Hold{}, false, errors.Wrapf(domain.ErrInvalidState, "cannot transition hold %d to %s", id, target)
	}

	r.mu.RLock()
	e, found := r.holds[id]
	var observed domain.Hold
	var version uint64
	if found {
		observed, version = e.hold, e.version
	}
	r.mu.RUnlock()

	if !found {
		return domain.Hold{}, false, errors.Wrapf(domain.ErrNotFound, "hold %d", id)
	}
	if !legal(observed.State, target) {
		return snapshot(observed), false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.version != version || e.hold.State != observed.State {
		return snapshot(e.hold), false, nil
	}
	e.hold.State = target
	e.version++
	return snapshot(e.hold), true, nil
}

// Len is the number of holds ever created.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.holds)
}

// legal only lets a hold leave HOLD. This covers RESERVED over CANCELLED as
// well as cancelling a reservation or cancelling twice.
func legal(from, _ domain.HoldState) bool {
	return from == domain.HoldStateHold
}

func snapshot(h domain.Hold) domain.Hold {
	h.Seats = slices.Clone(h.Seats)
	return h
}
