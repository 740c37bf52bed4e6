package expiry

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
)

// ExpireFunc attempts to expire a hold. It owns the outcome: the scheduler
// neither retries nor inspects the result.
type ExpireFunc func(holdID int64)

// Scheduler fires ExpireFunc once per scheduled hold, no earlier than the
// requested delay. Timers are independent; a slow callback does not delay
// others.
type Scheduler struct {
	expire ExpireFunc
	logger observability.Logger

	mu      sync.Mutex
	timers  map[int64]*time.Timer
	stopped bool
	running sync.WaitGroup
}

func NewScheduler(expire ExpireFunc, logger observability.Logger) *Scheduler {
	return &Scheduler{
		expire: expire,
		logger: logger,
		timers: make(map[int64]*time.Timer),
	}
}

// Schedule arranges a single expiration attempt for holdID after the given
// delay. Scheduling an id that already has a pending timer is a no-op.
func (s *Scheduler) Schedule(holdID int64, after time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.Wrapf(domain.ErrShutdown, "schedule expiration for hold %d", holdID)
	}
	if _, ok := s.timers[holdID]; ok {
		return nil
	}

	s.running.Add(1)
	s.timers[holdID] = time.AfterFunc(after, func() { s.fire(holdID) })
	return nil
}

// Cancel drops the pending timer for holdID, if any. The expiration CAS stays
// authoritative, so cancelling is only an optimization for settled holds.
func (s *Scheduler) Cancel(holdID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[holdID]
	if !ok {
		return
	}
	delete(s.timers, holdID)
	if t.Stop() {
		s.running.Done()
	}
}

// Pending is the number of timers that have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Shutdown stops all pending timers and waits for callbacks already running.
// Holds whose timers were stopped stay in HOLD.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		for id, t := range s.timers {
			if t.Stop() {
				s.running.Done()
			}
			delete(s.timers, id)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for running expirations")
	}
}

func (s *Scheduler) fire(holdID int64) {
	defer s.running.Done()

	s.mu.Lock()
	delete(s.timers, holdID)
	stopped := s.stopped
	s.mu.Unlock()

	if stopped {
		s.logger.WithField("hold_id", holdID).Debug("scheduler stopped, skipping expiration")
		return
	}
	s.expire(holdID)
}
