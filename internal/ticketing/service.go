package ticketing

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
	"github.com/robertarktes/venue-seat-holds/internal/expiry"
	"github.com/robertarktes/venue-seat-holds/internal/holds"
	"github.com/robertarktes/venue-seat-holds/internal/inventory"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
)

// EventEmitter receives hold events after the transition that produced them
// has committed. Emit must not block.
type EventEmitter interface {
	Emit(ev domain.HoldEvent) bool
}

type nopEmitter struct{}

func (nopEmitter) Emit(domain.HoldEvent) bool { return true }

type Option func(*Service)

func WithLogger(logger observability.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(events EventEmitter) Option {
	return func(s *Service) { s.events = events }
}

// Service finds, holds, reserves and cancels seats. It owns its hold
// registry and expiration scheduler; call Shutdown to stop the scheduler.
type Service struct {
	inventory *inventory.Inventory
	holds     *holds.Registry
	scheduler *expiry.Scheduler
	events    EventEmitter
	logger    observability.Logger
	tracer    trace.Tracer
	holdTTL   time.Duration
	stopped   atomic.Bool
}

func NewService(inv *inventory.Inventory, holdTTL time.Duration, opts ...Option) (*Service, error) {
	if inv == nil {
		return nil, errors.Wrap(domain.ErrInvalidRequest, "inventory is required")
	}
	if holdTTL <= 0 {
		return nil, errors.Wrapf(domain.ErrInvalidRequest, "hold duration must be positive, got %s", holdTTL)
	}

	s := &Service{
		inventory: inv,
		holds:     holds.NewRegistry(),
		events:    nopEmitter{},
		logger:    observability.NewNopLogger(),
		tracer:    otel.Tracer("ticketing"),
		holdTTL:   holdTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scheduler = expiry.NewScheduler(s.expire, s.logger)
	return s, nil
}

func (s *Service) NumberOfSeatsAvailable(ctx context.Context) int {
	_, span := s.tracer.Start(ctx, "TicketService.NumberOfSeatsAvailable")
	defer span.End()

	n := s.inventory.AvailableCount()
	span.SetAttributes(attribute.Int("seats.available", n))
	return n
}

// FindAndHoldSeats holds the quantity best available seats for requester.
// Nothing is held when it fails.
func (s *Service) FindAndHoldSeats(ctx context.Context, quantity int, requester string) (domain.Hold, error) {
	_, span := s.tracer.Start(ctx, "TicketService.FindAndHoldSeats",
		trace.WithAttributes(attribute.Int("seats.requested", quantity)))
	defer span.End()

	hold, err := s.findAndHold(quantity, requester)
	if err != nil {
		fail(span, err)
		return domain.Hold{}, err
	}
	span.SetAttributes(attribute.Int64("hold.id", hold.ID))
	return hold, nil
}

func (s *Service) findAndHold(quantity int, requester string) (domain.Hold, error) {
	if s.stopped.Load() {
		return domain.Hold{}, errors.WithStack(domain.ErrShutdown)
	}
	if requester == "" {
		return domain.Hold{}, errors.Wrap(domain.ErrInvalidRequest, "requester is required")
	}

	seats, err := s.inventory.TakeBest(quantity)
	if err != nil {
		return domain.Hold{}, err
	}

	hold := s.holds.Create(requester, seats, s.holdTTL)
	log := s.logger.WithFields(map[string]interface{}{"hold_id": hold.ID, "requester": requester})
	s.afterTransition(domain.EventHoldCreated, observability.OutcomeCreated, hold)

	if err := s.scheduler.Schedule(hold.ID, s.holdTTL); err != nil {
		// Shutdown raced with this request; undo so the seats are not stranded.
		if cancelled, ok, _ := s.holds.Transition(hold.ID, domain.HoldStateCancelled); ok {
			s.inventory.Release(cancelled.Seats)
			s.afterTransition(domain.EventHoldCancelled, observability.OutcomeCancelled, cancelled)
		}
		log.WithError(err).Warn("hold abandoned, expiration could not be scheduled")
		return domain.Hold{}, err
	}

	log.WithField("seats", len(seats)).Info("seats held")
	return hold, nil
}

// ReserveSeats converts a live hold into a reservation and returns its
// confirmation code. ErrHoldExpired means the hold was cancelled or expired
// first.
func (s *Service) ReserveSeats(ctx context.Context, holdID int64, requester string) (string, error) {
	_, span := s.tracer.Start(ctx, "TicketService.ReserveSeats",
		trace.WithAttributes(attribute.Int64("hold.id", holdID)))
	defer span.End()

	code, err := s.reserve(holdID, requester)
	if err != nil {
		fail(span, err)
		return "", err
	}
	return code, nil
}

func (s *Service) reserve(holdID int64, requester string) (string, error) {
	log := s.logger.WithFields(map[string]interface{}{"hold_id": holdID, "requester": requester})

	current, err := s.holds.Lookup(holdID)
	if err != nil {
		return "", err
	}
	if current.Requester != requester {
		return "", errors.Wrapf(domain.ErrInvalidRequest, "hold %d belongs to another requester", holdID)
	}

	hold, ok, err := s.holds.Transition(holdID, domain.HoldStateReserved)
	if err != nil {
		return "", err
	}
	if !ok {
		observability.TransitionConflicts.WithLabelValues(string(domain.HoldStateReserved)).Inc()
		log.WithField("state", hold.State).Info("reserve rejected")
		return "", errors.Wrapf(domain.ErrHoldExpired, "hold %d is %s", holdID, hold.State)
	}

	s.scheduler.Cancel(holdID)
	s.afterTransition(domain.EventHoldReserved, observability.OutcomeReserved, hold)
	log.Info("seats reserved")
	return hold.ConfirmationCode, nil
}

// CancelHold releases a live hold's seats. Cancelling a hold that is already
// reserved or cancelled fails with ErrInvalidState and releases nothing.
func (s *Service) CancelHold(ctx context.Context, holdID int64) error {
	_, span := s.tracer.Start(ctx, "TicketService.CancelHold",
		trace.WithAttributes(attribute.Int64("hold.id", holdID)))
	defer span.End()

	hold, ok, err := s.holds.Transition(holdID, domain.HoldStateCancelled)
	if err != nil {
		fail(span, err)
		return err
	}
	if !ok {
		observability.TransitionConflicts.WithLabelValues(string(domain.HoldStateCancelled)).Inc()
		err := errors.Wrapf(domain.ErrInvalidState, "hold %d is %s", holdID, hold.State)
		fail(span, err)
		return err
	}

	s.inventory.Release(hold.Seats)
	s.scheduler.Cancel(holdID)
	s.afterTransition(domain.EventHoldCancelled, observability.OutcomeCancelled, hold)
	s.logger.WithField("hold_id", holdID).Info("hold cancelled")
	return nil
}

func (s *Service) Lookup(ctx context.Context, holdID int64) (domain.Hold, error) {
	_, span := s.tracer.Start(ctx, "TicketService.Lookup")
	defer span.End()
	return s.holds.Lookup(holdID)
}

// LookupReservation resolves a confirmation code to its reserved hold.
func (s *Service) LookupReservation(ctx context.Context, code string) (domain.Hold, error) {
	_, span := s.tracer.Start(ctx, "TicketService.LookupReservation")
	defer span.End()

	hold, err := s.holds.LookupByCode(code)
	if err != nil {
		return domain.Hold{}, err
	}
	if hold.State != domain.HoldStateReserved {
		return domain.Hold{}, errors.Wrapf(domain.ErrNotFound, "no reservation for code %q", code)
	}
	return hold, nil
}

// Shutdown stops the expiration scheduler. Holds still pending stay in HOLD
// and no new holds are accepted.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stopped.Store(true)
	return s.scheduler.Shutdown(ctx)
}

// expire runs on the scheduler's timer. Losing the CAS means the hold was
// settled some other way, which is expected and only logged.
func (s *Service) expire(holdID int64) {
	log := s.logger.WithField("hold_id", holdID)

	hold, ok, err := s.holds.Transition(holdID, domain.HoldStateCancelled)
	if err != nil {
		log.WithError(err).Error("expiration failed")
		return
	}
	if !ok {
		log.WithField("state", hold.State).Debug("hold already settled, expiration dropped")
		return
	}

	s.inventory.Release(hold.Seats)
	s.afterTransition(domain.EventHoldExpired, observability.OutcomeExpired, hold)
	log.Info("hold expired")
}

func (s *Service) afterTransition(t domain.EventType, outcome string, hold domain.Hold) {
	observability.HoldsTotal.WithLabelValues(outcome).Inc()
	s.events.Emit(domain.NewHoldEvent(t, hold))
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
