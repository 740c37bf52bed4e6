package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventHoldCreated   EventType = "hold.created"
	EventHoldReserved  EventType = "hold.reserved"
	EventHoldCancelled EventType = "hold.cancelled"
	EventHoldExpired   EventType = "hold.expired"
)

// HoldEvent records a committed hold transition.
type HoldEvent struct {
	ID               uuid.UUID `json:"id"`
	Type             EventType `json:"type"`
	HoldID           int64     `json:"hold_id"`
	Requester        string    `json:"requester"`
	ConfirmationCode string    `json:"confirmation_code,omitempty"`
	Seats            []Seat    `json:"seats"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func NewHoldEvent(t EventType, h Hold) HoldEvent {
	ev := HoldEvent{
		ID:         uuid.New(),
		Type:       t,
		HoldID:     h.ID,
		Requester:  h.Requester,
		Seats:      h.Seats,
		OccurredAt: time.Now().UTC(),
	}
	if t == EventHoldReserved {
		ev.ConfirmationCode = h.ConfirmationCode
	}
	return ev
}
