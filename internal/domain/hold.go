package domain

import (
	"strconv"
	"time"

	"github.com/lithammer/shortuuid/v3"
)

type HoldState string

const (
	HoldStateHold      HoldState = "HOLD"
	HoldStateReserved  HoldState = "RESERVED"
	HoldStateCancelled HoldState = "CANCELLED"
)

// Terminal reports whether no further transition may leave s.
func (s HoldState) Terminal() bool {
	return s == HoldStateReserved || s == HoldStateCancelled
}

// Hold is a snapshot of a group of seats bound to a requester. The registry
// owns the live value; callers only ever see copies.
type Hold struct {
	ID               int64
	ConfirmationCode string
	Requester        string
	Seats            []Seat
	State            HoldState
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

func NewHold(id int64, requester string, seats []Seat, ttl time.Duration) Hold {
	now := time.Now()
	return Hold{
		ID:               id,
		ConfirmationCode: ConfirmationCode(requester, id),
		Requester:        requester,
		Seats:            seats,
		State:            HoldStateHold,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}
}

// ConfirmationCode derives a stable code from the requester and hold id. The
// id prefix keeps codes unique even if two requesters hash alike.
func ConfirmationCode(requester string, id int64) string {
	idStr := strconv.FormatInt(id, 10)
	return idStr + "-" + shortuuid.NewWithNamespace(requester+"#"+idStr)
}
