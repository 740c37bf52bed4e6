package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
)

type TicketService interface {
	NumberOfSeatsAvailable(ctx context.Context) int
	FindAndHoldSeats(ctx context.Context, quantity int, requester string) (domain.Hold, error)
	ReserveSeats(ctx context.Context, holdID int64, requester string) (string, error)
	CancelHold(ctx context.Context, holdID int64) error
	Lookup(ctx context.Context, holdID int64) (domain.Hold, error)
	LookupReservation(ctx context.Context, code string) (domain.Hold, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

type Handlers struct {
	svc     TicketService
	readyFn []Pinger
}

func NewHandlers(svc TicketService, ready ...Pinger) *Handlers {
	return &Handlers{svc: svc, readyFn: ready}
}

type holdView struct {
	HoldID           int64         `json:"hold_id"`
	State            string        `json:"state"`
	Requester        string        `json:"requester"`
	Seats            []domain.Seat `json:"seats"`
	ExpiresAt        string        `json:"expires_at"`
	ConfirmationCode string        `json:"confirmation_code,omitempty"`
}

func newHoldView(h domain.Hold) holdView {
	v := holdView{
		HoldID:    h.ID,
		State:     string(h.State),
		Requester: h.Requester,
		Seats:     h.Seats,
		ExpiresAt: h.ExpiresAt.Format(time.RFC3339),
	}
	if h.State == domain.HoldStateReserved {
		v.ConfirmationCode = h.ConfirmationCode
	}
	return v
}

func (h *Handlers) SeatsAvailable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"available": h.svc.NumberOfSeatsAvailable(r.Context())})
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity  int    `json:"quantity"`
		Requester string `json:"requester"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	hold, err := h.svc.FindAndHoldSeats(r.Context(), req.Quantity, req.Requester)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newHoldView(hold))
}

func (h *Handlers) GetHold(w http.ResponseWriter, r *http.Request) {
	id, ok := holdID(w, r)
	if !ok {
		return
	}
	hold, err := h.svc.Lookup(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newHoldView(hold))
}

func (h *Handlers) ReserveHold(w http.ResponseWriter, r *http.Request) {
	id, ok := holdID(w, r)
	if !ok {
		return
	}
	var req struct {
		Requester string `json:"requester"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	code, err := h.svc.ReserveSeats(r.Context(), id, req.Requester)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hold_id": id, "confirmation_code": code})
}

func (h *Handlers) CancelHold(w http.ResponseWriter, r *http.Request) {
	id, ok := holdID(w, r)
	if !ok {
		return
	}
	if err := h.svc.CancelHold(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ReservationQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := h.svc.LookupReservation(r.Context(), code); err != nil {
		writeDomainError(w, err)
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "qr encoding failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	for _, ping := range h.readyFn {
		if err := ping(r.Context()); err != nil {
			http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func holdID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid hold id")
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientInventory), errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrHoldExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrShutdown):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
