package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robertarktes/venue-seat-holds/internal/idempotency"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
	"github.com/robertarktes/venue-seat-holds/internal/rateLimit"
)

const (
	requestsPerMinute = 120
)

// SetupRouter wires the API. idemp may be nil when no store is configured.
func SetupRouter(h *Handlers, logger observability.Logger, rl rateLimit.Limiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(TracingMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(rl, requestsPerMinute, time.Minute))
		r.Use(IdempotencyMiddleware(idemp))

		r.Get("/v1/seats/available", h.SeatsAvailable)
		r.Post("/v1/holds", h.CreateHold)
		r.Get("/v1/holds/{id}", h.GetHold)
		r.Post("/v1/holds/{id}/reserve", h.ReserveHold)
		r.Delete("/v1/holds/{id}", h.CancelHold)
		r.Get("/v1/reservations/{code}/qr", h.ReservationQR)
	})

	return r
}
