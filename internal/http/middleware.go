package http

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/robertarktes/venue-seat-holds/internal/idempotency"
	"github.com/robertarktes/venue-seat-holds/internal/observability"
	"github.com/robertarktes/venue-seat-holds/internal/rateLimit"
)

type ctxKey int

const loggerKey ctxKey = iota

// LoggerFrom returns the request-scoped logger, or fallback outside a request.
func LoggerFrom(ctx context.Context, fallback observability.Logger) observability.Logger {
	if l, ok := ctx.Value(loggerKey).(observability.Logger); ok {
		return l
	}
	return fallback
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := logger.WithField("request_id", middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), loggerKey, entry)))

			entry.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start).String(),
			}).Debug("request served")
		})
	}
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status()), r.Method).Inc()
	})
}

// IdempotencyMiddleware replays the recorded response for a repeated
// Idempotency-Key on POST requests. Records are scoped to the method and
// request path, so one key reused on another endpoint or hold runs fresh.
// Requests without the header run normally; server errors are not recorded
// so the client may retry.
func IdempotencyMiddleware(idemp *idempotency.Idempotency) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if idemp == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) < 16 {
				writeError(w, http.StatusBadRequest, "invalid Idempotency-Key")
				return
			}
			key = idempotencyScope(r, key)

			existing, err := idemp.Begin(r.Context(), key)
			if errors.Is(err, idempotency.ErrInFlight) {
				writeError(w, http.StatusConflict, "request already in progress")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "idempotency store unavailable")
				return
			}
			if existing != nil {
				w.Header().Set("Content-Type", existing.ContentType)
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(existing.Status)
				w.Write(existing.Result)
				return
			}

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			log := LoggerFrom(r.Context(), observability.NewNopLogger())
			if ww.Status() >= http.StatusInternalServerError {
				if err := idemp.Abort(r.Context(), key); err != nil {
					log.WithError(err).Warn("failed to release idempotency key")
				}
				return
			}
			resp := idempotency.Response{
				Status:      ww.Status(),
				ContentType: ww.Header().Get("Content-Type"),
				Result:      body.Bytes(),
			}
			if err := idemp.Finish(r.Context(), key, resp); err != nil {
				log.WithError(err).Warn("failed to record idempotent response")
			}
		})
	}
}

func idempotencyScope(r *http.Request, key string) string {
	return r.Method + " " + r.URL.Path + " " + key
}

func RateLimitMiddleware(rl rateLimit.Limiter, limit int, period time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}
			if !rl.Allow(r.Context(), "ip:"+ip, limit, period) {
				observability.RateLimitExceeded.Inc()
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
