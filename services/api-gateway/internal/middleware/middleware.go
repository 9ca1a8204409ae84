// Package middleware holds the gateway's HTTP middleware chain: bearer
// authentication, rate limiting, panic recovery and request logging.
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	apperrors "github.com/taskhive/task-platform/shared/errors"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/metrics"
	"github.com/taskhive/task-platform/shared/monitoring"
)

// errorBody is the JSON shape of every gateway error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// WriteError maps an error onto its HTTP status and writes the JSON body.
// Untyped errors surface as a generic internal error.
func WriteError(w http.ResponseWriter, err error) {
	wire := apperrors.ToWire(err)

	var body errorBody
	body.Error.Code = wire.Code
	body.Error.Message = wire.Message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatus(err))
	json.NewEncoder(w).Encode(body)
}

// WriteJSON writes a success response.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// RateLimit applies a global token-bucket limit to the API surface.
func RateLimit(rps, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Recover turns handler panics into a generic 500 and reports them.
func Recover(logger *logging.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					m.PanicsRecovered.Inc()
					monitoring.CaptureRecovered(recovered)
					logger.WithFields(map[string]interface{}{
						"panic": recovered,
						"stack": string(debug.Stack()),
						"path":  r.URL.Path,
					}).Error("handler panic recovered")
					WriteError(w, apperrors.Internal("internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Instrument logs each request and records HTTP metrics. The endpoint
// label is the chi route pattern, not the raw path, so parameterized
// routes stay one metric series.
func Instrument(logger *logging.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// Resolved only after the handler ran.
			endpoint := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					endpoint = pattern
				}
			}

			elapsed := time.Since(start)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(ww.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, endpoint).Observe(elapsed.Seconds())

			logger.WithFields(map[string]interface{}{
				"method":   r.Method,
				"endpoint": endpoint,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": elapsed.String(),
			}).Info("request handled")
		})
	}
}
