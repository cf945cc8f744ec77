package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"travi_content/internal/adapters/observability"
	"travi_content/internal/ratelimit"
)

// Timeout cuts a request off after d with a 503 and a JSON error body.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"Request timed out"}`)
	}
}

// srw remembers the status code written through it.
type srw struct {
	http.ResponseWriter
	status int
}

func (w *srw) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *srw) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *srw) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// routeOf labels a request by its chi route pattern.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &srw{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		observability.ObserveHTTP(routeOf(r), r.Method, sw.Status(), time.Since(start))
	})
}

// Logger writes one line per request: 5xx at error level, 4xx at warn, the rest at info.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &srw{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			ev := l.Info()
			switch status := sw.Status(); {
			case status >= 500:
				ev = l.Error()
			case status >= 400:
				ev = l.Warn()
			}
			ev.Str("route", routeOf(r)).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Int("status", sw.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", clientIP(r)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http_request")
		})
	}
}

// RateLimit rejects a client with 429 once its token bucket is empty.
func RateLimit(l *ratelimit.KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if !l.Allow(key) {
				log.Warn().Str("ip", key).Str("path", r.URL.Path).Msg("rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. chimw.RealIP has already applied
// X-Forwarded-For and X-Real-IP by the time this runs.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
