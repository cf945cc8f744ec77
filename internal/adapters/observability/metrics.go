package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "travi", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "travi", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "travi", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "travi", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "travi", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	StoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "travi", Name: "store_operations_total", Help: "Flat-file store reads/writes."},
		[]string{"resource", "op", "result"},
	)
	StoreLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "travi", Name: "store_operation_duration_seconds",
			Help:    "Flat-file store operation duration seconds.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"op"},
	)
)

// Serve starts a standalone metrics listener on addr exposing reg. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents, StoreOps, StoreLatency)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveStore(resource, op string, err error, dur time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOps.WithLabelValues(resource, op, result).Inc()
	StoreLatency.WithLabelValues(op).Observe(dur.Seconds())
}
