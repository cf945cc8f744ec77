package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"travi_content/internal/i18n"
	"travi_content/internal/ratelimit"
)

// Options switch on the optional middlewares. The zero value gives the base chain only.
type Options struct {
	Timeout     time.Duration
	CORSOrigins []string
	Limiter     *ratelimit.KeyedRateLimiter
	Locale      *i18n.Resolver // locale-prefix routing for the public site
}

type Server struct{ mux *chi.Mux }

func New(opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	m := chi.NewRouter()

	// All middlewares go here, before any routes are added.
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(opts.Timeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))
	if len(opts.CORSOrigins) > 0 {
		m.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "X-Request-ID", "If-None-Match"},
			ExposedHeaders: []string{"ETag", "Retry-After"},
			MaxAge:         300,
		}))
	}
	if opts.Limiter != nil {
		m.Use(RateLimit(opts.Limiter))
	}
	if opts.Locale != nil {
		m.Use(i18n.Middleware(opts.Locale))
	}

	m.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
