package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "travi_content/internal/adapters/http_server"
	"travi_content/internal/adapters/observability"
	redisad "travi_content/internal/adapters/redis"
	"travi_content/internal/app"
	"travi_content/internal/domain"
	"travi_content/internal/i18n"
	"travi_content/internal/ratelimit"
	"travi_content/internal/shared"
	"travi_content/internal/storage/postgres"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, postgres.PoolConfig{
		DSN:            cfg.DatabaseURL,
		ConnectTimeout: cfg.PGConnectTimeout,
		IdleTimeout:    cfg.PGIdleTimeout,
		MaxConns:       cfg.PGMaxConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	log.Info().Msg("database connection ok")

	// cache is optional
	var cache domain.Cache = app.NopCache{}
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; serving without cache")
		} else {
			cache = rc
			defer rc.Close()
		}
	}

	resolver, err := i18n.NewResolver(cfg.DefaultLocale)
	if err != nil {
		log.Fatal().Err(err).Msg("locale")
	}
	q := app.NewSiteQueryService(postgres.New(db), cache, cfg.CacheTTL())

	opts := server.Options{Locale: resolver}
	if cfg.RateLimitRPS > 0 {
		opts.Limiter = ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
		defer opts.Limiter.Stop()
	}

	srv := server.New(opts)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountSite(&server.SiteHandlers{Q: q})

	log.Info().Str("addr", cfg.SiteAddr).Str("default_locale", resolver.Default()).Msg("site API listening")
	httpSrv := &http.Server{Addr: cfg.SiteAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("site API stopped")
}
