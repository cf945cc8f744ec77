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
	"travi_content/internal/adapters/uploads"
	"travi_content/internal/app"
	"travi_content/internal/domain"
	"travi_content/internal/ratelimit"
	"travi_content/internal/shared"
	"travi_content/internal/storage/flatfile"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// flat-file store
	store, err := flatfile.New(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("data dir")
	}
	if cfg.InitData {
		if err := store.EnsureDefaults(ctx, domain.Resources); err != nil {
			log.Fatal().Err(err).Msg("create default resource files")
		}
	}
	up, err := uploads.New(cfg.UploadDir, cfg.UploadURLPrefix, cfg.UploadMaxBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("upload dir")
	}

	content := app.NewContentService(store, app.NewIDGenerator(cfg.IDStrategy), cfg.SerializeWrites)

	opts := server.Options{CORSOrigins: cfg.CORSOrigins}
	if cfg.RateLimitRPS > 0 {
		opts.Limiter = ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
		defer opts.Limiter.Stop()
	}

	// http
	srv := server.New(opts)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountAdmin(&server.AdminHandlers{Content: content, Uploads: up})

	log.Info().
		Str("addr", cfg.APIAddr).
		Str("data_dir", cfg.DataDir).
		Str("ids", cfg.IDStrategy).
		Bool("serialize_writes", cfg.SerializeWrites).
		Msg("CMS API listening")
	httpSrv := &http.Server{Addr: cfg.APIAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("CMS API stopped")
}
