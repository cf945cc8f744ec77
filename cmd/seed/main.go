package main

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"travi_content/internal/adapters/observability"
	redisad "travi_content/internal/adapters/redis"
	"travi_content/internal/app"
	"travi_content/internal/domain"
	"travi_content/internal/shared"
	"travi_content/internal/storage/postgres"
)

func main() {
	ctx := context.Background()
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("file", cfg.SeedFile).
		Int("workers", cfg.SeedWorkers).
		Msg("seeder starting")

	f, err := os.Open(cfg.SeedFile)
	if err != nil {
		log.Fatal().Err(err).Msg("open seed file")
	}
	fx, err := app.LoadFixtures(f)
	_ = f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("load fixtures")
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
	log.Info().Msg("db ping ok")

	if cfg.MigrationsDir != "" {
		if err := postgres.Migrate(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}
	seeder := app.NewSeedService(postgres.New(db), cache)

	// Destinations first so attraction writes can evict the right destination pages.
	var failed atomic.Int64
	run(ctx, cfg.SeedWorkers, len(fx.Destinations), func(i int) {
		d := fx.Destinations[i]
		if err := seeder.SeedDestination(ctx, d); err != nil {
			failed.Add(1)
			log.Warn().Str("id", d.ID).Err(err).Msg("seed destination failed")
			return
		}
		log.Info().Str("id", d.ID).Msg("seed destination ok")
	})
	run(ctx, cfg.SeedWorkers, len(fx.Attractions), func(i int) {
		a := fx.Attractions[i]
		if err := seeder.SeedAttraction(ctx, a); err != nil {
			failed.Add(1)
			log.Warn().Str("slug", a.Slug).Err(err).Msg("seed attraction failed")
			return
		}
		log.Info().Str("slug", a.Slug).Msg("seed attraction ok")
	})

	log.Info().
		Int("destinations", len(fx.Destinations)).
		Int("attractions", len(fx.Attractions)).
		Int64("failed", failed.Load()).
		Msg("seeding completed")
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

// run calls fn for 0..n-1 with at most workers calls in flight.
func run(ctx context.Context, workers, n int, fn func(i int)) {
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			fn(i)
		}(i)
	}
	wg.Wait()
}
