package shared

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"prod"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFile     string `env:"LOG_FILE"`
	APIAddr     string `env:"API_ADDR" envDefault:":3001" validate:"required"`
	SiteAddr    string `env:"SITE_ADDR" envDefault:":3000" validate:"required"`
	MetricsAddr string `env:"METRICS_ADDR"`

	// flat-file store and uploads
	DataDir         string `env:"DATA_DIR" envDefault:"./data" validate:"required"`
	UploadDir       string `env:"UPLOAD_DIR" envDefault:"./public/uploads" validate:"required"`
	UploadMaxBytes  int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880" validate:"gt=0"`
	UploadURLPrefix string `env:"UPLOAD_URL_PREFIX" envDefault:"/uploads" validate:"startswith=/"`
	IDStrategy      string `env:"ID_STRATEGY" envDefault:"monotonic" validate:"oneof=clock monotonic"`
	SerializeWrites bool   `env:"SERIALIZE_WRITES" envDefault:"true"`
	InitData        bool   `env:"INIT_DATA" envDefault:"false"` // create empty files for missing resources at boot

	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"0" validate:"gte=0"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"20" validate:"gte=1"`

	// relational store
	DatabaseURL      string        `env:"DATABASE_URL"`
	PGConnectTimeout time.Duration `env:"PG_CONNECT_TIMEOUT" envDefault:"5s"`
	PGIdleTimeout    time.Duration `env:"PG_IDLE_TIMEOUT" envDefault:"30s"`
	PGMaxConns       int           `env:"PG_MAX_CONNS" envDefault:"10" validate:"gte=1"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPass     string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	CacheTTLSecs  int    `env:"CACHE_TTL_SECONDS" envDefault:"3600" validate:"gte=0"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en" validate:"required"`

	SeedWorkers   int    `env:"SEED_WORKERS" envDefault:"8" validate:"gte=1"`
	SeedFile      string `env:"SEED_FILE" envDefault:"./fixtures/seed.yaml"`
	MigrationsDir string `env:"MIGRATIONS_DIR"` // applied by the seeder when set
}

// CacheTTL is the site page cache lifetime.
func (c Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSecs) * time.Second }

// IsDev reports a development environment (console logging).
func (c Config) IsDev() bool { return c.AppEnv == "dev" || c.AppEnv == "development" }

var validate = validator.New()

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	return parse(env.Options{})
}

// LoadFrom parses the given variables only. Used by tests.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	c.CORSOrigins = trimAll(c.CORSOrigins)
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
