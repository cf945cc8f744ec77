package postgres

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type PoolConfig struct {
	DSN            string
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
	MaxConns       int
}

// Open connects to Postgres and verifies the connection within ConnectTimeout.
func Open(ctx context.Context, cfg PoolConfig) (*sqlx.DB, error) {
	dsn := WithConnectTimeout(cfg.DSN, cfg.ConnectTimeout)
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns)
	}
	if cfg.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(cfg.IdleTimeout)
	}

	pctx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// WithConnectTimeout sets connect_timeout on a URL or key=value DSN unless one is present.
// Postgres takes whole seconds; anything positive rounds up to at least 1.
func WithConnectTimeout(dsn string, d time.Duration) string {
	if d <= 0 || strings.Contains(dsn, "connect_timeout") {
		return dsn
	}
	secs := int((d + time.Second - 1) / time.Second)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		q.Set("connect_timeout", strconv.Itoa(secs))
		u.RawQuery = q.Encode()
		return u.String()
	}
	return strings.TrimSpace(dsn + " connect_timeout=" + strconv.Itoa(secs))
}

// Migrate executes every .sql file in dir in lexical order.
func Migrate(ctx context.Context, db *sqlx.DB, dir string) error {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
		log.Info().Str("file", filepath.Base(f)).Msg("migration applied")
	}
	return nil
}
