// Package flatfile stores one JSON document per resource under a data directory.
package flatfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"travi_content/internal/adapters/observability"
	"travi_content/internal/domain"
)

var errInvalidJSON = errors.New("invalid JSON")

type Store struct{ dir string }

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(resource string) (string, error) {
	if resource == "" || strings.ContainsAny(resource, `/\`) || strings.HasPrefix(resource, ".") {
		return "", fmt.Errorf("invalid resource name %q", resource)
	}
	return filepath.Join(s.dir, resource+".json"), nil
}

// Get returns the whole file content. A missing file or invalid JSON yields *domain.ParseError.
func (s *Store) Get(ctx context.Context, resource string) (json.RawMessage, error) {
	start := time.Now()
	b, err := s.read(ctx, resource)
	observability.ObserveStore(resource, "read", err, time.Since(start))
	return b, err
}

func (s *Store) read(ctx context.Context, resource string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(resource)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, &domain.ParseError{Resource: resource, Err: err}
	}
	if !json.Valid(b) {
		return nil, &domain.ParseError{Resource: resource, Err: errInvalidJSON}
	}
	return json.RawMessage(b), nil
}

// Set replaces the file with v indented by two spaces.
// The bytes go to a temp file in the same directory which is synced and renamed over the target,
// so a crash leaves either the old or the new document.
func (s *Store) Set(ctx context.Context, resource string, v any) error {
	start := time.Now()
	err := s.write(ctx, resource, v)
	observability.ObserveStore(resource, "write", err, time.Since(start))
	return err
}

func (s *Store) write(ctx context.Context, resource string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(resource)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", resource, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+resource+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", resource, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err = tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", resource, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", resource, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", resource, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", resource, err)
	}
	if err = os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("replace %s: %w", resource, err)
	}
	return nil
}

// EnsureDefaults writes the empty document of every resource whose file does not exist yet.
// Existing files are never touched, even when they hold invalid JSON.
func (s *Store) EnsureDefaults(ctx context.Context, resources map[string]domain.Kind) error {
	for name, kind := range resources {
		p, err := s.path(name)
		if err != nil {
			return err
		}
		if _, err := os.Stat(p); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := s.Set(ctx, name, kind.Empty()); err != nil {
			return err
		}
		log.Info().Str("resource", name).Msg("created empty resource file")
	}
	return nil
}
