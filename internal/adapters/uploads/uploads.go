package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrTooLarge = errors.New("file too large")
	ErrNotImage = errors.New("file is not an image")
)

const nameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// stored extension per sniffed type; the client's file name is never trusted
var sniffedExt = map[string]string{
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/bmp":                ".bmp",
	"image/avif":               ".avif",
	"image/x-icon":             ".ico",
	"image/vnd.microsoft.icon": ".ico",
}

type Upload struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Store writes uploaded images to a directory served under urlPrefix.
type Store struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	now       func() time.Time
}

func New(dir, urlPrefix string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/"), maxBytes: maxBytes, now: time.Now}, nil
}

func (s *Store) Dir() string       { return s.dir }
func (s *Store) MaxBytes() int64   { return s.maxBytes }
func (s *Store) URLPrefix() string { return s.urlPrefix }

// Save stores r as <unix-ms>-<nanoid><ext>, where ext follows the sniffed image type.
// Other content and anything over the size limit is rejected without leaving a file behind.
func (s *Store) Save(ctx context.Context, original string, r io.Reader) (Upload, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Upload{}, err
	}
	head = head[:n]
	ctype := http.DetectContentType(head)
	ext, ok := sniffedExt[ctype]
	if !ok {
		return Upload{}, ErrNotImage
	}
	id, err := gonanoid.Generate(nameAlphabet, 10)
	if err != nil {
		return Upload{}, fmt.Errorf("generate upload name: %w", err)
	}
	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), id, ext)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Upload{}, err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(tmp, io.LimitReader(body, s.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return Upload{}, err
	}
	if written > s.maxBytes {
		cleanup()
		return Upload{}, ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return Upload{}, err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return Upload{}, err
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		cleanup()
		return Upload{}, err
	}

	log.Info().Str("file", name).Str("original", original).Str("type", ctype).Int64("bytes", written).Msg("upload stored")
	return Upload{URL: s.urlPrefix + "/" + name, Filename: name}, nil
}
