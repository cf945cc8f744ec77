package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// FetchError records why real data could not be loaded.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Op, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// Result carries either fetched data or a placeholder together with the failure that caused it.
type Result[T any] struct {
	Data T
	Err  *FetchError
}

// Placeholder reports whether Data is stand-in content.
func (r Result[T]) Placeholder() bool { return r.Err != nil }

// FetchOrPlaceholder runs fetch and falls back to placeholder when it fails.
// The failure is kept on the result and logged, never dropped.
func FetchOrPlaceholder[T any](ctx context.Context, op string, fetch func(context.Context) (T, error), placeholder T) Result[T] {
	v, err := fetch(ctx)
	if err != nil {
		log.Warn().Str("op", op).Err(err).Msg("fetch failed; showing placeholder data")
		return Result[T]{Data: placeholder, Err: &FetchError{Op: op, Err: err}}
	}
	return Result[T]{Data: v}
}
