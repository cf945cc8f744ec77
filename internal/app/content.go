package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"travi_content/internal/domain"
)

// ContentService implements the admin CRUD contracts over a DocumentStore.
// Every mutation reads the whole document, changes it in memory and writes it back.
type ContentService struct {
	store domain.DocumentStore
	ids   IDGenerator
	locks *keyedMutex // nil: read-modify-write cycles may interleave
}

// NewContentService wires the store. With serialize set, mutations of the same resource
// run one at a time inside this process.
func NewContentService(store domain.DocumentStore, ids IDGenerator, serialize bool) *ContentService {
	s := &ContentService{store: store, ids: ids}
	if serialize {
		s.locks = newKeyedMutex()
	}
	return s
}

func (s *ContentService) lock(resource string) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.Lock(resource)
}

// Document returns the stored value of a resource unchanged.
func (s *ContentService) Document(ctx context.Context, resource string) (json.RawMessage, error) {
	return s.store.Get(ctx, resource)
}

// ReplaceDocument overwrites a singleton or list resource with body. Nothing is merged.
func (s *ContentService) ReplaceDocument(ctx context.Context, resource string, body any) (any, error) {
	defer s.lock(resource)()
	if err := s.store.Set(ctx, resource, body); err != nil {
		return nil, err
	}
	return body, nil
}

// Find scans a collection for the record whose numeric id equals id.
func (s *ContentService) Find(ctx context.Context, resource, id string) (domain.Record, error) {
	want, ok := parseID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	recs, err := s.list(ctx, resource)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if idEquals(r["id"], want) {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Create appends body with a generated id. An id in body is overwritten.
func (s *ContentService) Create(ctx context.Context, resource string, body domain.Record) (domain.Record, error) {
	defer s.lock(resource)()
	recs, err := s.list(ctx, resource)
	if err != nil {
		return nil, err
	}
	rec := make(domain.Record, len(body)+1)
	for k, v := range body {
		rec[k] = v
	}
	rec["id"] = s.ids.NextID()
	recs = append(recs, rec)
	if err := s.store.Set(ctx, resource, recs); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update shallow-merges patch over the stored record: top-level keys in patch replace the stored
// values (nested objects included), other keys stay. The stored id is kept.
func (s *ContentService) Update(ctx context.Context, resource, id string, patch domain.Record) (domain.Record, error) {
	want, ok := parseID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	defer s.lock(resource)()
	recs, err := s.list(ctx, resource)
	if err != nil {
		return nil, err
	}
	for i, r := range recs {
		if !idEquals(r["id"], want) {
			continue
		}
		merged := make(domain.Record, len(r)+len(patch))
		for k, v := range r {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}
		merged["id"] = r["id"]
		recs[i] = merged
		if err := s.store.Set(ctx, resource, recs); err != nil {
			return nil, err
		}
		return merged, nil
	}
	return nil, domain.ErrNotFound
}

// Delete removes every record with the given id and persists the collection even when
// nothing matched, so deleting twice succeeds twice.
func (s *ContentService) Delete(ctx context.Context, resource, id string) error {
	want, ok := parseID(id)
	defer s.lock(resource)()
	recs, err := s.list(ctx, resource)
	if err != nil {
		return err
	}
	kept := recs[:0]
	for _, r := range recs {
		if ok && idEquals(r["id"], want) {
			continue
		}
		kept = append(kept, r)
	}
	return s.store.Set(ctx, resource, kept)
}

// Entry returns the value stored under key in a dictionary resource.
func (s *ContentService) Entry(ctx context.Context, resource, key string) (any, error) {
	dict, err := s.dict(ctx, resource)
	if err != nil {
		return nil, err
	}
	v, ok := dict[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

// PutEntry replaces the value under key in a dictionary resource.
func (s *ContentService) PutEntry(ctx context.Context, resource, key string, v any) (any, error) {
	defer s.lock(resource)()
	dict, err := s.dict(ctx, resource)
	if err != nil {
		return nil, err
	}
	dict[key] = v
	if err := s.store.Set(ctx, resource, dict); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *ContentService) list(ctx context.Context, resource string) ([]domain.Record, error) {
	raw, err := s.store.Get(ctx, resource)
	if err != nil {
		return nil, err
	}
	var recs []domain.Record
	if err := decodeNumbers(raw, &recs); err != nil {
		return nil, &domain.ParseError{Resource: resource, Err: fmt.Errorf("expected an array of objects: %w", err)}
	}
	if recs == nil {
		recs = []domain.Record{}
	}
	return recs, nil
}

func (s *ContentService) dict(ctx context.Context, resource string) (map[string]any, error) {
	raw, err := s.store.Get(ctx, resource)
	if err != nil {
		return nil, err
	}
	var dict map[string]any
	if err := decodeNumbers(raw, &dict); err != nil {
		return nil, &domain.ParseError{Resource: resource, Err: fmt.Errorf("expected an object: %w", err)}
	}
	if dict == nil {
		dict = map[string]any{}
	}
	return dict, nil
}

// DecodeBody parses a request body, keeping numbers as json.Number.
func DecodeBody(raw []byte, dst any) error {
	if err := decodeNumbers(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}
	return nil
}

func decodeNumbers(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func parseID(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// idEquals compares a stored id of any JSON representation with a numeric id.
func idEquals(v any, want int64) bool {
	switch id := v.(type) {
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return n == want
		}
		f, err := id.Float64()
		return err == nil && f == math.Trunc(f) && int64(f) == want
	case int64:
		return id == want
	case int:
		return int64(id) == want
	case float64:
		return id == math.Trunc(id) && int64(id) == want
	case string:
		n, ok := parseID(id)
		return ok && n == want
	default:
		return false
	}
}
