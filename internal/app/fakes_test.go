package app_test

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"travi_content/internal/domain"
)

// memStore is an in-memory DocumentStore that round-trips values through JSON like the file store.
type memStore struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
}

func newMemStore(seed map[string]string) *memStore {
	m := &memStore{docs: map[string]json.RawMessage{}}
	for k, v := range seed {
		m.docs[k] = json.RawMessage(v)
	}
	return m
}

func (m *memStore) Get(_ context.Context, resource string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.docs[resource]
	if !ok {
		return nil, &domain.ParseError{Resource: resource, Err: os.ErrNotExist}
	}
	return append(json.RawMessage(nil), b...), nil
}

func (m *memStore) Set(_ context.Context, resource string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[resource] = b
	return nil
}

// barrierStore holds every Get until `parties` readers have arrived (or wait elapses),
// forcing read-modify-write cycles to overlap.
type barrierStore struct {
	*memStore
	parties int
	wait    time.Duration

	mu      sync.Mutex
	arrived int
	ready   chan struct{}
}

func newBarrierStore(inner *memStore, parties int, wait time.Duration) *barrierStore {
	return &barrierStore{memStore: inner, parties: parties, wait: wait, ready: make(chan struct{})}
}

func (b *barrierStore) Get(ctx context.Context, resource string) (json.RawMessage, error) {
	raw, err := b.memStore.Get(ctx, resource)

	b.mu.Lock()
	b.arrived++
	if b.arrived == b.parties {
		close(b.ready)
	}
	b.mu.Unlock()

	select {
	case <-b.ready:
	case <-time.After(b.wait):
	}
	return raw, err
}

// slowStore widens the window between read and write.
type slowStore struct {
	*memStore
	delay time.Duration
}

func (s *slowStore) Get(ctx context.Context, resource string) (json.RawMessage, error) {
	time.Sleep(s.delay)
	return s.memStore.Get(ctx, resource)
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }
