package app

import (
	"sync"
	"time"
)

// IDGenerator hands out numeric record ids for collection resources.
type IDGenerator interface {
	NextID() int64
}

// ClockIDs returns the current Unix time in milliseconds.
// Two creates within the same millisecond get the same id.
type ClockIDs struct {
	Now func() time.Time
}

func (c ClockIDs) NextID() int64 {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().UnixMilli()
}

// MonotonicIDs starts from the millisecond clock but never repeats or goes backwards within a process.
type MonotonicIDs struct {
	Now func() time.Time

	mu   sync.Mutex
	last int64
}

func (m *MonotonicIDs) NextID() int64 {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	id := now().UnixMilli()

	m.mu.Lock()
	defer m.mu.Unlock()
	if id <= m.last {
		id = m.last + 1
	}
	m.last = id
	return id
}

// NewIDGenerator maps the ID_STRATEGY setting to a generator; anything but "clock" is monotonic.
func NewIDGenerator(strategy string) IDGenerator {
	if strategy == "clock" {
		return ClockIDs{}
	}
	return &MonotonicIDs{}
}
