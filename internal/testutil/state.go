package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/inferloop/autoeda/pkg/errors"
)

// MemoryStateStore is an in-memory interfaces.StateStore
type MemoryStateStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryStateStore returns a store holding data; nil means no document
func NewMemoryStateStore(data []byte) *MemoryStateStore {
	return &MemoryStateStore{data: data}
}

// Load returns the stored document or errors.ErrStateNotFound
func (m *MemoryStateStore) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, errors.ErrStateNotFound
	}
	return append([]byte(nil), m.data...), nil
}

// Save replaces the document
func (m *MemoryStateStore) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

// Close is a no-op
func (m *MemoryStateStore) Close() error { return nil }

// Data returns the last saved document
func (m *MemoryStateStore) Data() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Saves returns how many times Save was called
func (m *MemoryStateStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Clock is a settable clock for code that takes a func() time.Time
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
