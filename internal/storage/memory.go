package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps everything in process. Used by tests and by the CLI
// when no database path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]string
	archive []ArchiveEntry
	nextID  int64
	limit   int
	closed  bool
	failSet error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}, limit: DefaultArchiveLimit}
}

// FailWrites makes every following Set return err. Pass nil to recover.
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet = err
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.failSet != nil {
		return m.failSet
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Archive(_ context.Context, reason, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.nextID++
	m.archive = append(m.archive, ArchiveEntry{ID: m.nextID, Reason: reason, Payload: payload, CreatedAt: time.Now().UTC()})
	if len(m.archive) > m.limit {
		m.archive = append([]ArchiveEntry(nil), m.archive[len(m.archive)-m.limit:]...)
	}
	return nil
}

func (m *MemoryStore) Archived(_ context.Context, limit int) ([]ArchiveEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if limit <= 0 || limit > len(m.archive) {
		limit = len(m.archive)
	}
	out := make([]ArchiveEntry, 0, limit)
	for i := len(m.archive) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.archive[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
