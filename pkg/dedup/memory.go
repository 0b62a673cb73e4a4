package dedup

import (
	"context"
	"time"
)

// MemoryStore é o armazenamento padrão, local ao processo.
type MemoryStore struct {
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, e Entry) error {
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for k, e := range m.entries {
		if e.Stamp.Before(cutoff) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	return len(m.entries), nil
}
