// internal/storage/memory.go
package storage

import (
	"context"
	"sync"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

// MemoryStore keeps records in process. Used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	closed  bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ EventStore = (*MemoryStore)(nil)

// Append stores every event or none of them.
func (m *MemoryStore) Append(_ context.Context, evs ...events.Event) error {
	batch := make([]Record, 0, len(evs))
	for _, ev := range evs {
		r, err := Encode(ev)
		if err != nil {
			return err
		}
		batch = append(batch, r)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	next := int64(len(m.records))
	for i := range batch {
		next++
		batch[i].Seq = next
	}
	m.records = append(m.records, batch...)
	return nil
}

// List returns matching records ordered by Seq.
func (m *MemoryStore) List(_ context.Context, q Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	limit := q.limit()
	out := make([]Record, 0, min(limit, len(m.records)))
	// Seq == index+1, поэтому можно начать сразу после AfterSeq
	start := 0
	if q.AfterSeq > 0 {
		start = int(min(q.AfterSeq, int64(len(m.records))))
	}
	for _, r := range m.records[start:] {
		if !q.match(r) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Close makes further calls fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
