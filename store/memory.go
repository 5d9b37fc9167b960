package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vitwit/paygate/types"
)

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	record   *types.PaymentRecord
	deadline time.Time
}

// MemoryStore keeps records in process. Expired entries are dropped lazily
// on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	opts    options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		opts:    o,
	}
}

func (m *MemoryStore) Put(_ context.Context, record *types.PaymentRecord, ttl time.Duration) error {
	if err := checkRecord(record, ttl); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[Key(record.PaymentID)] = memoryEntry{
		record:   cloneRecord(record),
		deadline: m.opts.now().Add(ttl),
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, paymentID string) (*types.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(Key(paymentID))
	if !ok {
		return nil, ErrNotFound
	}
	return readBack(cloneRecord(e.record))
}

func (m *MemoryStore) ListByPrefix(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for key := range m.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e, ok := m.live(key)
		if !ok {
			continue
		}
		rec, err := readBack(cloneRecord(e.record))
		if err != nil {
			m.opts.logger.Warn("skipping malformed payment record", map[string]any{"key": key, "error": err.Error()})
			continue
		}
		out = append(out, Entry{Key: key, Record: rec})
	}
	return out, nil
}

func (m *MemoryStore) CompareAndSwapStatus(_ context.Context, paymentID string, from, to types.PaymentStatus, at time.Time) (*types.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(paymentID)
	e, ok := m.live(key)
	if !ok || e.record.Status != from {
		return nil, notPending(paymentID, from)
	}

	updated := cloneRecord(e.record)
	updated.Status = to
	executedAt := at.UTC()
	updated.ExecutedAt = &executedAt

	m.entries[key] = memoryEntry{record: updated, deadline: e.deadline}
	return cloneRecord(updated), nil
}

// live returns the entry at key if it has not expired, evicting it otherwise.
// Callers hold m.mu.
func (m *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.opts.now().Before(e.deadline) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

// Len returns the number of entries currently held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
