package store

import (
	"errors"
	"sync"

	"github.com/HendryAvila/coherence/internal/outcome"
)

// ErrUnavailable is returned by a MemoryStore with writes disabled.
var ErrUnavailable = errors.New("store: storage unavailable")

// MemoryStore keeps the encoded counters record in memory. It backs
// ephemeral runs and tests; the record still goes through the JSON
// codec so round trips behave like the SQLite store.
type MemoryStore struct {
	mu         sync.Mutex
	data       []byte
	failWrites bool
	saves      int
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore { return &MemoryStore{} }

// SetRaw replaces the stored record bytes.
func (m *MemoryStore) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// FailWrites makes subsequent saves fail as if storage were full.
func (m *MemoryStore) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

// Saves returns how many saves succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Load decodes the stored record, or returns zero counters.
func (m *MemoryStore) Load() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return Counters{}
	}
	c, _ := DecodeCounters(m.data)
	return c
}

// Save encodes and keeps c unless writes are failing.
func (m *MemoryStore) Save(c Counters) outcome.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return outcome.Failed("save_counters", outcome.StatusDegraded, ErrUnavailable)
	}
	data, err := EncodeCounters(c)
	if err != nil {
		return outcome.Failed("save_counters", outcome.StatusDegraded, err)
	}
	m.data = data
	m.saves++
	return outcome.OK("save_counters")
}
