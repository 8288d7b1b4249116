package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spigell/interviewer/internal/interview"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are stored encoded so
// callers never share nested slices or maps with the store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     clock
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttlOrDefault(ttl),
		now:     utcNow,
	}
}

func (m *MemoryStore) Create(_ context.Context, s interview.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[s.ID]; ok {
		return ErrExists
	}
	m.entries[s.ID] = memoryEntry{payload: payload, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (interview.Session, error) {
	m.mu.Lock()
	entry, ok := m.entries[id]
	now := m.now()
	m.mu.Unlock()

	if !ok {
		return interview.Session{}, ErrNotFound
	}
	if now.After(entry.expiresAt) {
		return interview.Session{}, ErrExpired
	}

	var s interview.Session
	if err := json.Unmarshal(entry.payload, &s); err != nil {
		return interview.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (m *MemoryStore) Update(_ context.Context, s interview.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[s.ID]; !ok {
		return ErrNotFound
	}
	m.entries[s.ID] = memoryEntry{payload: payload, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) PurgeExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Close() error { return nil }
