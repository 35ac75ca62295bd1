package kv

import (
	"context"
	"sync"
	"time"
)

type memoryBucket struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory with a sliding TTL
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. A zero ttl never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*memoryBucket),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) bucket(sessionID string, create bool) *memoryBucket {
	now := m.now()
	b, ok := m.buckets[sessionID]
	if ok && m.ttl > 0 && now.After(b.expiresAt) {
		delete(m.buckets, sessionID)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		b = &memoryBucket{values: make(map[string]string)}
		m.buckets[sessionID] = b
	}
	b.expiresAt = now.Add(m.ttl)
	return b
}

func (m *MemoryStore) Get(_ context.Context, sessionID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.bucket(sessionID, false)
	if b == nil {
		return "", ErrKeyNotFound
	}
	v, ok := b.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bucket(sessionID, true).values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.bucket(sessionID, false)
	if b == nil {
		return nil
	}
	for _, key := range keys {
		delete(b.values, key)
	}
	if len(b.values) == 0 {
		delete(m.buckets, sessionID)
	}
	return nil
}

// Sweep drops expired sessions and reports how many were removed
func (m *MemoryStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, b := range m.buckets {
		if now.After(b.expiresAt) {
			delete(m.buckets, id)
			removed++
		}
	}
	return removed
}
