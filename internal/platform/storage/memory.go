package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryPreviewStore keeps previews in process memory
type MemoryPreviewStore struct {
	mu       sync.RWMutex
	previews map[string]Preview
}

func NewMemoryPreviewStore() *MemoryPreviewStore {
	return &MemoryPreviewStore{previews: make(map[string]Preview)}
}

func (m *MemoryPreviewStore) Put(_ context.Context, contentType string, data []byte) (string, error) {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.previews[id] = Preview{ID: id, ContentType: contentType, Data: data}
	return id, nil
}

func (m *MemoryPreviewStore) Get(_ context.Context, id string) (*Preview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.previews[id]
	if !ok {
		return nil, ErrPreviewNotFound
	}
	return &p, nil
}

func (m *MemoryPreviewStore) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.previews, id)
	return nil
}

// Len reports how many previews are held
func (m *MemoryPreviewStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.previews)
}
