// Package screens holds the per-session screen state containers
package screens

import (
	"sync"
	"time"
)

// Closer is implemented by screens that hold resources
type Closer interface {
	Close()
}

type registryEntry[T Closer] struct {
	screen   T
	lastUsed time.Time
}

// Registry keeps one screen per session id and evicts idle ones
type Registry[T Closer] struct {
	mu      sync.Mutex
	entries map[string]*registryEntry[T]
	ttl     time.Duration
	now     func() time.Time
}

// NewRegistry creates a registry. A zero ttl disables eviction.
func NewRegistry[T Closer](ttl time.Duration) *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]*registryEntry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the session's screen, creating it with create when absent
func (r *Registry[T]) Get(sessionID string, create func() T) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[sessionID]; ok {
		e.lastUsed = r.now()
		return e.screen, false
	}

	screen := create()
	r.entries[sessionID] = &registryEntry[T]{screen: screen, lastUsed: r.now()}
	return screen, true
}

// Replace installs a fresh screen for the session and closes the previous one
func (r *Registry[T]) Replace(sessionID string, screen T) {
	r.mu.Lock()
	old, had := r.entries[sessionID]
	r.entries[sessionID] = &registryEntry[T]{screen: screen, lastUsed: r.now()}
	r.mu.Unlock()

	if had {
		old.screen.Close()
	}
}

// Remove drops and closes the session's screen
func (r *Registry[T]) Remove(sessionID string) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	r.mu.Unlock()

	if ok {
		e.screen.Close()
	}
}

// Sweep closes screens idle for longer than the ttl and returns how many went
func (r *Registry[T]) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	cutoff := r.now().Add(-r.ttl)
	var expired []T
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			expired = append(expired, e.screen)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Len reports the number of live screens
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
