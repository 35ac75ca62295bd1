package screens

import "sync"

// Alerts collects user-facing alert messages raised while handling one request
type Alerts struct {
	mu       sync.Mutex
	messages []string
}

func (a *Alerts) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

// Messages returns the collected messages in order
func (a *Alerts) Messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}
