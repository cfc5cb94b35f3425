package auth

import "sync"

// UnauthorizedBroadcaster fans out a notification whenever any request
// receives HTTP 401, so a top-level handler can force a re-login. Listeners
// must not block.
type UnauthorizedBroadcaster struct {
	mu        sync.RWMutex
	listeners []func()
}

func NewUnauthorizedBroadcaster() *UnauthorizedBroadcaster {
	return &UnauthorizedBroadcaster{}
}

// Subscribe registers a listener and returns an unsubscribe function.
func (b *UnauthorizedBroadcaster) Subscribe(listener func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = append(b.listeners, listener)
	index := len(b.listeners) - 1

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if index < len(b.listeners) {
			b.listeners[index] = nil
		}
	}
}

// Notify invokes every registered listener.
func (b *UnauthorizedBroadcaster) Notify() {
	b.mu.RLock()
	listeners := make([]func(), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, listener := range listeners {
		if listener != nil {
			listener()
		}
	}
}
