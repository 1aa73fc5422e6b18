package listener

import "sync"

// Registry is the ordered set of listeners subscribed to a datafeed. It is safe for
// concurrent use; dispatch reads it through Snapshot.
type Registry struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe appends l. Subscribing the same listener twice delivers every event to it twice.
func (r *Registry) Subscribe(l Listener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Unsubscribe removes the first occurrence of l and reports whether it was found.
func (r *Registry) Unsubscribe(l Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.listeners {
		if existing == l {
			// Copy rather than reslice in place: snapshots share the old backing array.
			next := make([]Listener, 0, len(r.listeners)-1)
			next = append(next, r.listeners[:i]...)
			r.listeners = append(next, r.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns the listeners in subscription order. The result is never modified by
// later Subscribe or Unsubscribe calls.
func (r *Registry) Snapshot() []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listeners[:len(r.listeners):len(r.listeners)]
}

// Len returns the number of subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}
