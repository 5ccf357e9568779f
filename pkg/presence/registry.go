package presence

import "sync"

// Channel is the delivery half of a realtime connection. Send must not
// block; implementations drop when their buffer is full.
type Channel interface {
	Send(data []byte) error
	Close()
}

// Registry maps each online user to at most one channel. Registration is
// last-writer-wins: attaching while a channel is already present replaces
// it, and the replaced channel is handed back to the caller for teardown.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Channel
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Channel)}
}

// Attach registers ch as the user's channel and returns the channel it
// replaced, or nil when the user had none.
func (r *Registry) Attach(userID string, ch Channel) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[userID]
	r.sessions[userID] = ch
	return prev
}

// Detach removes the user's registration, but only while ch is still the
// registered channel. A connection replaced by a newer one detaches as a
// no-op.
func (r *Registry) Detach(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[userID] == ch {
		delete(r.sessions, userID)
	}
}

// Lookup returns the user's channel, or nil when offline.
func (r *Registry) Lookup(userID string) Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID]
}

// Len reports how many users are currently attached.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
