package paginator

import "sync"

// Registry maps rendered message IDs to their live sessions so the
// collector can route inbound events. Each entry is removed when its
// session's goroutine finishes disposal. The registry lock is
// cross-session bookkeeping only; per-session state stays behind each
// session's own mutex.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register tracks a session under its render target's message ID. A
// second session for the same message replaces the first; the caller is
// responsible for disposing the old one.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Target().MessageID] = s
}

// Lookup returns the session attached to the given message, if any.
func (r *Registry) Lookup(messageID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[messageID]
	return s, ok
}

// Remove drops the session attached to the given message.
func (r *Registry) Remove(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, messageID)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
