package pending

import "sync"

// Registry hands out one queue per dashboard session. Queues are created on
// first use and dropped on Release; nothing survives a process restart,
// matching the session-local nature of pending changes.
type Registry struct {
	mu     sync.Mutex
	queues map[string]*Queue
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{queues: make(map[string]*Queue)}
}

// Queue returns the queue for a session, creating it on first use.
func (r *Registry) Queue(session string) *Queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[session]
	if !ok {
		q = NewQueue()
		r.queues[session] = q
	}
	return q
}

// Release drops the queue for a session.
func (r *Registry) Release(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queues, session)
}
