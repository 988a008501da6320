package job

import "sync"

// Registry is the process-wide table of running jobs. It guarantees at most
// one live handle per job id. Each id gets its own lock so unrelated jobs
// never contend; the meta mutex is held only for map bookkeeping. The
// registry is constructed at the composition root and injected, never a
// package-level singleton.
type Registry struct {
	mu    sync.Mutex
	jobs  map[string]*Handle
	locks map[string]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		jobs:  make(map[string]*Handle),
		locks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the dedicated lock for a job id, creating it lazily. Lock
// entries are kept for the life of the process; job ids are deterministic
// per logical request, so retries of the same source reuse the same lock.
func (r *Registry) lockFor(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// Register inserts the handle if the id is free and reports whether it won.
// A false return means a job with this id is already running; the existing
// handle is left untouched.
func (r *Registry) Register(id string, h *Handle) bool {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[id]; exists {
		return false
	}
	r.jobs[id] = h
	return true
}

// Unregister removes the entry. It is a no-op when the entry is already
// gone, so success, error, and cancellation paths can all call it without
// coordinating.
func (r *Registry) Unregister(id string) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

func (r *Registry) Lookup(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.jobs[id]
	return h, ok
}

// Active returns the number of live jobs, for health reporting.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
