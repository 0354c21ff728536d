package sync

import "sync"

// Kind identifies one of the two resource kinds with id-scoped lock sets.
type Kind string

const (
	KindTemplate Kind = "template"
	KindSession  Kind = "session"
)

// LockRegistry tracks which resource ids currently have a remote write in
// flight, one independent set per resource kind.
//
// The registry is constructed once at application start and injected into
// the sync functions; it is safe for concurrent use. It does not
// distinguish between an add and an update on the same id, since the two
// must never run concurrently for the same resource.
type LockRegistry struct {
	mu       sync.Mutex
	inFlight map[Kind]map[string]struct{}
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{
		inFlight: map[Kind]map[string]struct{}{
			KindTemplate: {},
			KindSession:  {},
		},
	}
}

// TryAcquire marks the id as in flight and returns true, or returns false
// without blocking when a sync for the id is already underway. A caller
// that receives false must abandon the sync attempt entirely, with no
// queueing and no retry.
func (r *LockRegistry) TryAcquire(kind Kind, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.inFlight[kind]
	if _, held := set[id]; held {
		return false
	}
	set[id] = struct{}{}
	return true
}

// Release removes the id from the in-flight set. Releasing an id that is
// not held is a no-op, so Release is safe on every exit path.
func (r *LockRegistry) Release(kind Kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.inFlight[kind], id)
}

// InFlight reports whether a sync for the id is currently underway.
func (r *LockRegistry) InFlight(kind Kind, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, held := r.inFlight[kind][id]
	return held
}
