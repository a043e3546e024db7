package engine

import "sync"

// ownerLocks serializes mutating passes per owner. Reconciliation and
// materialization read-modify-write tracker and template rows; two passes
// for the same owner must never interleave. Different owners run in
// parallel.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*sync.Mutex)}
}

func (o *ownerLocks) get(owner string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[owner]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[owner] = lock
	}
	return lock
}
