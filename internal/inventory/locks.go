package inventory

import (
	"sync"

	"github.com/google/uuid"
)

// sizeLocks serializes stock mutations per size so that the
// read-modify-write inside a transaction never races with another
// writer for the same row. Entries are never evicted; the map is
// bounded by the size catalog.
type sizeLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newSizeLocks() *sizeLocks {
	return &sizeLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Acquire locks the mutex for sizeID and returns its unlock func.
func (s *sizeLocks) Acquire(sizeID uuid.UUID) func() {
	s.mu.Lock()
	lock, ok := s.locks[sizeID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sizeID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
