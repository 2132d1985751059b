package snapshot

import (
	"sync"
	"sync/atomic"
)

// Store publishes snapshots with a single atomic swap. Loads never block.
type Store struct {
	current atomic.Pointer[Snapshot]
	// mu serialises writers so versions stay strictly increasing.
	mu sync.Mutex
}

// NewStore creates a Store already holding initial as version 1.
func NewStore(initial *Snapshot) *Store {
	s := &Store{}
	s.Publish(initial)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Publish stamps snap with the next version and makes it current.
// snap must not be modified afterwards.
func (s *Store) Publish(snap *Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next uint64 = 1
	if prev := s.current.Load(); prev != nil {
		next = prev.Version + 1
	}
	snap.Version = next
	s.current.Store(snap)
	return next
}
