package memory

import (
	"sync"

	"contex/contexts/context-routing/degradation-controller-service/domain/entities"
)

// Store is an in-process holder for the controller's latest snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot entities.Snapshot
}

func NewStore() *Store {
	return &Store{snapshot: entities.Snapshot{Mode: entities.ModeNormal}}
}

func (s *Store) Load() entities.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Store) Save(snapshot entities.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}
