package memory

import (
	"context"
	"sync"
	"time"

	"contex/contexts/context-routing/subscription-registry-service/domain/entities"
	domainerrors "contex/contexts/context-routing/subscription-registry-service/domain/errors"
)

type key struct {
	projectID string
	agentID   string
}

type Store struct {
	mu   sync.Mutex
	regs map[key]entities.AgentRegistration
}

func NewStore() *Store {
	return &Store{regs: make(map[key]entities.AgentRegistration)}
}

func (s *Store) Register(ctx context.Context, reg entities.AgentRegistration) (entities.AgentRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[key{reg.ProjectID, reg.AgentID}] = reg
	return reg, nil
}

func (s *Store) Unregister(ctx context.Context, projectID, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.regs, key{projectID, agentID})
	return nil
}

func (s *Store) Get(ctx context.Context, projectID, agentID string) (entities.AgentRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[key{projectID, agentID}]
	if !ok {
		return entities.AgentRegistration{}, domainerrors.ErrRegistrationNotFound
	}
	return reg, nil
}

func (s *Store) List(ctx context.Context, projectID string) ([]entities.AgentRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.AgentRegistration
	for k, reg := range s.regs {
		if k.projectID == projectID {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (s *Store) UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{projectID, agentID}
	reg, ok := s.regs[k]
	if !ok {
		return domainerrors.ErrRegistrationNotFound
	}
	reg.LastSeenSequence = sequence
	reg.UpdatedAt = time.Now().UTC()
	s.regs[k] = reg
	return nil
}

func (s *Store) ExpireIdle(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for k, reg := range s.regs {
		if reg.UpdatedAt.Before(olderThan) {
			delete(s.regs, k)
			count++
		}
	}
	return count, nil
}
