package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"contex/contexts/context-routing/event-log-service/domain/entities"
)

// Store is a per-project append-only log guarded by a single mutex. Good
// enough for tests and the embedded/standalone deployment mode; the
// Postgres adapter is what scale actually runs on.
type Store struct {
	mu     sync.Mutex
	byProj map[string][]entities.Event
	clock  func() time.Time
}

func NewStore() *Store {
	return &Store{byProj: make(map[string][]entities.Event)}
}

// NewStoreWithClock lets tests pin CreatedAt for deterministic assertions.
func NewStoreWithClock(clock func() time.Time) *Store {
	return &Store{byProj: make(map[string][]entities.Event), clock: clock}
}

func (s *Store) Append(_ context.Context, projectID, tenantID, eventType string, payload json.RawMessage) (entities.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.byProj[projectID]
	nextSeq := int64(len(existing)) + 1

	event := entities.Event{
		ProjectID: projectID,
		TenantID:  tenantID,
		EventType: eventType,
		Payload:   payload,
		Sequence:  nextSeq,
		CreatedAt: s.now(),
	}
	s.byProj[projectID] = append(existing, event)
	return event, nil
}

func (s *Store) Read(_ context.Context, projectID string, since int64, limit int) ([]entities.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.byProj[projectID]
	result := make([]entities.Event, 0, limit)
	for _, event := range all {
		if event.Sequence <= since {
			continue
		}
		result = append(result, event)
		if len(result) >= limit {
			break
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Sequence < result[j].Sequence })
	return result, nil
}

func (s *Store) Length(_ context.Context, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.byProj[projectID])), nil
}

func (s *Store) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now().UTC()
}
