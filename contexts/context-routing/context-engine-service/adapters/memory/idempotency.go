package memory

import (
	"context"
	"sync"
	"time"

	"contex/contexts/context-routing/context-engine-service/domain/entities"
)

// IdempotencyStore is a mutex-guarded map keyed by idempotency key. Expired
// records are pruned lazily on Get.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]entities.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]entities.IdempotencyRecord)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string, now time.Time) (entities.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return entities.IdempotencyRecord{}, false, nil
	}
	if now.After(record.ExpiresAt) {
		delete(s.records, key)
		return entities.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *IdempotencyStore) Put(ctx context.Context, record entities.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key] = record
	return nil
}
