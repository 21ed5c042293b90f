package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"contex/contexts/context-routing/notification-dispatcher-service/domain/entities"
)

// Outbox holds webhook deliveries that exhausted retries while their
// destination's circuit was open, for a drain worker to replay once the
// circuit closes again.
type Outbox struct {
	mu      sync.Mutex
	entries map[string]entities.OutboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{entries: make(map[string]entities.OutboxEntry)}
}

func (o *Outbox) Enqueue(ctx context.Context, entry entities.OutboxEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[entry.ID] = entry
	return nil
}

func (o *Outbox) ListDue(ctx context.Context, now time.Time, limit int) ([]entities.OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	due := make([]entities.OutboxEntry, 0)
	for _, e := range o.entries {
		if !e.NextAttempt.After(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (o *Outbox) Remove(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, id)
	return nil
}
