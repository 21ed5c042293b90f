package memory

import (
	"context"
	"sort"
	"sync"

	"contex/contexts/context-routing/notification-dispatcher-service/domain/entities"
)

// FanoutOutbox holds whole-node fan-out candidates deferred while the
// degradation controller reported DEGRADED, for a drain worker to replay
// once the controller reports recovery.
type FanoutOutbox struct {
	mu      sync.Mutex
	entries map[string]entities.FanoutOutboxEntry
}

func NewFanoutOutbox() *FanoutOutbox {
	return &FanoutOutbox{entries: make(map[string]entities.FanoutOutboxEntry)}
}

func (o *FanoutOutbox) Enqueue(ctx context.Context, entry entities.FanoutOutboxEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[entry.ID] = entry
	return nil
}

func (o *FanoutOutbox) ListAll(ctx context.Context, limit int) ([]entities.FanoutOutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	all := make([]entities.FanoutOutboxEntry, 0, len(o.entries))
	for _, e := range o.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (o *FanoutOutbox) Remove(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, id)
	return nil
}
