package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"contex/contexts/context-routing/notification-dispatcher-service/adapters/memory"
	"contex/contexts/context-routing/notification-dispatcher-service/application"
	"contex/contexts/context-routing/notification-dispatcher-service/domain/entities"
	"contex/contexts/context-routing/notification-dispatcher-service/ports"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	if text == "matching need" {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

type fakeRegistry struct {
	regs []ports.RegistrationMirror
	mu   sync.Mutex
	seen map[string]int64
}

func (f *fakeRegistry) List(ctx context.Context, projectID string) ([]ports.RegistrationMirror, error) {
	return f.regs, nil
}

func (f *fakeRegistry) UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]int64)
	}
	f.seen[agentID] = sequence
	return nil
}

func (f *fakeRegistry) Seen(agentID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[agentID]
}

type fakePublisher struct {
	mu        sync.Mutex
	delivered []entities.Update
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, update entities.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, update)
	return nil
}

func (f *fakePublisher) Delivered() []entities.Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.Update{}, f.delivered...)
}

func TestNotifyNewNodeDeliversAboveThresholdOnly(t *testing.T) {
	registry := &fakeRegistry{regs: []ports.RegistrationMirror{
		{
			AgentID: "a1", ProjectID: "p",
			Needs:    []string{"matching need", "other need"},
			Delivery: ports.DeliveryMirror{Mode: "pubsub", Channel: "agent:a1:updates"},
		},
	}}
	pub := &fakePublisher{}
	svc := &application.Service{
		Registry:  registry,
		Embedder:  fakeEmbedder{},
		Pub:       pub,
		Threshold: 0.9,
	}

	node := ports.NodeMirror{ProjectID: "p", NodeKey: "node-1", DataKey: "users", Embedding: []float32{1, 0}}
	if err := svc.NotifyNewNode(context.Background(), node, 5); err != nil {
		t.Fatalf("notify: %v", err)
	}

	// Delivery runs on the agent's own serialized queue goroutine, so wait
	// for it to land instead of asserting immediately after NotifyNewNode.
	deadline := time.Now().Add(time.Second)
	for registry.Seen("a1") != 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	delivered := pub.Delivered()
	if len(delivered) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(delivered))
	}
	if delivered[0].Need != "matching need" {
		t.Fatalf("unexpected delivered need: %+v", delivered[0])
	}
	if registry.Seen("a1") != 5 {
		t.Fatalf("expected last_seen_sequence advanced to 5, got %d", registry.Seen("a1"))
	}
}

func TestNotifyNewNodeSerializesPerAgentDeliveryOrder(t *testing.T) {
	registry := &fakeRegistry{regs: []ports.RegistrationMirror{
		{
			AgentID: "a1", ProjectID: "p",
			Needs:    []string{"matching need"},
			Delivery: ports.DeliveryMirror{Mode: "pubsub", Channel: "agent:a1:updates"},
		},
	}}
	pub := &fakePublisher{}
	svc := &application.Service{
		Registry:  registry,
		Embedder:  fakeEmbedder{},
		Pub:       pub,
		Threshold: 0.9,
	}

	node := ports.NodeMirror{ProjectID: "p", NodeKey: "node", DataKey: "users", Embedding: []float32{1, 0}}

	// Successive publishes reach NotifyNewNode in sequence order, the same
	// way the context engine calls it once per node after each append.
	// Delivery itself happens on a background goroutine, so this exercises
	// the per-agent queue rather than accidental caller-side ordering.
	for seq := int64(1); seq <= 20; seq++ {
		if err := svc.NotifyNewNode(context.Background(), node, seq); err != nil {
			t.Fatalf("notify seq %d: %v", seq, err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for registry.Seen("a1") != 20 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	delivered := pub.Delivered()
	if len(delivered) != 20 {
		t.Fatalf("expected 20 deliveries, got %d", len(delivered))
	}
	for i, u := range delivered {
		if u.Sequence != int64(i+1) {
			t.Fatalf("delivery %d out of order: got sequence %d, want %d", i, u.Sequence, i+1)
		}
	}
}

func TestDeliverWebhookOpensCircuitAfterRepeatedFailure(t *testing.T) {
	circuits := memory.NewCircuitStore(2, time.Hour)
	now := time.Now().UTC()
	// Directly drive the circuit store the way the application service
	// would on repeated failures, independent of retry/backoff timing.
	circuits.RecordFailure("https://example.test/hook", now)
	c := circuits.RecordFailure("https://example.test/hook", now)
	if c.State != entities.CircuitOpen {
		t.Fatalf("expected circuit open after threshold failures, got %s", c.State)
	}
}

func TestCircuitHalfOpenClosesOnSingleSuccess(t *testing.T) {
	circuits := memory.NewCircuitStore(1, time.Millisecond)
	now := time.Now().UTC()
	circuits.RecordFailure("https://example.test/hook", now)
	time.Sleep(2 * time.Millisecond)

	c := circuits.Get("https://example.test/hook")
	if c.State != entities.CircuitHalfOpen {
		t.Fatalf("expected half_open after cooldown, got %s", c.State)
	}

	c = circuits.RecordSuccess("https://example.test/hook", now)
	if c.State != entities.CircuitClosed {
		t.Fatalf("expected closed after a single success in half_open, got %s", c.State)
	}
}

func TestDeferFanoutQueuesToOutboxWhenWired(t *testing.T) {
	registry := &fakeRegistry{}
	outbox := memory.NewFanoutOutbox()
	svc := &application.Service{
		Registry:     registry,
		Embedder:     fakeEmbedder{},
		Pub:          &fakePublisher{},
		FanoutOutbox: outbox,
		Threshold:    0.9,
	}

	node := ports.NodeMirror{ProjectID: "p", NodeKey: "node-1", DataKey: "users", Embedding: []float32{1, 0}}
	if err := svc.DeferFanout(context.Background(), node, 9); err != nil {
		t.Fatalf("defer fanout: %v", err)
	}

	entries, err := outbox.ListAll(context.Background(), 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one queued entry, got %d", len(entries))
	}
	if entries[0].NodeKey != "node-1" || entries[0].Sequence != 9 {
		t.Fatalf("unexpected queued entry: %+v", entries[0])
	}
}

func TestDeferFanoutFallsBackToInlineWithoutOutbox(t *testing.T) {
	registry := &fakeRegistry{regs: []ports.RegistrationMirror{
		{
			AgentID: "a1", ProjectID: "p",
			Needs:    []string{"matching need"},
			Delivery: ports.DeliveryMirror{Mode: "pubsub", Channel: "agent:a1:updates"},
		},
	}}
	pub := &fakePublisher{}
	svc := &application.Service{
		Registry:  registry,
		Embedder:  fakeEmbedder{},
		Pub:       pub,
		Threshold: 0.9,
	}

	node := ports.NodeMirror{ProjectID: "p", NodeKey: "node-1", DataKey: "users", Embedding: []float32{1, 0}}
	if err := svc.DeferFanout(context.Background(), node, 5); err != nil {
		t.Fatalf("defer fanout: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for registry.Seen("a1") != 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if len(pub.Delivered()) != 1 {
		t.Fatalf("expected inline delivery when no outbox is wired, got %d", len(pub.Delivered()))
	}
}
