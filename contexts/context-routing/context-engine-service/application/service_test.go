package application_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"contex/contexts/context-routing/context-engine-service/adapters/memory"
	"contex/contexts/context-routing/context-engine-service/application"
	"contex/contexts/context-routing/context-engine-service/domain/entities"
	"contex/contexts/context-routing/context-engine-service/ports"
	"contex/internal/platform/apperr"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type fakeVectors struct {
	mu      sync.Mutex
	upserts int
}

func (f *fakeVectors) Upsert(ctx context.Context, projectID, nodeKey, dataKey, description string, payload json.RawMessage, embedding []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	return nil
}
func (f *fakeVectors) Delete(ctx context.Context, projectID, nodeKey string) error { return nil }

type fakeEventLog struct {
	mu       sync.Mutex
	sequence int64
}

func (f *fakeEventLog) Append(ctx context.Context, projectID, tenantID, eventType string, payload json.RawMessage) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequence++
	return f.sequence, nil
}
func (f *fakeEventLog) Read(ctx context.Context, projectID string, since int64, limit int) ([]ports.EventMirror, error) {
	return nil, nil
}
func (f *fakeEventLog) Length(ctx context.Context, projectID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sequence, nil
}

type fakeMatcher struct {
	byIndex map[int][]ports.MatchMirror
}

func (f *fakeMatcher) Query(ctx context.Context, projectID string, queries []string, topK int, threshold float64, hybrid bool) (map[int][]ports.MatchMirror, error) {
	return f.byIndex, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	notices  []ports.NodeMirror
	seqs     []int64
	deferred []ports.NodeMirror
}

func (f *fakeNotifier) NotifyNewNode(ctx context.Context, node ports.NodeMirror, sequence int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, node)
	f.seqs = append(f.seqs, sequence)
	return nil
}

func (f *fakeNotifier) DeferFanout(ctx context.Context, node ports.NodeMirror, sequence int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deferred = append(f.deferred, node)
	return nil
}

type fakeGate struct{ mode string }

func (g fakeGate) Mode() string { return g.mode }

type fakeRegistrar struct {
	saved ports.RegistrationMirror
}

func (f *fakeRegistrar) Register(ctx context.Context, reg ports.RegistrationMirror) (ports.RegistrationMirror, error) {
	f.saved = reg
	return reg, nil
}
func (f *fakeRegistrar) Unregister(ctx context.Context, projectID, agentID string) error { return nil }
func (f *fakeRegistrar) Get(ctx context.Context, projectID, agentID string) (ports.RegistrationMirror, error) {
	return f.saved, nil
}
func (f *fakeRegistrar) UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error {
	f.saved.LastSeenSequence = sequence
	return nil
}

func TestPublishDecomposesAndAppendsSingleEvent(t *testing.T) {
	vectors := &fakeVectors{}
	events := &fakeEventLog{}
	svc := &application.Service{
		Embedder: fakeEmbedder{},
		Vectors:  vectors,
		Events:   events,
	}

	result, err := svc.Publish(context.Background(), entities.PublishRequest{
		ProjectID: "p", DataKey: "users", Format: entities.FormatJSON,
		Raw: []byte(`[{"id":1},{"id":2}]`),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(result.NodeKeys) != 2 {
		t.Fatalf("expected 2 node keys, got %+v", result.NodeKeys)
	}
	if vectors.upserts != 2 {
		t.Fatalf("expected 2 upserts, got %d", vectors.upserts)
	}
	if result.Sequence != 1 {
		t.Fatalf("expected single event appended with sequence 1, got %d", result.Sequence)
	}
}

func TestPublishNotifiesWithTheAppendedSequence(t *testing.T) {
	vectors := &fakeVectors{}
	events := &fakeEventLog{sequence: 4}
	notifier := &fakeNotifier{}
	svc := &application.Service{
		Embedder: fakeEmbedder{},
		Vectors:  vectors,
		Events:   events,
		Notifier: notifier,
	}

	result, err := svc.Publish(context.Background(), entities.PublishRequest{
		ProjectID: "p", DataKey: "users", Format: entities.FormatJSON,
		Raw: []byte(`[{"id":1},{"id":2}]`),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.seqs) != 2 {
		t.Fatalf("expected one notification per node, got %d", len(notifier.seqs))
	}
	for _, seq := range notifier.seqs {
		if seq != result.Sequence {
			t.Fatalf("expected every notification to carry sequence %d, got %d", result.Sequence, seq)
		}
	}
	if result.Sequence == 0 {
		t.Fatal("expected a non-zero sequence from the event log")
	}
}

func TestPublishRejectsEmptyPayload(t *testing.T) {
	svc := &application.Service{Embedder: fakeEmbedder{}, Vectors: &fakeVectors{}, Events: &fakeEventLog{}}
	_, err := svc.Publish(context.Background(), entities.PublishRequest{ProjectID: "p", DataKey: "x", Format: entities.FormatJSON})
	if err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestQueryAppliesCharBudgetKeepingBestPerNeed(t *testing.T) {
	matcher := &fakeMatcher{byIndex: map[int][]ports.MatchMirror{
		0: {
			{NodeKey: "a", Similarity: 0.9, Payload: json.RawMessage(`{"big":"` + string(make([]byte, 200)) + `"}`)},
			{NodeKey: "b", Similarity: 0.8, Payload: json.RawMessage(`{"big":"` + string(make([]byte, 200)) + `"}`)},
		},
	}}
	svc := &application.Service{Matcher: matcher, MaxContextChars: 50}

	results, err := svc.Query(context.Background(), "p", []string{"need"}, 10, 0.5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	update := results["need"]
	if len(update.Matches) == 0 {
		t.Fatal("expected at least the best match to survive truncation")
	}
	if update.Matches[0].NodeKey != "a" {
		t.Fatalf("expected best match 'a' kept first, got %+v", update.Matches)
	}
}

func TestRegisterReturnsSnapshotAndAdvancesSequence(t *testing.T) {
	events := &fakeEventLog{sequence: 7}
	matcher := &fakeMatcher{byIndex: map[int][]ports.MatchMirror{0: {{NodeKey: "n1", Similarity: 0.95}}}}
	registrar := &fakeRegistrar{}
	svc := &application.Service{Events: events, Matcher: matcher, Registrar: registrar}

	saved, snapshot, err := svc.Register(context.Background(), ports.RegistrationMirror{
		AgentID: "a1", ProjectID: "p", Needs: []string{"billing events"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if saved.LastSeenSequence != 7 {
		t.Fatalf("expected last_seen_sequence 7, got %d", saved.LastSeenSequence)
	}
	if len(snapshot["billing events"].Matches) != 1 {
		t.Fatalf("expected snapshot to carry initial match, got %+v", snapshot)
	}
}

func TestPublishReplaysSameIdempotencyKeyWithoutReindexing(t *testing.T) {
	vectors := &fakeVectors{}
	events := &fakeEventLog{}
	svc := &application.Service{
		Embedder:    fakeEmbedder{},
		Vectors:     vectors,
		Events:      events,
		Idempotency: memory.NewIdempotencyStore(),
	}

	req := entities.PublishRequest{
		ProjectID: "p", DataKey: "users", Format: entities.FormatJSON,
		Raw: []byte(`[{"id":1}]`), IdempotencyKey: "req-1",
	}

	first, err := svc.Publish(context.Background(), req)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	second, err := svc.Publish(context.Background(), req)
	if err != nil {
		t.Fatalf("replayed publish: %v", err)
	}
	if second.Sequence != first.Sequence {
		t.Fatalf("expected replayed result to match first call, got %+v vs %+v", second, first)
	}
	if vectors.upserts != 1 {
		t.Fatalf("expected only the first call to upsert, got %d", vectors.upserts)
	}
	if events.sequence != 1 {
		t.Fatalf("expected only one event appended, got %d", events.sequence)
	}
}

func TestPublishRejectsReusedIdempotencyKeyWithDifferentPayload(t *testing.T) {
	svc := &application.Service{
		Embedder:    fakeEmbedder{},
		Vectors:     &fakeVectors{},
		Events:      &fakeEventLog{},
		Idempotency: memory.NewIdempotencyStore(),
	}

	if _, err := svc.Publish(context.Background(), entities.PublishRequest{
		ProjectID: "p", DataKey: "users", Format: entities.FormatJSON,
		Raw: []byte(`[{"id":1}]`), IdempotencyKey: "req-1",
	}); err != nil {
		t.Fatalf("first publish: %v", err)
	}

	_, err := svc.Publish(context.Background(), entities.PublishRequest{
		ProjectID: "p", DataKey: "users", Format: entities.FormatJSON,
		Raw: []byte(`[{"id":2}]`), IdempotencyKey: "req-1",
	})
	if err == nil {
		t.Fatal("expected conflict error for reused key with a different payload")
	}
}

func TestPublishFailsFastWhenUnavailable(t *testing.T) {
	vectors := &fakeVectors{}
	events := &fakeEventLog{}
	svc := &application.Service{
		Embedder:    fakeEmbedder{},
		Vectors:     vectors,
		Events:      events,
		Degradation: fakeGate{mode: "unavailable"},
	}

	_, err := svc.Publish(context.Background(), entities.PublishRequest{
		ProjectID: "p", DataKey: "users", Format: entities.FormatJSON,
		Raw: []byte(`[{"id":1}]`),
	})
	if err == nil {
		t.Fatal("expected publish to fail fast while unavailable")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindUnavailable {
		t.Fatalf("expected a KindUnavailable error, got %v", err)
	}
	if vectors.upserts != 0 {
		t.Fatalf("expected no indexing work while unavailable, got %d upserts", vectors.upserts)
	}
	if events.sequence != 0 {
		t.Fatalf("expected no event appended while unavailable, got sequence %d", events.sequence)
	}
}

func TestPublishDefersFanoutWhileDegraded(t *testing.T) {
	vectors := &fakeVectors{}
	events := &fakeEventLog{}
	notifier := &fakeNotifier{}
	svc := &application.Service{
		Embedder:    fakeEmbedder{},
		Vectors:     vectors,
		Events:      events,
		Notifier:    notifier,
		Degradation: fakeGate{mode: "degraded"},
	}

	result, err := svc.Publish(context.Background(), entities.PublishRequest{
		ProjectID: "p", DataKey: "users", Format: entities.FormatJSON,
		Raw: []byte(`[{"id":1},{"id":2}]`),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Sequence == 0 {
		t.Fatal("expected the event log to still advance while degraded")
	}
	if vectors.upserts != 2 {
		t.Fatalf("expected nodes to still be indexed while degraded, got %d upserts", vectors.upserts)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.deferred) != 2 {
		t.Fatalf("expected every node's fan-out deferred, got %d", len(notifier.deferred))
	}
	if len(notifier.notices) != 0 {
		t.Fatalf("expected no inline notifications while degraded, got %d", len(notifier.notices))
	}
}

func TestRegisterFailsFastWhenUnavailable(t *testing.T) {
	registrar := &fakeRegistrar{}
	svc := &application.Service{
		Events:      &fakeEventLog{},
		Matcher:     &fakeMatcher{},
		Registrar:   registrar,
		Degradation: fakeGate{mode: "unavailable"},
	}

	_, _, err := svc.Register(context.Background(), ports.RegistrationMirror{
		AgentID: "a1", ProjectID: "p",
	})
	if err == nil {
		t.Fatal("expected register to fail fast while unavailable")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindUnavailable {
		t.Fatalf("expected a KindUnavailable error, got %v", err)
	}
}

func TestUnregisterFailsFastWhenUnavailable(t *testing.T) {
	svc := &application.Service{
		Registrar:   &fakeRegistrar{},
		Degradation: fakeGate{mode: "unavailable"},
	}

	err := svc.Unregister(context.Background(), "p", "a1")
	if err == nil {
		t.Fatal("expected unregister to fail fast while unavailable")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindUnavailable {
		t.Fatalf("expected a KindUnavailable error, got %v", err)
	}
}
