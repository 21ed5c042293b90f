package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"contex/contexts/context-routing/context-engine-service/application/decompose"
	"contex/contexts/context-routing/context-engine-service/domain/entities"
	domainerrors "contex/contexts/context-routing/context-engine-service/domain/errors"
	"contex/contexts/context-routing/context-engine-service/ports"
	"contex/internal/platform/apperr"
	"contex/internal/platform/embedpool"
)

// Service is the façade spec'd out as the context engine: it sequences the
// other eight services' operations into the three calls a publisher or
// subscriber actually makes — publish, query and register — plus events
// for catch-up reads.
type Service struct {
	Embedder    ports.Embedder
	Vectors     ports.VectorIndex
	Events      ports.EventLog
	Matcher     ports.Matcher
	Registrar   ports.Registrar
	Notifier    ports.Notifier        // optional: nil disables live fan-out
	Idempotency ports.Idempotency     // optional: nil disables publish replay
	EmbedPool   embedpool.Pool        // bounds concurrent embed+index work per publish
	Degradation ports.DegradationGate // optional: nil always behaves as NORMAL

	DefaultTopK      int
	DefaultThreshold float64
	MaxContextChars  int
	HybridSearch     bool
	IdempotencyTTL   time.Duration
	Logger           *slog.Logger
}

const (
	degradationModeDegraded    = "degraded"
	degradationModeUnavailable = "unavailable"
)

// mode reads the degradation controller's last-evaluated state without
// running a new probe cycle. A nil gate (tests, or a deployment that hasn't
// wired one) always behaves as NORMAL.
func (s *Service) mode() string {
	if s.Degradation == nil {
		return ""
	}
	return s.Degradation.Mode()
}

func (s *Service) unavailable() bool { return s.mode() == degradationModeUnavailable }
func (s *Service) degraded() bool    { return s.mode() == degradationModeDegraded }

// Publish normalizes a payload by its declared format into one or more
// context nodes, embeds and indexes each, appends a data_published event,
// and fans the new nodes out to live subscribers.
func (s *Service) Publish(ctx context.Context, req entities.PublishRequest) (entities.PublishResult, error) {
	if req.ProjectID == "" {
		return entities.PublishResult{}, apperr.Wrap(apperr.KindValidation, "publish", domainerrors.ErrInvalidProjectID)
	}
	if req.DataKey == "" {
		return entities.PublishResult{}, apperr.Wrap(apperr.KindValidation, "publish", domainerrors.ErrInvalidDataKey)
	}
	if len(req.Raw) == 0 {
		return entities.PublishResult{}, apperr.Wrap(apperr.KindValidation, "publish", domainerrors.ErrEmptyPayload)
	}
	if s.unavailable() {
		return entities.PublishResult{}, apperr.Wrap(apperr.KindUnavailable, "publish", domainerrors.ErrServiceUnavailable)
	}

	requestHash := hashPublishRequest(req)
	if s.Idempotency != nil && req.IdempotencyKey != "" {
		if record, found, err := s.Idempotency.Get(ctx, req.IdempotencyKey, s.now()); err == nil && found {
			if record.RequestHash != requestHash {
				return entities.PublishResult{}, apperr.Wrap(apperr.KindConflict, "publish idempotency key reused with different payload", domainerrors.ErrIdempotencyConflict)
			}
			var replayed entities.PublishResult
			if err := json.Unmarshal(record.ResponsePayload, &replayed); err == nil {
				return replayed, nil
			}
		}
	}

	drafts, err := decompose.Nodes(req)
	if err != nil {
		return entities.PublishResult{}, apperr.Wrap(apperr.KindValidation, "publish decompose failed", err)
	}

	nodeKeys := make([]string, len(drafts))
	embeddings := make([][]float32, len(drafts))
	var firstErr error
	var mu sync.Mutex

	jobs := make([]func(context.Context) error, len(drafts))
	for i, draft := range drafts {
		i, draft := i, draft
		jobs[i] = func(ctx context.Context) error {
			embedding, err := s.Embedder.Encode(ctx, draft.Description)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = apperr.Wrap(apperr.KindTransient, "publish embed failed", err)
				}
				mu.Unlock()
				return err
			}
			if err := s.Vectors.Upsert(ctx, req.ProjectID, draft.NodeKey, req.DataKey, draft.Description, draft.Payload, embedding); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = apperr.Wrap(apperr.KindTransient, "publish index upsert failed", err)
				}
				mu.Unlock()
				return err
			}
			nodeKeys[i] = draft.NodeKey
			embeddings[i] = embedding
			return nil
		}
	}
	if err := s.EmbedPool.Run(ctx, jobs); err != nil {
		if firstErr != nil {
			return entities.PublishResult{}, firstErr
		}
		return entities.PublishResult{}, apperr.Wrap(apperr.KindTransient, "publish embed/index failed", err)
	}

	eventPayload, err := eventEnvelope(req, nodeKeys)
	if err != nil {
		return entities.PublishResult{}, apperr.Wrap(apperr.KindPermanent, "publish event encode failed", err)
	}
	sequence, err := s.Events.Append(ctx, req.ProjectID, req.TenantID, "data_published", eventPayload)
	if err != nil {
		return entities.PublishResult{}, apperr.Wrap(apperr.KindTransient, "publish event append failed", err)
	}

	// Dispatch only after the event is durably logged and every node is
	// indexed, so every delivered update carries the sequence the publish
	// actually got assigned instead of a placeholder. While the system is
	// DEGRADED the log stays authoritative but fan-out is deferred to the
	// dispatcher's outbox rather than dispatched inline, per spec §4.8.
	if s.Notifier != nil {
		deferFanout := s.degraded()
		for i, draft := range drafts {
			node := ports.NodeMirror{
				ProjectID:   req.ProjectID,
				NodeKey:     draft.NodeKey,
				DataKey:     req.DataKey,
				Description: draft.Description,
				Payload:     draft.Payload,
				Embedding:   embeddings[i],
			}
			if deferFanout {
				_ = s.Notifier.DeferFanout(ctx, node, sequence)
				continue
			}
			_ = s.Notifier.NotifyNewNode(ctx, node, sequence)
		}
	}

	s.logger().Info("data published",
		"event", "context_engine_published",
		"module", "context-routing/context-engine-service",
		"layer", "application",
		"project_id", req.ProjectID,
		"data_key", req.DataKey,
		"node_count", len(drafts),
		"sequence", sequence,
	)

	result := entities.PublishResult{
		ProjectID: req.ProjectID,
		DataKey:   req.DataKey,
		NodeKeys:  nodeKeys,
		Sequence:  sequence,
		CreatedAt: s.now(),
	}

	if s.Idempotency != nil && req.IdempotencyKey != "" {
		if payload, err := json.Marshal(result); err == nil {
			_ = s.Idempotency.Put(ctx, entities.IdempotencyRecord{
				Key:             req.IdempotencyKey,
				RequestHash:     requestHash,
				ResponsePayload: payload,
				ExpiresAt:       s.now().Add(s.idempotencyTTL()),
			})
		}
	}

	return result, nil
}

func hashPublishRequest(req entities.PublishRequest) string {
	sum := sha256.New()
	sum.Write([]byte(req.ProjectID))
	sum.Write([]byte{0})
	sum.Write([]byte(req.DataKey))
	sum.Write([]byte{0})
	sum.Write([]byte(req.Format))
	sum.Write([]byte{0})
	sum.Write(req.Raw)
	sum.Write([]byte{0})
	sum.Write([]byte(req.Description))
	return hex.EncodeToString(sum.Sum(nil))
}

func (s *Service) idempotencyTTL() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 7 * 24 * time.Hour
}

func (s *Service) now() time.Time {
	return time.Now().UTC()
}

// Query runs the semantic matcher over a set of needs and applies the
// context-size truncation budget, keeping the best match per need first
// and filling remaining budget by descending similarity across all needs.
func (s *Service) Query(ctx context.Context, projectID string, needs []string, topK int, threshold float64) (map[string]entities.MatchedUpdate, error) {
	if projectID == "" {
		return nil, apperr.Wrap(apperr.KindValidation, "query", domainerrors.ErrInvalidProjectID)
	}
	if topK <= 0 {
		topK = s.defaultTopK()
	}
	if threshold <= 0 {
		threshold = s.DefaultThreshold
	}

	raw, err := s.Matcher.Query(ctx, projectID, needs, topK, threshold, s.HybridSearch)
	if err != nil {
		return nil, err
	}

	results := make(map[string]entities.MatchedUpdate, len(needs))
	for i, need := range needs {
		matches := make([]entities.QueryMatch, 0, len(raw[i]))
		for _, m := range raw[i] {
			matches = append(matches, entities.QueryMatch{
				NodeKey: m.NodeKey, DataKey: m.DataKey, Description: m.Description,
				Payload: m.Payload, Similarity: m.Similarity, Score: m.Score,
			})
		}
		results[need] = entities.MatchedUpdate{Need: need, Matches: matches}
	}

	if s.MaxContextChars > 0 {
		results = truncateByCharBudget(results, s.MaxContextChars)
	}
	return results, nil
}

// Register persists a subscriber's interest and hands back the initial
// matched snapshot it should seed its own state with.
func (s *Service) Register(ctx context.Context, reg ports.RegistrationMirror) (ports.RegistrationMirror, map[string]entities.MatchedUpdate, error) {
	if reg.AgentID == "" {
		return ports.RegistrationMirror{}, nil, apperr.Wrap(apperr.KindValidation, "register", domainerrors.ErrInvalidAgentID)
	}
	if reg.ProjectID == "" {
		return ports.RegistrationMirror{}, nil, apperr.Wrap(apperr.KindValidation, "register", domainerrors.ErrInvalidProjectID)
	}
	if s.unavailable() {
		return ports.RegistrationMirror{}, nil, apperr.Wrap(apperr.KindUnavailable, "register", domainerrors.ErrServiceUnavailable)
	}

	saved, err := s.Registrar.Register(ctx, reg)
	if err != nil {
		return ports.RegistrationMirror{}, nil, err
	}

	snapshot, err := s.Query(ctx, reg.ProjectID, reg.Needs, s.defaultTopK(), s.DefaultThreshold)
	if err != nil {
		return saved, nil, err
	}

	length, err := s.Events.Length(ctx, reg.ProjectID)
	if err == nil {
		_ = s.Registrar.UpdateLastSeenSequence(ctx, reg.ProjectID, reg.AgentID, length)
		saved.LastSeenSequence = length
	}

	return saved, snapshot, nil
}

func (s *Service) Unregister(ctx context.Context, projectID, agentID string) error {
	if s.unavailable() {
		return apperr.Wrap(apperr.KindUnavailable, "unregister", domainerrors.ErrServiceUnavailable)
	}
	return s.Registrar.Unregister(ctx, projectID, agentID)
}

// ReadEvents delegates to the event log's catch-up read.
func (s *Service) ReadEvents(ctx context.Context, projectID string, since int64, limit int) ([]ports.EventMirror, error) {
	return s.Events.Read(ctx, projectID, since, limit)
}

func (s *Service) defaultTopK() int {
	if s.DefaultTopK > 0 {
		return s.DefaultTopK
	}
	return 10
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func eventEnvelope(req entities.PublishRequest, nodeKeys []string) ([]byte, error) {
	payload := struct {
		DataKey  string   `json:"data_key"`
		Format   string   `json:"format"`
		NodeKeys []string `json:"node_keys"`
	}{DataKey: req.DataKey, Format: string(req.Format), NodeKeys: nodeKeys}
	return json.Marshal(payload)
}

// truncateByCharBudget implements the two-phase budget allocation: first
// reserve each need's single best match, then fill what's left with the
// remaining candidates ordered by descending similarity regardless of
// which need they belong to.
func truncateByCharBudget(results map[string]entities.MatchedUpdate, maxChars int) map[string]entities.MatchedUpdate {
	totalChars := 0
	for _, update := range results {
		for _, m := range update.Matches {
			totalChars += len(m.Payload)
		}
	}
	if totalChars <= maxChars {
		return results
	}

	type candidate struct {
		need  string
		match entities.QueryMatch
	}

	out := make(map[string]entities.MatchedUpdate, len(results))
	budgetUsed := 0
	var rest []candidate

	needsOrder := make([]string, 0, len(results))
	for need := range results {
		needsOrder = append(needsOrder, need)
	}
	sort.Strings(needsOrder)

	for _, need := range needsOrder {
		update := results[need]
		out[need] = entities.MatchedUpdate{Need: need}
		if len(update.Matches) == 0 {
			continue
		}
		best := update.Matches[0]
		entry := out[need]
		entry.Matches = append(entry.Matches, best)
		out[need] = entry
		budgetUsed += len(best.Payload)
		for _, m := range update.Matches[1:] {
			rest = append(rest, candidate{need: need, match: m})
		}
	}

	sort.Slice(rest, func(i, j int) bool { return rest[i].match.Similarity > rest[j].match.Similarity })

	remaining := maxChars - budgetUsed
	for _, c := range rest {
		cost := len(c.match.Payload)
		if cost > remaining {
			continue
		}
		entry := out[c.need]
		entry.Matches = append(entry.Matches, c.match)
		out[c.need] = entry
		remaining -= cost
		if remaining <= 0 {
			break
		}
	}
	return out
}
