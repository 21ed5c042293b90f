package bootstrap

// This file adapts each context-routing service's real concrete
// application.Service to the narrow, mirror-typed port interfaces another
// service declares for it. Every service owns its own mirror types so no
// two services import each other directly; the conversion has to happen
// somewhere, and the composition root is the one place allowed to see both
// sides.

import (
	"context"
	"encoding/json"

	eventlogapp "contex/contexts/context-routing/event-log-service/application"

	notifapp "contex/contexts/context-routing/notification-dispatcher-service/application"
	notifports "contex/contexts/context-routing/notification-dispatcher-service/ports"

	matcherapp "contex/contexts/context-routing/semantic-matcher-service/application"
	matcherports "contex/contexts/context-routing/semantic-matcher-service/ports"

	registryapp "contex/contexts/context-routing/subscription-registry-service/application"
	registryentities "contex/contexts/context-routing/subscription-registry-service/domain/entities"

	vectorapp "contex/contexts/context-routing/vector-index-service/application"
	vectorentities "contex/contexts/context-routing/vector-index-service/domain/entities"

	keywordapp "contex/contexts/context-routing/keyword-index-service/application"

	engineports "contex/contexts/context-routing/context-engine-service/ports"
)

// vectorSearchShim satisfies semantic-matcher-service's ports.VectorSearcher
// by wrapping vector-index-service's real Service.
type vectorSearchShim struct {
	svc *vectorapp.Service
}

func (s vectorSearchShim) Search(ctx context.Context, projectID string, queryEmbedding []float32, topK int, threshold float64) ([]matcherports.VectorMatch, error) {
	matches, err := s.svc.Search(ctx, projectID, queryEmbedding, topK, threshold)
	if err != nil {
		return nil, err
	}
	out := make([]matcherports.VectorMatch, len(matches))
	for i, m := range matches {
		out[i] = matcherports.VectorMatch{
			NodeKey:     m.NodeKey,
			DataKey:     m.DataKey,
			Description: m.Description,
			Payload:     m.Payload,
			Similarity:  m.Similarity,
		}
	}
	return out, nil
}

// keywordSearchShim satisfies semantic-matcher-service's ports.KeywordSearcher.
type keywordSearchShim struct {
	svc *keywordapp.Service
}

func (s keywordSearchShim) BM25Search(ctx context.Context, projectID, query string, topK int) ([]matcherports.KeywordMatch, error) {
	matches, err := s.svc.BM25Search(ctx, projectID, query, topK)
	if err != nil {
		return nil, err
	}
	out := make([]matcherports.KeywordMatch, len(matches))
	for i, m := range matches {
		out[i] = matcherports.KeywordMatch{NodeKey: m.NodeKey, Score: m.Score}
	}
	return out, nil
}

// registryForDispatchShim satisfies notification-dispatcher-service's
// ports.Registry by wrapping subscription-registry-service's real Service.
type registryForDispatchShim struct {
	svc *registryapp.Service
}

func (s registryForDispatchShim) List(ctx context.Context, projectID string) ([]notifports.RegistrationMirror, error) {
	regs, err := s.svc.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return toNotifRegistrations(regs), nil
}

func (s registryForDispatchShim) UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error {
	return s.svc.UpdateLastSeenSequence(ctx, projectID, agentID, sequence)
}

func toNotifRegistrations(regs []registryentities.AgentRegistration) []notifports.RegistrationMirror {
	out := make([]notifports.RegistrationMirror, len(regs))
	for i, r := range regs {
		out[i] = notifports.RegistrationMirror{
			AgentID:   r.AgentID,
			ProjectID: r.ProjectID,
			Needs:     r.Needs,
			Delivery: notifports.DeliveryMirror{
				Mode:       string(r.Delivery.Mode),
				Channel:    r.Delivery.Channel,
				URL:        r.Delivery.URL,
				HMACSecret: r.Delivery.HMACSecret,
			},
			LastSeenSequence: r.LastSeenSequence,
		}
	}
	return out
}

// vectorIndexForEngineShim satisfies context-engine-service's
// ports.VectorIndex by wrapping vector-index-service's real Service.
type vectorIndexForEngineShim struct {
	svc *vectorapp.Service
}

func (s vectorIndexForEngineShim) Upsert(ctx context.Context, projectID, nodeKey, dataKey, description string, payload json.RawMessage, embedding []float32) error {
	return s.svc.Upsert(ctx, vectorentities.ContextNode{
		ProjectID:   projectID,
		NodeKey:     nodeKey,
		DataKey:     dataKey,
		Description: description,
		Payload:     payload,
		Embedding:   embedding,
	})
}

func (s vectorIndexForEngineShim) Delete(ctx context.Context, projectID, nodeKey string) error {
	return s.svc.Delete(ctx, projectID, nodeKey)
}

// eventLogForEngineShim satisfies context-engine-service's ports.EventLog.
type eventLogForEngineShim struct {
	svc *eventlogapp.Service
}

func (s eventLogForEngineShim) Append(ctx context.Context, projectID, tenantID, eventType string, payload json.RawMessage) (int64, error) {
	event, err := s.svc.Append(ctx, projectID, tenantID, eventType, payload)
	if err != nil {
		return 0, err
	}
	return event.Sequence, nil
}

func (s eventLogForEngineShim) Read(ctx context.Context, projectID string, since int64, limit int) ([]engineports.EventMirror, error) {
	events, err := s.svc.Read(ctx, projectID, since, limit)
	if err != nil {
		return nil, err
	}
	out := make([]engineports.EventMirror, len(events))
	for i, e := range events {
		out[i] = engineports.EventMirror{
			Sequence:      e.Sequence,
			EventType:     e.EventType,
			Payload:       e.Payload,
			CreatedAtUnix: e.CreatedAt.Unix(),
		}
	}
	return out, nil
}

func (s eventLogForEngineShim) Length(ctx context.Context, projectID string) (int64, error) {
	return s.svc.Length(ctx, projectID)
}

// matcherForEngineShim satisfies context-engine-service's ports.Matcher.
type matcherForEngineShim struct {
	svc *matcherapp.Service
}

func (s matcherForEngineShim) Query(ctx context.Context, projectID string, queries []string, topK int, threshold float64, hybrid bool) (map[int][]engineports.MatchMirror, error) {
	raw, err := s.svc.Query(ctx, projectID, queries, topK, threshold, hybrid)
	if err != nil {
		return nil, err
	}
	out := make(map[int][]engineports.MatchMirror, len(raw))
	for i, matches := range raw {
		converted := make([]engineports.MatchMirror, len(matches))
		for j, m := range matches {
			converted[j] = engineports.MatchMirror{
				NodeKey:     m.NodeKey,
				DataKey:     m.DataKey,
				Description: m.Description,
				Payload:     m.Payload,
				Similarity:  m.Similarity,
				Score:       m.Score,
			}
		}
		out[i] = converted
	}
	return out, nil
}

// registrarForEngineShim satisfies context-engine-service's ports.Registrar.
type registrarForEngineShim struct {
	svc *registryapp.Service
}

func (s registrarForEngineShim) Register(ctx context.Context, reg engineports.RegistrationMirror) (engineports.RegistrationMirror, error) {
	saved, err := s.svc.Register(ctx, registryentities.AgentRegistration{
		AgentID:   reg.AgentID,
		ProjectID: reg.ProjectID,
		Needs:     reg.Needs,
		Delivery: registryentities.Delivery{
			Mode:       registryentities.DeliveryMode(reg.Delivery.Mode),
			Channel:    reg.Delivery.Channel,
			URL:        reg.Delivery.URL,
			HMACSecret: reg.Delivery.HMACSecret,
		},
		LastSeenSequence: reg.LastSeenSequence,
	})
	if err != nil {
		return engineports.RegistrationMirror{}, err
	}
	return toEngineRegistration(saved), nil
}

func (s registrarForEngineShim) Unregister(ctx context.Context, projectID, agentID string) error {
	return s.svc.Unregister(ctx, projectID, agentID)
}

func (s registrarForEngineShim) Get(ctx context.Context, projectID, agentID string) (engineports.RegistrationMirror, error) {
	reg, err := s.svc.Get(ctx, projectID, agentID)
	if err != nil {
		return engineports.RegistrationMirror{}, err
	}
	return toEngineRegistration(reg), nil
}

func (s registrarForEngineShim) UpdateLastSeenSequence(ctx context.Context, projectID, agentID string, sequence int64) error {
	return s.svc.UpdateLastSeenSequence(ctx, projectID, agentID, sequence)
}

func toEngineRegistration(r registryentities.AgentRegistration) engineports.RegistrationMirror {
	return engineports.RegistrationMirror{
		AgentID:   r.AgentID,
		ProjectID: r.ProjectID,
		Needs:     r.Needs,
		Delivery: engineports.DeliveryMirror{
			Mode:       string(r.Delivery.Mode),
			Channel:    r.Delivery.Channel,
			URL:        r.Delivery.URL,
			HMACSecret: r.Delivery.HMACSecret,
		},
		LastSeenSequence: r.LastSeenSequence,
	}
}

// notifierForEngineShim satisfies context-engine-service's ports.Notifier by
// wrapping notification-dispatcher-service's real Service.
type notifierForEngineShim struct {
	svc *notifapp.Service
}

func (s notifierForEngineShim) NotifyNewNode(ctx context.Context, node engineports.NodeMirror, sequence int64) error {
	return s.svc.NotifyNewNode(ctx, toNotifNodeMirror(node), sequence)
}

func (s notifierForEngineShim) DeferFanout(ctx context.Context, node engineports.NodeMirror, sequence int64) error {
	return s.svc.DeferFanout(ctx, toNotifNodeMirror(node), sequence)
}

func toNotifNodeMirror(node engineports.NodeMirror) notifports.NodeMirror {
	return notifports.NodeMirror{
		ProjectID:   node.ProjectID,
		NodeKey:     node.NodeKey,
		DataKey:     node.DataKey,
		Description: node.Description,
		Payload:     node.Payload,
		Embedding:   node.Embedding,
	}
}
