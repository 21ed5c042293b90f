package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contex/contexts/context-routing/context-engine-service/application"
	"contex/contexts/context-routing/context-engine-service/domain/entities"
	"contex/contexts/context-routing/context-engine-service/ports"
	httptransport "contex/contexts/context-routing/context-engine-service/transport/http"
)

var tracer = otel.Tracer("contex/context-engine-service")

// Handler adapts the context engine's façade to the wire DTOs. It carries
// no HTTP framework dependency itself; internal/platform/httpserver wires
// it to net/http routes and handles the authn/rate-limiting edge concerns
// the routing engine itself stays agnostic to.
type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

func (h Handler) PublishHandler(ctx context.Context, idempotencyKey string, req httptransport.PublishRequest) (httptransport.PublishResponse, error) {
	ctx, span := tracer.Start(ctx, "context_engine.publish",
		traceAttrs(req.ProjectID, req.DataKey)...)
	defer span.End()

	raw, err := encodeRaw(entities.DataFormat(req.Format), req.Data)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return httptransport.PublishResponse{}, err
	}

	result, err := h.Service.Publish(ctx, entities.PublishRequest{
		ProjectID:      req.ProjectID,
		TenantID:       req.TenantID,
		DataKey:        req.DataKey,
		Format:         entities.DataFormat(req.Format),
		Raw:            raw,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return httptransport.PublishResponse{}, err
	}
	span.SetAttributes(attribute.Int64("contex.sequence", result.Sequence))
	return httptransport.PublishResponse{
		ProjectID: result.ProjectID,
		DataKey:   result.DataKey,
		NodeKeys:  result.NodeKeys,
		Sequence:  result.Sequence,
	}, nil
}

func (h Handler) QueryHandler(ctx context.Context, req httptransport.QueryRequest) (httptransport.QueryResponse, error) {
	ctx, span := tracer.Start(ctx, "context_engine.query", traceAttrs(req.ProjectID, "")...)
	defer span.End()

	results, err := h.Service.Query(ctx, req.ProjectID, req.Needs, req.TopK, req.Threshold)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return httptransport.QueryResponse{}, err
	}
	return httptransport.QueryResponse{Matches: toMatchDTOs(results)}, nil
}

func (h Handler) RegisterHandler(ctx context.Context, req httptransport.RegisterRequest) (httptransport.RegisterResponse, error) {
	ctx, span := tracer.Start(ctx, "context_engine.register", traceAttrs(req.ProjectID, "")...)
	defer span.End()

	saved, snapshot, err := h.Service.Register(ctx, ports.RegistrationMirror{
		AgentID:   req.AgentID,
		ProjectID: req.ProjectID,
		Needs:     req.Needs,
		Delivery: ports.DeliveryMirror{
			Mode:       req.Delivery.Mode,
			Channel:    req.Delivery.Channel,
			URL:        req.Delivery.URL,
			HMACSecret: req.Delivery.HMACSecret,
		},
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return httptransport.RegisterResponse{}, err
	}
	return httptransport.RegisterResponse{
		AgentID:          saved.AgentID,
		ProjectID:        saved.ProjectID,
		LastSeenSequence: saved.LastSeenSequence,
		InitialContext:   toMatchDTOs(snapshot),
	}, nil
}

func (h Handler) UnregisterHandler(ctx context.Context, projectID, agentID string) error {
	return h.Service.Unregister(ctx, projectID, agentID)
}

func (h Handler) EventsHandler(ctx context.Context, projectID string, since int64, limit int) (httptransport.EventsResponse, error) {
	events, err := h.Service.ReadEvents(ctx, projectID, since, limit)
	if err != nil {
		return httptransport.EventsResponse{}, err
	}
	resp := httptransport.EventsResponse{Events: make([]httptransport.EventDTO, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, httptransport.EventDTO{
			Sequence:  e.Sequence,
			EventType: e.EventType,
			Payload:   json.RawMessage(e.Payload),
			CreatedAt: e.CreatedAtUnix,
		})
	}
	return resp, nil
}

func traceAttrs(projectID, dataKey string) []trace.SpanStartOption {
	attrs := []attribute.KeyValue{attribute.String("contex.project_id", projectID)}
	if dataKey != "" {
		attrs = append(attrs, attribute.String("contex.data_key", dataKey))
	}
	return []trace.SpanStartOption{trace.WithAttributes(attrs...)}
}

func toMatchDTOs(results map[string]entities.MatchedUpdate) map[string][]httptransport.QueryMatchDTO {
	out := make(map[string][]httptransport.QueryMatchDTO, len(results))
	for need, update := range results {
		matches := make([]httptransport.QueryMatchDTO, 0, len(update.Matches))
		for _, m := range update.Matches {
			matches = append(matches, httptransport.QueryMatchDTO{
				NodeKey:     m.NodeKey,
				DataKey:     m.DataKey,
				Description: m.Description,
				Payload:     json.RawMessage(m.Payload),
				Similarity:  m.Similarity,
				Score:       m.Score,
			})
		}
		out[need] = matches
	}
	return out
}

// encodeRaw turns the decoded wire payload back into the declared format's
// raw bytes: JSON re-marshals the decoded value; every other declared
// format arrives as a pre-encoded string in the "data" field.
func encodeRaw(format entities.DataFormat, data any) ([]byte, error) {
	if format == entities.FormatJSON || format == "" {
		return json.Marshal(data)
	}
	if text, ok := data.(string); ok {
		return []byte(text), nil
	}
	return json.Marshal(data)
}
