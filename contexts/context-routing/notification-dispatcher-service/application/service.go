package application

import (
	"context"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/oklog/ulid/v2"

	"contex/contexts/context-routing/notification-dispatcher-service/domain/entities"
	domainerrors "contex/contexts/context-routing/notification-dispatcher-service/domain/errors"
	"contex/contexts/context-routing/notification-dispatcher-service/ports"
	"contex/internal/platform/apperr"
)

const (
	defaultWebhookMaxAttempts = 5
	circuitFailureThreshold   = 5
	circuitCooldown           = 60 * time.Second
)

// Service fans a newly-published node out to every agent registered on its
// project, scoring the node against each of the agent's declared needs and
// delivering a matched update wherever the single-node similarity clears
// the dispatcher's configured Threshold.
type Service struct {
	Registry     ports.Registry
	Embedder     ports.Embedder
	Pub          ports.Publisher
	Webhooks     ports.WebhookSender
	Circuits     ports.CircuitStore
	Outbox       ports.OutboxRepository
	FanoutOutbox ports.FanoutOutboxRepository // optional: nil falls back to dispatching inline

	Threshold             float64
	MaxAttempts           int
	DeliveryQueueCapacity int
	Clock                 func() time.Time
	Logger                *slog.Logger

	queueOnce sync.Once
	deliverQ  *deliveryQueue
}

// NotifyNewNode runs the fan-out for one freshly published node: it scores
// the node against every registered agent's needs and enqueues a delivery
// job per match on that agent's serialized queue. Enqueuing, not delivering,
// is what NotifyNewNode waits on, so a slow or circuit-broken webhook
// destination never blocks the publish path that triggered the fan-out.
func (s *Service) NotifyNewNode(ctx context.Context, node ports.NodeMirror, sequence int64) error {
	regs, err := s.Registry.List(ctx, node.ProjectID)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "list registrations failed", err)
	}

	for _, reg := range regs {
		reg := reg
		for needIndex, need := range reg.Needs {
			needVector, err := s.Embedder.Encode(ctx, need)
			if err != nil {
				s.logger().Warn("need embed failed during fan-out",
					"event", "notification_fanout_embed_failed",
					"module", "context-routing/notification-dispatcher-service",
					"layer", "application",
					"agent_id", reg.AgentID,
					"error", err.Error(),
				)
				continue
			}

			similarity := cosineSimilarity(needVector, node.Embedding)
			if similarity < s.threshold() {
				continue
			}

			update := entities.Update{
				Type:       "data_update",
				AgentID:    reg.AgentID,
				ProjectID:  reg.ProjectID,
				NeedIndex:  needIndex,
				Need:       need,
				NodeKey:    node.NodeKey,
				DataKey:    node.DataKey,
				Similarity: similarity,
				Payload:    node.Payload,
				Sequence:   sequence,
				OccurredAt: s.now(),
			}

			s.queue().Enqueue(ctx, reg.AgentID, func(ctx context.Context) {
				s.deliverAndAdvance(ctx, reg, update, sequence)
			})
		}
	}
	return nil
}

// DeferFanout queues a node's fan-out instead of scoring and delivering it
// inline, for use while the degradation controller reports DEGRADED: the
// log stays authoritative and the queued entry is replayed by a drain
// worker once the controller reports recovery. With no FanoutOutbox wired
// it falls back to dispatching inline rather than silently dropping a node.
func (s *Service) DeferFanout(ctx context.Context, node ports.NodeMirror, sequence int64) error {
	if s.FanoutOutbox == nil {
		return s.NotifyNewNode(ctx, node, sequence)
	}
	return s.FanoutOutbox.Enqueue(ctx, entities.FanoutOutboxEntry{
		ID:          ulid.Make().String(),
		ProjectID:   node.ProjectID,
		NodeKey:     node.NodeKey,
		DataKey:     node.DataKey,
		Description: node.Description,
		Payload:     node.Payload,
		Embedding:   node.Embedding,
		Sequence:    sequence,
		CreatedAt:   s.now(),
	})
}

// deliverAndAdvance runs on an agent's drain goroutine: deliver, then
// advance last_seen_sequence only once delivery succeeds, so a failed
// delivery doesn't make the agent skip past an update it never received.
func (s *Service) deliverAndAdvance(ctx context.Context, reg ports.RegistrationMirror, update entities.Update, sequence int64) {
	if err := s.deliver(ctx, reg, update); err != nil {
		s.logger().Error("delivery failed",
			"event", "notification_delivery_failed",
			"module", "context-routing/notification-dispatcher-service",
			"layer", "application",
			"agent_id", reg.AgentID,
			"error", err.Error(),
		)
		return
	}

	if err := s.Registry.UpdateLastSeenSequence(ctx, reg.ProjectID, reg.AgentID, sequence); err != nil {
		s.logger().Warn("last seen sequence update failed",
			"event", "notification_sequence_update_failed",
			"module", "context-routing/notification-dispatcher-service",
			"layer", "application",
			"agent_id", reg.AgentID,
			"error", err.Error(),
		)
	}
}

func (s *Service) queue() *deliveryQueue {
	s.queueOnce.Do(func() {
		s.deliverQ = newDeliveryQueue(s.DeliveryQueueCapacity, s.logger())
	})
	return s.deliverQ
}

func (s *Service) deliver(ctx context.Context, reg ports.RegistrationMirror, update entities.Update) error {
	switch reg.Delivery.Mode {
	case "pubsub":
		if reg.Delivery.Channel == "" {
			return apperr.Wrap(apperr.KindValidation, "deliver", domainerrors.ErrNoDestination)
		}
		return s.Pub.Publish(ctx, reg.Delivery.Channel, update)
	case "webhook":
		if reg.Delivery.URL == "" {
			return apperr.Wrap(apperr.KindValidation, "deliver", domainerrors.ErrNoDestination)
		}
		return s.deliverWebhook(ctx, reg.Delivery.URL, reg.Delivery.HMACSecret, update)
	default:
		return apperr.Wrap(apperr.KindValidation, "deliver", domainerrors.ErrNoDestination)
	}
}

// deliverWebhook retries a single destination with exponential backoff
// (base 1s, factor 2, ±20% jitter, capped at 60s, up to MaxAttempts),
// consulting the circuit breaker before every attempt and queuing to the
// outbox once attempts are exhausted while the circuit is open.
func (s *Service) deliverWebhook(ctx context.Context, url, hmacSecret string, update entities.Update) error {
	operation := func() (struct{}, error) {
		now := s.now()
		circuit := s.Circuits.Get(url)
		if circuit.State == entities.CircuitOpen {
			return struct{}{}, backoff.Permanent(apperr.Wrap(apperr.KindDelivery, "circuit open", domainerrors.ErrCircuitOpen))
		}

		err := s.Webhooks.Send(ctx, url, hmacSecret, update)
		if err == nil {
			s.Circuits.RecordSuccess(url, now)
			return struct{}{}, nil
		}

		s.Circuits.RecordFailure(url, now)
		if !apperr.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 60 * time.Second
	b.RandomizationFactor = 0.2

	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(b), backoff.WithMaxTries(uint(s.maxAttempts())))
	if err != nil && s.Outbox != nil && s.Circuits.Get(url).State == entities.CircuitOpen {
		_ = s.Outbox.Enqueue(ctx, entities.OutboxEntry{
			ID:          ulid.Make().String(),
			AgentID:     update.AgentID,
			ProjectID:   update.ProjectID,
			URL:         url,
			HMACSecret:  hmacSecret,
			Update:      update,
			NextAttempt: s.now().Add(circuitCooldown),
			CreatedAt:   s.now(),
		})
	}
	return err
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (s *Service) threshold() float64 {
	if s.Threshold > 0 {
		return s.Threshold
	}
	return 0.7
}

func (s *Service) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return defaultWebhookMaxAttempts
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
