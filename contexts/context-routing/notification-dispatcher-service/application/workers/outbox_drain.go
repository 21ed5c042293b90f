package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"contex/contexts/context-routing/notification-dispatcher-service/domain/entities"
	"contex/contexts/context-routing/notification-dispatcher-service/ports"
)

// OutboxDrain replays webhook deliveries queued after the destination's
// circuit opened, once the circuit has had a chance to recover.
type OutboxDrain struct {
	Outbox    ports.OutboxRepository
	Webhooks  ports.WebhookSender
	Circuits  ports.CircuitStore
	BatchSize int
	Clock     func() time.Time
	Logger    *slog.Logger
}

func (d OutboxDrain) RunOnce(ctx context.Context) error {
	logger := d.logger()
	limit := d.BatchSize
	if limit <= 0 {
		limit = 100
	}
	now := time.Now().UTC()
	if d.Clock != nil {
		now = d.Clock()
	}

	due, err := d.Outbox.ListDue(ctx, now, limit)
	if err != nil {
		logger.Error("outbox drain list failed",
			"event", "notification_outbox_drain_list_failed",
			"module", "context-routing/notification-dispatcher-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(due) == 0 {
		return nil
	}

	drained := 0
	for _, entry := range due {
		if d.Circuits.Get(entry.URL).State == entities.CircuitOpen {
			continue
		}
		if err := d.Webhooks.Send(ctx, entry.URL, entry.HMACSecret, entry.Update); err != nil {
			d.Circuits.RecordFailure(entry.URL, now)
			logger.Warn("outbox drain delivery failed",
				"event", "notification_outbox_drain_delivery_failed",
				"module", "context-routing/notification-dispatcher-service",
				"layer", "worker",
				"outbox_id", entry.ID,
				"error", err.Error(),
			)
			continue
		}
		d.Circuits.RecordSuccess(entry.URL, now)
		if err := d.Outbox.Remove(ctx, entry.ID); err != nil {
			logger.Warn("outbox drain removal failed",
				"event", "notification_outbox_drain_removal_failed",
				"module", "context-routing/notification-dispatcher-service",
				"layer", "worker",
				"outbox_id", entry.ID,
				"error", err.Error(),
			)
			continue
		}
		drained++
	}

	if drained > 0 {
		logger.Info("outbox drain cycle completed",
			"event", "notification_outbox_drain_completed",
			"module", "context-routing/notification-dispatcher-service",
			"layer", "worker",
			"drained_count", drained,
		)
	}
	return nil
}

func (d OutboxDrain) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
