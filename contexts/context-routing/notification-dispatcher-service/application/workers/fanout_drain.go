package workers

import (
	"context"
	"log/slog"
	"os"

	"contex/contexts/context-routing/notification-dispatcher-service/ports"
)

// FanoutDrain replays whole-node fan-out candidates that were queued while
// the degradation controller reported DEGRADED, once it reports NORMAL
// again. RunOnce is a no-op whenever the gate still reports anything other
// than NORMAL, so a flapping dependency can't have its queued entries
// replayed into another DEGRADED window.
type FanoutDrain struct {
	Outbox    ports.FanoutOutboxRepository
	Gate      DegradationGate
	Dispatch  func(ctx context.Context, node ports.NodeMirror, sequence int64) error
	BatchSize int
	Logger    *slog.Logger
}

// DegradationGate is satisfied by degradation-controller-service's
// Module.Service.
type DegradationGate interface {
	Mode() string
}

func (d FanoutDrain) RunOnce(ctx context.Context) error {
	if d.Gate != nil && d.Gate.Mode() != "normal" {
		return nil
	}

	logger := d.logger()
	limit := d.BatchSize
	if limit <= 0 {
		limit = 100
	}

	entries, err := d.Outbox.ListAll(ctx, limit)
	if err != nil {
		logger.Error("fanout drain list failed",
			"event", "notification_fanout_drain_list_failed",
			"module", "context-routing/notification-dispatcher-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	drained := 0
	for _, entry := range entries {
		node := ports.NodeMirror{
			ProjectID:   entry.ProjectID,
			NodeKey:     entry.NodeKey,
			DataKey:     entry.DataKey,
			Description: entry.Description,
			Payload:     entry.Payload,
			Embedding:   entry.Embedding,
		}
		if err := d.Dispatch(ctx, node, entry.Sequence); err != nil {
			logger.Warn("fanout drain dispatch failed",
				"event", "notification_fanout_drain_dispatch_failed",
				"module", "context-routing/notification-dispatcher-service",
				"layer", "worker",
				"outbox_id", entry.ID,
				"error", err.Error(),
			)
			continue
		}
		if err := d.Outbox.Remove(ctx, entry.ID); err != nil {
			logger.Warn("fanout drain removal failed",
				"event", "notification_fanout_drain_removal_failed",
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
		logger.Info("fanout drain cycle completed",
			"event", "notification_fanout_drain_completed",
			"module", "context-routing/notification-dispatcher-service",
			"layer", "worker",
			"drained_count", drained,
		)
	}
	return nil
}

func (d FanoutDrain) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
