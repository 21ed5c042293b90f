package notificationdispatcherservice

import (
	"log/slog"
	"os"
	"time"

	"contex/contexts/context-routing/notification-dispatcher-service/adapters/memory"
	"contex/contexts/context-routing/notification-dispatcher-service/adapters/webhook"
	"contex/contexts/context-routing/notification-dispatcher-service/application"
	"contex/contexts/context-routing/notification-dispatcher-service/application/workers"
	"contex/contexts/context-routing/notification-dispatcher-service/ports"
)

type Module struct {
	Service     *application.Service
	OutboxDrain workers.OutboxDrain
	FanoutDrain workers.FanoutDrain
}

type Dependencies struct {
	Registry              ports.Registry
	Embedder              ports.Embedder
	Pub                   ports.Publisher
	Webhooks              ports.WebhookSender
	Circuits              ports.CircuitStore
	Outbox                ports.OutboxRepository
	FanoutOutbox          ports.FanoutOutboxRepository
	Threshold             float64
	MaxAttempts           int
	DeliveryQueueCapacity int
	Clock                 func() time.Time
	Logger                *slog.Logger
}

func NewModule(deps Dependencies) *Module {
	logger := resolveLogger(deps.Logger)
	svc := &application.Service{
		Registry:              deps.Registry,
		Embedder:              deps.Embedder,
		Pub:                   deps.Pub,
		Webhooks:              deps.Webhooks,
		Circuits:              deps.Circuits,
		Outbox:                deps.Outbox,
		FanoutOutbox:          deps.FanoutOutbox,
		Threshold:             deps.Threshold,
		MaxAttempts:           deps.MaxAttempts,
		DeliveryQueueCapacity: deps.DeliveryQueueCapacity,
		Clock:                 deps.Clock,
		Logger:                logger,
	}
	return &Module{
		Service: svc,
		OutboxDrain: workers.OutboxDrain{
			Outbox:   deps.Outbox,
			Webhooks: deps.Webhooks,
			Circuits: deps.Circuits,
			Clock:    deps.Clock,
			Logger:   logger,
		},
		// Gate is nil here: the degradation controller is wired by the
		// composition root after this module is built. See bootstrap.go.
		FanoutDrain: workers.FanoutDrain{
			Outbox:   deps.FanoutOutbox,
			Dispatch: svc.NotifyNewNode,
			Logger:   logger,
		},
	}
}

// NewInMemoryModule wires every adapter to its in-memory/in-process
// counterpart; Registry and Pub still need to be supplied by the caller
// since they come from other modules' composition.
func NewInMemoryModule(registry ports.Registry, embedder ports.Embedder, pub ports.Publisher) *Module {
	return NewModule(Dependencies{
		Registry:     registry,
		Embedder:     embedder,
		Pub:          pub,
		Webhooks:     webhook.NewSender(),
		Circuits:     memory.NewCircuitStore(5, 60*time.Second),
		Outbox:       memory.NewOutbox(),
		FanoutOutbox: memory.NewFanoutOutbox(),
	})
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
