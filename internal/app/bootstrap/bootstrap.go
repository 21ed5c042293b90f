package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	contextengineservice "contex/contexts/context-routing/context-engine-service"
	httpadapter "contex/contexts/context-routing/context-engine-service/adapters/http"
	degradationcontrollerservice "contex/contexts/context-routing/degradation-controller-service"
	probeadapter "contex/contexts/context-routing/degradation-controller-service/adapters/probe"
	degradationports "contex/contexts/context-routing/degradation-controller-service/ports"
	embeddingservice "contex/contexts/context-routing/embedding-service"
	embeddingmemory "contex/contexts/context-routing/embedding-service/adapters/memory"
	eventlogservice "contex/contexts/context-routing/event-log-service"
	eventlogmemory "contex/contexts/context-routing/event-log-service/adapters/memory"
	eventlogpostgres "contex/contexts/context-routing/event-log-service/adapters/postgres"
	eventlogsqlite "contex/contexts/context-routing/event-log-service/adapters/sqlite"
	keywordindexservice "contex/contexts/context-routing/keyword-index-service"
	keywordmemory "contex/contexts/context-routing/keyword-index-service/adapters/memory"
	keywordopensearch "contex/contexts/context-routing/keyword-index-service/adapters/opensearch"
	notificationdispatcherservice "contex/contexts/context-routing/notification-dispatcher-service"
	notifpubsub "contex/contexts/context-routing/notification-dispatcher-service/adapters/pubsub"
	semanticmatcherservice "contex/contexts/context-routing/semantic-matcher-service"
	matcherports "contex/contexts/context-routing/semantic-matcher-service/ports"
	subscriptionregistryservice "contex/contexts/context-routing/subscription-registry-service"
	subscriptionpostgres "contex/contexts/context-routing/subscription-registry-service/adapters/postgres"
	vectorindexservice "contex/contexts/context-routing/vector-index-service"
	vectormemory "contex/contexts/context-routing/vector-index-service/adapters/memory"
	vectorpostgres "contex/contexts/context-routing/vector-index-service/adapters/postgres"

	"contex/internal/platform/config"
	"contex/internal/platform/db"
	"contex/internal/platform/httpserver"
	"contex/internal/platform/messaging"
	"contex/internal/platform/tracing"
	"contex/internal/shared/events"
)

// Package bootstrap is the composition root for the routing engine. Every
// service wires its own mirror-typed ports; the type-converting shims that
// bridge one service's concrete Service to another's mirror interface live
// in shims.go, since nothing inside contexts/ is allowed to see across the
// module boundary this way.

// services bundles every context-routing module the two process entry
// points share, plus the backing stores that need closing on shutdown.
type services struct {
	embedding    embeddingservice.Module
	eventLog     eventlogservice.Module
	vectorIndex  vectorindexservice.Module
	keywordIndex keywordindexservice.Module
	matcher      *semanticmatcherservice.Module
	registry     *subscriptionregistryservice.Module
	dispatcher   *notificationdispatcherservice.Module
	degradation  *degradationcontrollerservice.Module
	engine       *contextengineservice.Module

	transport notifpubsub.Transport

	postgres *db.Postgres
	sqlite   *db.SQLite
}

func buildServices(cfg config.Config, logger *slog.Logger) (*services, error) {
	s := &services{}

	embeddingCache, err := embeddingmemory.NewLRUCache(cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build embedding cache: %w", err)
	}
	s.embedding = embeddingservice.NewModule(embeddingservice.Dependencies{
		Model:   embeddingmemory.NewHashModel(),
		Cache:   embeddingCache,
		Metrics: embeddingmemory.NewPromMetrics(prometheus.DefaultRegisterer),
		Logger:  logger,
	})

	if err := s.wireEventLog(cfg, logger); err != nil {
		return nil, err
	}
	if err := s.wireVectorIndex(cfg, logger); err != nil {
		return nil, err
	}
	if err := s.wireKeywordIndex(cfg, logger); err != nil {
		return nil, err
	}

	s.matcher = semanticmatcherservice.NewModule(semanticmatcherservice.Dependencies{
		Embedder:  s.embedding.Service,
		Vectors:   vectorSearchShim{svc: s.vectorIndex.Service},
		Keywords:  keywordSearcherOrNil(cfg, s.keywordIndex),
		SemWeight: cfg.KNNWeight,
		KwWeight:  cfg.BM25Weight,
		RRFK:      60,
		Logger:    logger,
	})

	if err := s.wireRegistry(cfg, logger); err != nil {
		return nil, err
	}

	transport, err := buildTransport(cfg, logger)
	if err != nil {
		return nil, err
	}
	s.transport = transport
	s.dispatcher = notificationdispatcherservice.NewInMemoryModule(
		registryForDispatchShim{svc: s.registry.Service},
		s.embedding.Service,
		&notifpubsub.Publisher{Transport: transport},
	)
	s.dispatcher.Service.Threshold = cfg.SimilarityThreshold
	s.dispatcher.Service.MaxAttempts = cfg.WebhookMaxAttempts
	s.dispatcher.Service.DeliveryQueueCapacity = cfg.DeliveryQueueCapacity

	s.degradation = degradationcontrollerservice.NewModule(degradationcontrollerservice.Dependencies{
		Probes: buildProbes(s, cfg),
		Logger: logger,
	})
	// Set once the degradation module exists: the dispatcher is wired ahead
	// of it above, and FanoutDrain.RunOnce must not replay a DEGRADED
	// window's queued fan-out before the controller reports NORMAL again.
	s.dispatcher.FanoutDrain.Gate = s.degradation.Service

	s.engine = contextengineservice.NewModule(contextengineservice.Dependencies{
		Embedder:         s.embedding.Service,
		Vectors:          vectorIndexForEngineShim{svc: s.vectorIndex.Service},
		Events:           eventLogForEngineShim{svc: s.eventLog.Service},
		Matcher:          matcherForEngineShim{svc: s.matcher.Service},
		Registrar:        registrarForEngineShim{svc: s.registry.Service},
		Notifier:         notifierForEngineShim{svc: s.dispatcher.Service},
		Degradation:      s.degradation.Service,
		EmbedPoolSize:    cfg.EmbedPoolSize,
		DefaultTopK:      cfg.MaxMatches,
		DefaultThreshold: cfg.SimilarityThreshold,
		MaxContextChars:  cfg.MaxContextSize,
		HybridSearch:     cfg.HybridSearchEnabled,
		Logger:           logger,
	})

	return s, nil
}

func (s *services) wireEventLog(cfg config.Config, logger *slog.Logger) error {
	switch cfg.StorageBackend {
	case "postgres":
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		s.postgres = pg
		s.eventLog = eventlogservice.NewModule(eventlogservice.Dependencies{
			Repo:   eventlogpostgres.NewRepository(pg.DB, logger),
			Logger: logger,
		})
	case "sqlite":
		lite, err := db.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("connect sqlite: %w", err)
		}
		s.sqlite = lite
		repo, err := eventlogsqlite.NewRepository(lite.DB)
		if err != nil {
			return fmt.Errorf("build sqlite event log repository: %w", err)
		}
		s.eventLog = eventlogservice.NewModule(eventlogservice.Dependencies{Repo: repo, Logger: logger})
	default:
		s.eventLog = eventlogservice.NewModule(eventlogservice.Dependencies{Repo: eventlogmemory.NewStore(), Logger: logger})
	}
	return nil
}

func (s *services) wireVectorIndex(cfg config.Config, logger *slog.Logger) error {
	if cfg.StorageBackend == "postgres" && s.postgres != nil {
		s.vectorIndex = vectorindexservice.NewModule(vectorindexservice.Dependencies{
			Repo:   vectorpostgres.NewRepository(s.postgres.DB, logger),
			Logger: logger,
		})
		return nil
	}
	s.vectorIndex = vectorindexservice.NewModule(vectorindexservice.Dependencies{Repo: vectormemory.NewStore(), Logger: logger})
	return nil
}

func (s *services) wireKeywordIndex(cfg config.Config, logger *slog.Logger) error {
	if !cfg.HybridSearchEnabled {
		s.keywordIndex = keywordindexservice.NewModule(keywordindexservice.Dependencies{Repo: keywordmemory.NewStore(), Logger: logger})
		return nil
	}
	if strings.TrimSpace(cfg.OpenSearchURL) != "" {
		repo, err := keywordopensearch.NewRepository(cfg.OpenSearchURL, logger)
		if err != nil {
			return fmt.Errorf("build opensearch keyword repository: %w", err)
		}
		s.keywordIndex = keywordindexservice.NewModule(keywordindexservice.Dependencies{Repo: repo, Logger: logger})
		return nil
	}
	s.keywordIndex = keywordindexservice.NewModule(keywordindexservice.Dependencies{Repo: keywordmemory.NewStore(), Logger: logger})
	return nil
}

func (s *services) wireRegistry(cfg config.Config, logger *slog.Logger) error {
	if cfg.StorageBackend == "postgres" && s.postgres != nil {
		s.registry = subscriptionregistryservice.NewModule(subscriptionregistryservice.Dependencies{
			Repo:    subscriptionpostgres.NewRepository(s.postgres.DB, logger),
			MaxIdle: cfg.AgentIdleExpiry(),
			Logger:  logger,
		})
		return nil
	}
	s.registry = subscriptionregistryservice.NewInMemoryModule(cfg.AgentIdleExpiry())
	return nil
}

// keywordSearcherOrNil returns nil when hybrid search is disabled so the
// matcher's own nil check, not an empty-but-non-nil interface, decides.
func keywordSearcherOrNil(cfg config.Config, keywordIndex keywordindexservice.Module) matcherports.KeywordSearcher {
	if !cfg.HybridSearchEnabled {
		return nil
	}
	return keywordSearchShim{svc: keywordIndex.Service}
}

func buildTransport(cfg config.Config, logger *slog.Logger) (notifpubsub.Transport, error) {
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisBroker, err := messaging.NewRedisBroker(cfg.RedisURL, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis pub/sub: %w", err)
		}
		return redisBroker, nil
	}
	return messaging.NewBroker(logger), nil
}

const probeKey = "__probe__"

// buildProbes wires each dependency the degradation controller watches.
// Only the event-log backend is critical: its failure is the one condition
// that drops the system to UNAVAILABLE. Every other dependency (embedding
// model, vector index, keyword index, pub/sub transport) failing only drops
// the system to DEGRADED.
func buildProbes(s *services, cfg config.Config) []degradationports.Prober {
	probes := []degradationports.Prober{
		probeadapter.FuncProber{
			ProbeName:  "event_log",
			IsCritical: true,
			Check: func(ctx context.Context) error {
				_, err := s.eventLog.Service.Length(ctx, probeKey)
				return err
			},
		},
		probeadapter.FuncProber{
			ProbeName:  "embedding_model",
			IsCritical: false,
			Check: func(ctx context.Context) error {
				_, err := s.embedding.Service.Encode(ctx, "probe")
				return err
			},
		},
		probeadapter.FuncProber{
			ProbeName:  "vector_index",
			IsCritical: false,
			Check: func(ctx context.Context) error {
				_, err := s.vectorIndex.Service.Search(ctx, probeKey, make([]float32, 8), 1, 0)
				return err
			},
		},
		probeadapter.FuncProber{
			ProbeName:  "pubsub_transport",
			IsCritical: false,
			Check: func(ctx context.Context) error {
				return s.transport.Publish(ctx, probeKey, events.Envelope{EventType: "probe"})
			},
		},
	}
	if cfg.HybridSearchEnabled {
		probes = append(probes, probeadapter.FuncProber{
			ProbeName:  "keyword_index",
			IsCritical: false,
			Check: func(ctx context.Context) error {
				_, err := s.keywordIndex.Service.BM25Search(ctx, probeKey, "probe", 1)
				return err
			},
		})
	}
	return probes
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

// APIApp serves publish/query/register/events and the admin/health surface.
type APIApp struct {
	server          *httpserver.Server
	svc             *services
	logger          *slog.Logger
	shutdownTracing func(context.Context) error
}

// WorkerApp runs the dispatcher's outbox-drain loop, the subscription
// registry's idle-expiry sweep, and the degradation controller's
// probe evaluation loop.
type WorkerApp struct {
	svc             *services
	pollInterval    time.Duration
	logger          *slog.Logger
	shutdownTracing func(context.Context) error
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	shutdownTracing, err := tracing.Init(context.Background(), cfg.ServiceName+"-api", cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return nil, err
	}

	engineHandler := httpadapter.Handler{Service: svc.engine.Service, Logger: logger}
	server := httpserver.New(engineHandler, svc.degradation.Service, logger, normalizeAddr(cfg.HTTPPort))

	return &APIApp{server: server, svc: svc, logger: logger, shutdownTracing: shutdownTracing}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	shutdownTracing, err := tracing.Init(context.Background(), cfg.ServiceName+"-worker", cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &WorkerApp{svc: svc, pollInterval: 2 * time.Second, logger: logger, shutdownTracing: shutdownTracing}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.shutdownTracing != nil {
		_ = a.shutdownTracing(context.Background())
	}
	return closeStores(a.svc)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if _, err := w.svc.degradation.Service.Evaluate(ctx); err != nil {
			w.logger.Error("degradation probe evaluation failed",
				"event", "bootstrap_worker_probe_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		if err := w.svc.registry.IdleExpirer.RunOnce(ctx); err != nil {
			w.logger.Error("idle expiry sweep failed",
				"event", "bootstrap_worker_idle_expiry_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		if err := w.svc.dispatcher.OutboxDrain.RunOnce(ctx); err != nil {
			w.logger.Error("outbox drain failed",
				"event", "bootstrap_worker_outbox_drain_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		if err := w.svc.dispatcher.FanoutDrain.RunOnce(ctx); err != nil {
			w.logger.Error("fanout drain failed",
				"event", "bootstrap_worker_fanout_drain_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.shutdownTracing != nil {
		_ = w.shutdownTracing(context.Background())
	}
	return closeStores(w.svc)
}

func closeStores(s *services) error {
	if s == nil {
		return nil
	}
	if s.postgres != nil {
		if err := s.postgres.Close(); err != nil {
			return err
		}
	}
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			return err
		}
	}
	return nil
}
