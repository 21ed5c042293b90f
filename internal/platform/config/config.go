// Package config is centralized process configuration for the context
// routing engine. Keep infra values here and pass typed config into builders.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved process configuration, covering both the
// routing engine's own knobs and the backing-store connection settings.
type Config struct {
	ServiceName string
	HTTPPort    string

	StorageBackend string // "postgres" | "sqlite" | "memory"
	PostgresDSN    string
	SQLitePath     string

	RedisURL      string
	OpenSearchURL string
	OTLPEndpoint  string

	SimilarityThreshold    float64
	MaxMatches             int
	MaxContextSize         int
	HybridSearchEnabled    bool
	BM25Weight             float64
	KNNWeight              float64
	EmbeddingCacheSize     int
	WebhookMaxAttempts     int
	CircuitFailureThresh   int
	CircuitCooldownSeconds int
	AgentIdleExpiryDays    int
	EventRetentionDays     int
	DeliveryQueueCapacity  int
	EmbedPoolSize          int
}

// Load resolves configuration from the environment (and an optional
// contex.yaml config file), applying the defaults named in the routing
// engine spec.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetConfigName("contex")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("SERVICE_NAME", "contex")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("STORAGE_BACKEND", "memory")
	v.SetDefault("SQLITE_PATH", "contex.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("OPENSEARCH_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	v.SetDefault("SIMILARITY_THRESHOLD", 0.5)
	v.SetDefault("MAX_MATCHES", 10)
	v.SetDefault("MAX_CONTEXT_SIZE", 51200)
	v.SetDefault("HYBRID_SEARCH_ENABLED", false)
	v.SetDefault("BM25_WEIGHT", 0.7)
	v.SetDefault("KNN_WEIGHT", 0.3)
	v.SetDefault("EMBEDDING_CACHE_SIZE", 10000)
	v.SetDefault("WEBHOOK_MAX_ATTEMPTS", 5)
	v.SetDefault("CIRCUIT_FAILURE_THRESHOLD", 5)
	v.SetDefault("CIRCUIT_COOLDOWN_SECONDS", 60)
	v.SetDefault("AGENT_IDLE_EXPIRY_DAYS", 7)
	v.SetDefault("EVENT_RETENTION_DAYS", 30)
	v.SetDefault("DELIVERY_QUEUE_CAPACITY", 1000)
	v.SetDefault("EMBED_POOL_SIZE", 0) // 0 => GOMAXPROCS

	_ = v.ReadInConfig() // config file is optional; env vars always win via AutomaticEnv

	backend := strings.ToLower(v.GetString("STORAGE_BACKEND"))
	switch backend {
	case "postgres", "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_BACKEND %q: must be postgres, sqlite, or memory", backend)
	}

	cfg := Config{
		ServiceName:            v.GetString("SERVICE_NAME"),
		HTTPPort:               normalizeAddr(v.GetString("HTTP_PORT")),
		StorageBackend:         backend,
		PostgresDSN:            v.GetString("POSTGRES_DSN"),
		SQLitePath:             v.GetString("SQLITE_PATH"),
		RedisURL:               v.GetString("REDIS_URL"),
		OpenSearchURL:          v.GetString("OPENSEARCH_URL"),
		OTLPEndpoint:           v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SimilarityThreshold:    v.GetFloat64("SIMILARITY_THRESHOLD"),
		MaxMatches:             v.GetInt("MAX_MATCHES"),
		MaxContextSize:         v.GetInt("MAX_CONTEXT_SIZE"),
		HybridSearchEnabled:    v.GetBool("HYBRID_SEARCH_ENABLED"),
		BM25Weight:             v.GetFloat64("BM25_WEIGHT"),
		KNNWeight:              v.GetFloat64("KNN_WEIGHT"),
		EmbeddingCacheSize:     v.GetInt("EMBEDDING_CACHE_SIZE"),
		WebhookMaxAttempts:     v.GetInt("WEBHOOK_MAX_ATTEMPTS"),
		CircuitFailureThresh:   v.GetInt("CIRCUIT_FAILURE_THRESHOLD"),
		CircuitCooldownSeconds: v.GetInt("CIRCUIT_COOLDOWN_SECONDS"),
		AgentIdleExpiryDays:    v.GetInt("AGENT_IDLE_EXPIRY_DAYS"),
		EventRetentionDays:     v.GetInt("EVENT_RETENTION_DAYS"),
		DeliveryQueueCapacity:  v.GetInt("DELIVERY_QUEUE_CAPACITY"),
		EmbedPoolSize:          v.GetInt("EMBED_POOL_SIZE"),
	}

	if cfg.StorageBackend == "postgres" && strings.TrimSpace(cfg.PostgresDSN) == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}

	return cfg, nil
}

func (c Config) CircuitCooldown() time.Duration {
	return time.Duration(c.CircuitCooldownSeconds) * time.Second
}

func (c Config) AgentIdleExpiry() time.Duration {
	return time.Duration(c.AgentIdleExpiryDays) * 24 * time.Hour
}

func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
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
