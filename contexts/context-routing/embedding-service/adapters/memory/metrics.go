package memory

import "github.com/prometheus/client_golang/prometheus"

// PromMetrics registers the embedding cache's hit/miss/duration series.
// Names are namespaced contex_embedding_cache_* per the routing engine's
// metrics convention.
type PromMetrics struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	duration prometheus.Histogram
}

func NewPromMetrics(registerer prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contex_embedding_cache_hits_total",
			Help: "Embedding cache hits.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contex_embedding_cache_misses_total",
			Help: "Embedding cache misses.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contex_embedding_cache_encode_duration_seconds",
			Help:    "Model encode call latency on a cache miss.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.hits, m.misses, m.duration)
	}
	return m
}

func (m *PromMetrics) ObserveHit() {
	m.hits.Inc()
}

func (m *PromMetrics) ObserveMiss() {
	m.misses.Inc()
}

func (m *PromMetrics) ObserveDuration(seconds float64) {
	m.duration.Observe(seconds)
}
