package ports

import "context"

// Model is the opaque embedding function the rest of the engine is built
// against: deterministic, referentially transparent, no silent degradation.
type Model interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Cache fronts Model with a bounded, concurrent-safe lookup keyed by the
// caller (the application layer hashes the input before calling in).
type Cache interface {
	Get(key string) ([]float32, bool)
	Add(key string, vector []float32)
}

// Metrics records cache hit/miss/duration observations.
type Metrics interface {
	ObserveHit()
	ObserveMiss()
	ObserveDuration(seconds float64)
}
