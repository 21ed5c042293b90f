package probe

import (
	"context"
	"time"

	"contex/contexts/context-routing/degradation-controller-service/domain/entities"
)

// FuncProber adapts an arbitrary health check function (ping the embedding
// model, run a tiny vector search, ping Redis, ping OpenSearch) into a
// ports.Prober without every dependency needing its own type.
type FuncProber struct {
	ProbeName  string
	IsCritical bool
	Check      func(ctx context.Context) error
	Clock      func() time.Time
}

func (p FuncProber) Name() string   { return p.ProbeName }
func (p FuncProber) Critical() bool { return p.IsCritical }

func (p FuncProber) Probe(ctx context.Context) entities.ProbeResult {
	start := p.now()
	err := p.Check(ctx)
	latency := p.now().Sub(start)
	return entities.ProbeResult{
		Name:    p.ProbeName,
		Healthy: err == nil,
		Latency: latency,
		Err:     err,
	}
}

func (p FuncProber) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}
