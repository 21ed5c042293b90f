// Package embedpool bounds the concurrency of the CPU-bound embedding step
// a publish can trigger when it decomposes into many nodes, so one large
// publish cannot flood the process with one goroutine per node.
package embedpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool caps concurrent jobs at Size. The zero value is valid and bounds to
// GOMAXPROCS at Run time, so callers that never explicitly size it still get
// a sane bound instead of unbounded fan-out.
type Pool struct {
	Size int
}

func New(size int) Pool {
	return Pool{Size: size}
}

// Run executes each job with at most Size running concurrently and returns
// the first error encountered. That first error cancels the context handed
// to the jobs; jobs not yet started are still invoked, with that cancelled
// context.
func (p Pool) Run(ctx context.Context, jobs []func(context.Context) error) error {
	size := p.Size
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(size)
	for _, job := range jobs {
		job := job
		g.Go(func() error { return job(gctx) })
	}
	return g.Wait()
}
