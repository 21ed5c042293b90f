package application

import (
	"context"
	"log/slog"
)

const defaultDeliveryQueueCapacity = 1000

// deliveryJob is one enqueued unit of per-agent work: deliver a single
// matched update and advance that agent's last_seen_sequence.
type deliveryJob struct {
	ctx context.Context
	run func(ctx context.Context)
}

// deliveryQueue serializes delivery per agent: every agent_id gets its own
// bounded channel and exactly one drain goroutine, started lazily on first
// use, so two fan-outs racing on the same project can never deliver to one
// agent out of sequence order. Enqueue blocks while an agent's queue is
// full, applying backpressure to the publisher that triggered the fan-out
// rather than dropping or reordering a delivery.
type deliveryQueue struct {
	capacity int
	logger   *slog.Logger

	register chan registerReq
	queues   map[string]chan deliveryJob
}

type registerReq struct {
	agentID string
	result  chan chan deliveryJob
}

func newDeliveryQueue(capacity int, logger *slog.Logger) *deliveryQueue {
	if capacity <= 0 {
		capacity = defaultDeliveryQueueCapacity
	}
	q := &deliveryQueue{
		capacity: capacity,
		logger:   logger,
		register: make(chan registerReq),
		queues:   make(map[string]chan deliveryJob),
	}
	go q.run()
	return q
}

// run owns the queues map so concurrent Enqueue calls never race each other
// creating the same agent's channel.
func (q *deliveryQueue) run() {
	for req := range q.register {
		ch, ok := q.queues[req.agentID]
		if !ok {
			ch = make(chan deliveryJob, q.capacity)
			q.queues[req.agentID] = ch
			go q.drain(req.agentID, ch)
		}
		req.result <- ch
	}
}

func (q *deliveryQueue) drain(agentID string, ch chan deliveryJob) {
	for job := range ch {
		job.run(job.ctx)
	}
}

// Enqueue hands a job to the named agent's queue. ctx only bounds the
// enqueue step itself (registering the queue, waiting for room); the job
// runs later on the agent's drain goroutine with a context detached from
// the caller, since that caller (an HTTP request, a publish call) may well
// have returned and cancelled ctx by the time the job actually runs.
func (q *deliveryQueue) Enqueue(ctx context.Context, agentID string, run func(ctx context.Context)) {
	result := make(chan chan deliveryJob, 1)
	select {
	case q.register <- registerReq{agentID: agentID, result: result}:
	case <-ctx.Done():
		return
	}

	ch := <-result
	select {
	case ch <- deliveryJob{ctx: context.Background(), run: run}:
	case <-ctx.Done():
	}
}
