package ports

import (
	"context"

	"contex/contexts/context-routing/degradation-controller-service/domain/entities"
)

// Prober checks one dependency's health. Once failing evaluations have
// persisted long enough for the controller to leave NORMAL, a failing
// critical probe (the event log) puts the system in UNAVAILABLE; when only
// non-critical probes (embedding model, vector index, keyword index,
// pub/sub transport) fail, it goes to DEGRADED.
type Prober interface {
	Name() string
	Critical() bool
	Probe(ctx context.Context) entities.ProbeResult
}

// SnapshotStore persists the controller's current mode across evaluation
// cycles so every request path can read it without re-probing.
type SnapshotStore interface {
	Load() entities.Snapshot
	Save(entities.Snapshot)
}
