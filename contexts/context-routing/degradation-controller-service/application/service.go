package application

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"contex/contexts/context-routing/degradation-controller-service/domain/entities"
	domainerrors "contex/contexts/context-routing/degradation-controller-service/domain/errors"
	"contex/contexts/context-routing/degradation-controller-service/ports"
	"contex/internal/platform/apperr"
)

const (
	enterThreshold = 3 // consecutive failing evaluations before degrading
	exitThreshold  = 2 // consecutive healthy evaluations before recovering
)

// Service runs the dependency probes on a cycle and holds the hysteretic
// NORMAL/DEGRADED/UNAVAILABLE state machine: a single bad probe doesn't
// flip the mode immediately, and a single good one doesn't immediately
// recover it, so a flapping dependency doesn't thrash the whole engine.
type Service struct {
	Probes []ports.Prober
	Store  ports.SnapshotStore
	Clock  func() time.Time
	Logger *slog.Logger

	mu       sync.Mutex
	snapshot entities.Snapshot
}

func (s *Service) Evaluate(ctx context.Context) (entities.Snapshot, error) {
	if len(s.Probes) == 0 {
		return entities.Snapshot{}, apperr.Wrap(apperr.KindValidation, "evaluate", domainerrors.ErrNoProbes)
	}

	results := make([]entities.ProbeResult, len(s.Probes))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, probe := range s.Probes {
		i, probe := i, probe
		group.Go(func() error {
			results[i] = probe.Probe(groupCtx)
			return nil
		})
	}
	_ = group.Wait()

	var errs *multierror.Error
	criticalFailure := false
	anyFailure := false
	for i, result := range results {
		if result.Err == nil && result.Healthy {
			continue
		}
		anyFailure = true
		if s.Probes[i].Critical() {
			criticalFailure = true
		}
		if result.Err != nil {
			errs = multierror.Append(errs, result.Err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.Mode == "" {
		s.snapshot.Mode = entities.ModeNormal
	}
	if anyFailure {
		s.snapshot.ConsecutiveFailures++
		s.snapshot.ConsecutiveSuccesses = 0
	} else {
		s.snapshot.ConsecutiveSuccesses++
		s.snapshot.ConsecutiveFailures = 0
	}

	switch {
	case s.snapshot.ConsecutiveFailures >= enterThreshold:
		s.snapshot.Mode = degradedOrUnavailable(criticalFailure)
	case s.snapshot.Mode != entities.ModeNormal && s.snapshot.ConsecutiveSuccesses >= exitThreshold:
		s.snapshot.Mode = entities.ModeNormal
	}

	s.snapshot.LastEvaluatedAt = s.now()
	s.snapshot.Probes = results
	snapshot := s.snapshot

	if s.Store != nil {
		s.Store.Save(snapshot)
	}

	s.logger().Info("degradation evaluation completed",
		"event", "degradation_evaluation_completed",
		"module", "context-routing/degradation-controller-service",
		"layer", "application",
		"mode", string(snapshot.Mode),
		"consecutive_failures", snapshot.ConsecutiveFailures,
		"consecutive_successes", snapshot.ConsecutiveSuccesses,
	)

	if errs != nil {
		return snapshot, errs.ErrorOrNil()
	}
	return snapshot, nil
}

func degradedOrUnavailable(criticalFailure bool) entities.Mode {
	if criticalFailure {
		return entities.ModeUnavailable
	}
	return entities.ModeDegraded
}

// Mode reports the last-evaluated mode without running a new probe cycle,
// satisfying httpserver's readiness check.
func (s *Service) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Mode == "" {
		return string(entities.ModeNormal)
	}
	return string(s.snapshot.Mode)
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
