package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"contex/contexts/context-routing/subscription-registry-service/ports"
)

// IdleExpirer sweeps agent registrations that have gone quiet for longer
// than MaxIdle: no delivery, no re-registration, no catch-up advance.
type IdleExpirer struct {
	Repo    ports.Repository
	MaxIdle time.Duration
	Clock   func() time.Time
	Logger  *slog.Logger
}

func (e IdleExpirer) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()
	if e.Clock != nil {
		now = e.Clock()
	}

	expired, err := e.Repo.ExpireIdle(ctx, now.Add(-e.MaxIdle))
	if err != nil {
		e.logger().Error("idle registration sweep failed",
			"event", "subscription_idle_expiry_failed",
			"module", "context-routing/subscription-registry-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if expired > 0 {
		e.logger().Info("idle registration sweep completed",
			"event", "subscription_idle_expiry_completed",
			"module", "context-routing/subscription-registry-service",
			"layer", "worker",
			"expired_count", expired,
		)
	}
	return nil
}

func (e IdleExpirer) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
