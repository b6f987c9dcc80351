package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/portal-gateway/internal/identity"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 15 * time.Minute

// ExpireCallback is called with the phones removed by one sweep.
type ExpireCallback func(phones []string)

// SweepHook runs after every sweep, for housekeeping that shares its schedule.
type SweepHook func(ctx context.Context)

// StartSweepWorker runs a background goroutine that periodically purges
// sessions idle for longer than ttl. It stops when ctx is cancelled.
func StartSweepWorker(ctx context.Context, store Store, interval, ttl time.Duration, onExpire ExpireCallback, hooks ...SweepHook) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("session sweep worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepOnce(ctx, store, ttl, onExpire)
				for _, hook := range hooks {
					hook(ctx)
				}
			case <-ctx.Done():
				slog.Info("session sweep worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOnce(ctx context.Context, store Store, ttl time.Duration, onExpire ExpireCallback) {
	expired, err := store.SweepExpired(ctx, ttl)
	if err != nil {
		slog.Error("session sweep failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	for _, phone := range expired {
		slog.Debug("session expired", "phone", identity.Mask(phone))
	}
	slog.Info("session sweep completed", "expired", len(expired))

	if onExpire != nil {
		onExpire(expired)
	}
}
