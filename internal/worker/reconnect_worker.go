// Package worker runs background maintenance for a long-lived process.
package worker

import (
	"context"
	"time"

	applog "hhsfinance/internal/log"
	"hhsfinance/internal/services"
)

// Reconnecter is the part of the reconciler the worker drives.
type Reconnecter interface {
	Session() services.Session
	Reconnect(ctx context.Context) error
}

// ReconnectWorker retries the sync connection while the reconciler is
// logged in and online but has no working gateway, for example after a
// live subscription dropped or the backend was unreachable at start.
type ReconnectWorker struct {
	rec      Reconnecter
	interval time.Duration
	logger   *applog.Logger
}

func NewReconnectWorker(rec Reconnecter, interval time.Duration, logger *applog.Logger) *ReconnectWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &ReconnectWorker{
		rec:      rec,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentReconciler),
	}
}

// Run ticks until ctx is done. It always returns nil so it can sit in an
// errgroup next to the HTTP server.
func (w *ReconnectWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick performs one check. It reports whether a reconnect was attempted.
func (w *ReconnectWorker) Tick(ctx context.Context) bool {
	s := w.rec.Session()
	if s.Mode != services.ConnectedIdle {
		return false
	}
	if err := w.rec.Reconnect(ctx); err != nil {
		w.logger.WarnContext(ctx, "Reconnect failed", applog.FieldError, err)
		return true
	}
	if m := w.rec.Session().Mode; m != services.ConnectedIdle {
		w.logger.InfoContext(ctx, "Sync connection restored", applog.FieldMode, m.String())
	}
	return true
}
