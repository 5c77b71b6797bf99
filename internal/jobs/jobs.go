package jobs

import (
	"context"
	"log/slog"
	"time"

	"kitabuddy/internal/connectivity"
	"kitabuddy/internal/session"
	"kitabuddy/internal/settings"
)

// StartSettingsRefreshJob re-reads the shared settings periodically. This
// bounds how stale a session's view of the maintenance flag and feature map
// can get. Ticks are skipped while offline.
func StartSettingsRefreshJob(ctx context.Context, interval, timeout time.Duration, svc *settings.Service, online *connectivity.Monitor, logger *slog.Logger) {
	if interval <= 0 {
		logger.Info("settings refresh job disabled")
		return
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if online != nil && !online.Online() {
					continue
				}
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				err := svc.Refresh(tickCtx)
				cancel()
				if err != nil {
					logger.Warn("settings refresh job error", "err", err)
				}
			}
		}
	}()
}

// StartConnectivityProbeJob drives the online signal from the backing
// stores. Settings are refreshed as soon as the monitor reports a
// reconnect.
func StartConnectivityProbeJob(ctx context.Context, interval, timeout time.Duration, online *connectivity.Monitor, svc *settings.Service, logger *slog.Logger, targets ...connectivity.Pinger) {
	if interval <= 0 || len(targets) == 0 {
		logger.Info("connectivity probe job disabled")
		return
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	updates, unsubscribe := online.Subscribe()
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case up := <-updates:
				if !up || svc == nil {
					continue
				}
				refreshCtx, cancel := context.WithTimeout(ctx, timeout)
				if err := svc.Refresh(refreshCtx); err != nil {
					logger.Warn("settings refresh after reconnect failed", "err", err)
				}
				cancel()
			case <-ticker.C:
				wasOnline := online.Online()
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				err := online.Probe(tickCtx, targets...)
				cancel()
				if err != nil && wasOnline {
					logger.Warn("connectivity probe failed", "err", err)
				}
			}
		}
	}()
}

// StartSessionSweepJob drops idle sessions.
func StartSessionSweepJob(ctx context.Context, interval time.Duration, sessions *session.Manager, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := sessions.Sweep(now); removed > 0 {
					logger.Info("idle sessions swept", "removed", removed, "remaining", sessions.Len())
				}
			}
		}
	}()
}
