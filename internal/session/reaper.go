package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReapInterval is how often StartReaper sweeps for expired sessions.
const DefaultReapInterval = 5 * time.Minute

// Reaper is implemented by stores that need an external sweep to drop expired sessions.
type Reaper interface {
	Reap(now time.Time) int
}

// StartReaper runs a background goroutine that periodically sweeps r until ctx is done.
func StartReaper(ctx context.Context, r Reaper, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", interval)

		for {
			select {
			case now := <-ticker.C:
				if n := r.Reap(now); n > 0 {
					slog.Info("Session reaper evicted expired sessions", "count", n)
				}
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
