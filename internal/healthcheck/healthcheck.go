package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/sellerkit/resilience/internal/circuitbreaker"
)

// Watch periodically sweeps the registry and logs breakers whose health
// changed since the last tick. It is the process-level complement to the
// per-transition hooks: a breaker stuck OPEN keeps showing up here even when
// no calls are arriving to trigger transitions.
func Watch(
	ctx context.Context,
	registry *circuitbreaker.Registry,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastHealthy := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Breaker health watch stopped")
			return

		case <-ticker.C:
			for name, stats := range registry.AllStats() {
				healthy := stats.State == circuitbreaker.StateClosed

				prev, seen := lastHealthy[name]
				lastHealthy[name] = healthy

				if seen && prev == healthy {
					continue
				}

				if healthy {
					if seen {
						logger.Info("Dependency is back up",
							slog.String("breaker", name))
					}
					continue
				}

				logger.Warn("Dependency is degraded",
					slog.String("breaker", name),
					slog.String("state", stats.StateName),
					slog.Int64("total_failures", stats.TotalFailures),
					slog.Duration("avg_response", stats.AverageResponseTime))
			}
		}
	}
}
