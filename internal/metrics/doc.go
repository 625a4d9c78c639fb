// Package metrics collects circuit breaker activity for the admin surface.
//
// It uses a channel-based event pipeline to asynchronously record:
//   - Settled calls and failures per breaker
//   - Rejections (calls blocked while a breaker is open)
//   - State transitions with per-state counts
//   - Response times with percentile calculations (P50, P95, P99)
//
// The collector runs in a dedicated goroutine and processes events off the
// call path. Emit uses non-blocking sends, shedding events when the buffer
// is full rather than slowing a protected call down.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	cfg := circuitbreaker.AmazonConfig()
//	cfg.OnStateChange = collector.StateChangeHook("amazon-api")
//
//	// Emit events as calls settle
//	collector.Emit(metrics.MetricEvent{
//		Type:     metrics.EventCallSettled,
//		Breaker:  "amazon-api",
//		Duration: 150 * time.Millisecond,
//	})
//
//	snapshot := collector.Snapshot()
package metrics
