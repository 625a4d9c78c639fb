package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sellerkit/resilience/internal/circuitbreaker"
	"github.com/sellerkit/resilience/internal/metrics"
	"github.com/sellerkit/resilience/internal/protected"
)

var errDependencyDown = errors.New("connection refused")

type phase struct {
	name     string
	failRate float64
}

// drillPhases walks each breaker through its full lifecycle: trip it with
// an outage, let the recovery timer elapse, then feed it successes until it
// closes again.
var drillPhases = []phase{
	{name: "normal", failRate: 0},
	{name: "outage", failRate: 1},
	{name: "recovery", failRate: 0},
}

// flakyCall simulates one dependency call with the given failure rate.
func flakyCall(failRate float64, latency time.Duration) circuitbreaker.Operation {
	return func(ctx context.Context) (any, error) {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if rand.Float64() < failRate {
			return nil, errDependencyDown
		}
		return "ok", nil
	}
}

func runDrill(
	ctx context.Context,
	services []*protected.Service,
	sim simSettings,
	collector *metrics.Collector,
	log *slog.Logger,
) {
	for _, ph := range drillPhases {
		log.Info("drill phase starting",
			slog.String("phase", ph.name),
			slog.Int("requests", sim.Requests))

		if ph.name == "recovery" {
			// Give every open breaker a chance to start probing.
			select {
			case <-time.After(sim.RecoveryTimeout + 100*time.Millisecond):
			case <-ctx.Done():
				return
			}
		}

		for i := 0; i < sim.Requests; i++ {
			for _, svc := range services {
				drillCall(ctx, svc, ph.failRate, collector)
			}

			select {
			case <-time.After(sim.Interval):
			case <-ctx.Done():
				return
			}
		}

		for _, svc := range services {
			stats := svc.Stats()
			log.Info("drill phase finished",
				slog.String("phase", ph.name),
				slog.String("service", svc.Name()),
				slog.String("state", stats.StateName),
				slog.Int64("failures", stats.TotalFailures),
				slog.Int64("successes", stats.TotalSuccesses))
		}
	}
}

func drillCall(ctx context.Context, svc *protected.Service, failRate float64, collector *metrics.Collector) {
	start := time.Now()
	_, err := svc.ExecuteProtected(ctx, flakyCall(failRate, time.Millisecond))

	var open *circuitbreaker.OpenError
	if errors.As(err, &open) {
		collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventCallRejected,
			Timestamp: time.Now(),
			Breaker:   svc.Name(),
		})
		return
	}

	collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventCallSettled,
		Timestamp: time.Now(),
		Breaker:   svc.Name(),
		Duration:  time.Since(start),
		Failed:    err != nil,
	})
}
