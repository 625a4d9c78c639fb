package protected

import (
	"context"
	"log/slog"

	"github.com/sellerkit/resilience/internal/circuitbreaker"
)

// Service wires a service object to exactly one named breaker from the
// registry and exposes the breaker's read and admin surface without leaking
// the registry itself. Embed it in any client that talks to an external
// dependency:
//
//	type AmazonClient struct {
//	    *protected.Service
//	    ...
//	}
type Service struct {
	name    string
	breaker *circuitbreaker.CircuitBreaker
	log     *slog.Logger
}

// New resolves (or creates) the breaker registered under name. A zero cfg
// gets the default preset. State transitions are logged here; the breaker
// core itself never logs.
func New(registry *circuitbreaker.Registry, name string, cfg circuitbreaker.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("service", name))

	userHook := cfg.OnStateChange
	cfg.OnStateChange = func(s circuitbreaker.State) {
		switch s {
		case circuitbreaker.StateOpen:
			log.Error("circuit breaker opened, failing fast", slog.String("state", s.String()))
		case circuitbreaker.StateHalfOpen:
			log.Warn("circuit breaker probing for recovery", slog.String("state", s.String()))
		default:
			log.Info("circuit breaker closed, dependency healthy", slog.String("state", s.String()))
		}
		if userHook != nil {
			userHook(s)
		}
	}

	return &Service{
		name:    name,
		breaker: registry.GetOrCreate(name, cfg),
		log:     log,
	}
}

// Name returns the service name the breaker was registered under.
func (s *Service) Name() string {
	return s.name
}

// ExecuteProtected runs op under the service's breaker.
func (s *Service) ExecuteProtected(ctx context.Context, op circuitbreaker.Operation) (any, error) {
	return s.breaker.Execute(ctx, op)
}

// Breaker exposes the underlying breaker for typed calls via
// circuitbreaker.Do.
func (s *Service) Breaker() *circuitbreaker.CircuitBreaker {
	return s.breaker
}

// IsHealthy reports whether the service's breaker is CLOSED.
func (s *Service) IsHealthy() bool {
	return s.breaker.IsHealthy()
}

// Stats snapshots the service's breaker.
func (s *Service) Stats() circuitbreaker.Stats {
	return s.breaker.Stats()
}

// ForceState overrides the breaker state; meant for admin tooling only.
func (s *Service) ForceState(state circuitbreaker.State) {
	s.log.Warn("forcing circuit breaker state", slog.String("state", state.String()))
	s.breaker.ForceState(state)
}
