// Package circuitbreaker implements the circuit breaker pattern around the
// external dependencies of the backend (database, Amazon SP-API, email,
// uploads).
//
// A circuit breaker prevents cascading failures by temporarily blocking
// calls to a failing dependency. It has three states:
//
//   - CLOSED: normal operation, calls pass through and are monitored
//   - OPEN: dependency failing, calls blocked or answered by a fallback
//   - HALF-OPEN: probing whether the dependency recovered
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry()
//	cb := registry.GetOrCreate("amazon-api", circuitbreaker.AmazonConfig())
//	report, err := circuitbreaker.Do(ctx, cb, fetchSalesReport)
//	var open *circuitbreaker.OpenError
//	if errors.As(err, &open) {
//	    // dependency is tripped, serve degraded data
//	}
//
// The package never logs; callers observe transitions through
// Config.OnStateChange and the Stats snapshots.
package circuitbreaker
