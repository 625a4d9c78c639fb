// Package healthcheck implements periodic health reporting for circuit
// breakers. It sweeps the registry on an interval and logs dependencies
// whose breaker left or re-entered the CLOSED state.
package healthcheck
