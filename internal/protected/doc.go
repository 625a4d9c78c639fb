// Package protected is the composition layer between the circuit breaker
// core and the services that need protection. Clients embed a Service and
// route their outbound calls through ExecuteProtected; the Service resolves
// its breaker from the shared registry and logs state transitions.
package protected
