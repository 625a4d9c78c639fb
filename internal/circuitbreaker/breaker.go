package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking requests
	StateHalfOpen              // Probing for recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrTimeout is returned (and counted as a failure) when an operation does
// not settle within Config.Timeout.
var ErrTimeout = errors.New("circuit breaker timeout")

// OpenError is returned when a call is blocked and no fallback is configured.
// It is distinguishable from the protected dependency's own errors so upper
// layers can map it to a 503-class response.
type OpenError struct {
	Name  string
	State State
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

// Operation is a single protected call. The context carries the breaker's
// per-call deadline; well-behaved operations stop early when it is cancelled,
// but the breaker does not wait for them to do so.
type Operation func(ctx context.Context) (any, error)

// Config is read-only after the breaker is constructed.
type Config struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening
	RecoveryTimeout  time.Duration // how long to stay open before probing
	SuccessThreshold int           // consecutive half-open successes to close
	Timeout          time.Duration // per-operation deadline

	// OnStateChange, if set, is invoked after every transition with the new
	// state. It runs outside the breaker's lock, so it may call back in.
	OnStateChange func(State)

	// Fallback, if set, supplies a substitute value for blocked calls
	// instead of an OpenError.
	Fallback func() any

	// ShouldSkip classifies an error as not indicative of dependency health
	// (e.g. caller-side validation). Skipped errors still propagate and are
	// still timed, but never count toward the failure threshold.
	ShouldSkip func(error) bool
}

// responseWindow bounds the ring buffer of recent operation durations.
const responseWindow = 100

// Stats is a point-in-time snapshot of a breaker. Failures and Successes are
// the consecutive streaks the state machine compares against thresholds; the
// Total counters only ever grow.
type Stats struct {
	Name                string        `json:"name"`
	State               State         `json:"-"`
	StateName           string        `json:"state"`
	Failures            int           `json:"failures"`
	Successes           int           `json:"successes"`
	TotalRequests       int64         `json:"total_requests"`
	TotalFailures       int64         `json:"total_failures"`
	TotalSuccesses      int64         `json:"total_successes"`
	LastFailureTime     time.Time     `json:"last_failure_time"`
	LastSuccessTime     time.Time     `json:"last_success_time"`
	AverageResponseTime time.Duration `json:"avg_response_time"`
}

type CircuitBreaker struct {
	cfg Config

	mu             sync.Mutex
	state          State
	failures       int
	successes      int
	totalRequests  int64
	totalFailures  int64
	totalSuccesses int64
	lastFailure    time.Time
	lastSuccess    time.Time
	nextAttempt    time.Time
	samples        [responseWindow]time.Duration
	sampleIdx      int
	sampleCount    int
}

// New creates a breaker in the CLOSED state. Zero-valued thresholds and
// durations are filled in from DefaultConfig.
func New(cfg Config) *CircuitBreaker {
	def := DefaultConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = def.RecoveryTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	return &CircuitBreaker{
		cfg:   cfg,
		state: StateClosed,
	}
}

// Name returns the dependency name the breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// Execute runs op under the breaker. Blocked calls return the fallback value
// when one is configured, otherwise an *OpenError. Admitted calls run under a
// race against Config.Timeout and their outcome is recorded: the operation's
// value on success, its original error (never wrapped) on failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation) (any, error) {
	cb.mu.Lock()
	cb.totalRequests++

	allowed, transitioned := cb.allowLocked()
	state := cb.state
	cb.mu.Unlock()

	if transitioned {
		cb.notify(state)
	}

	if !allowed {
		if cb.cfg.Fallback != nil {
			return cb.cfg.Fallback(), nil
		}
		return nil, &OpenError{Name: cb.cfg.Name, State: state}
	}

	start := time.Now()
	value, err := cb.run(ctx, op)
	cb.record(err, time.Since(start))

	if err != nil {
		return nil, err
	}
	return value, nil
}

// allowLocked decides whether the current call may proceed and performs the
// OPEN -> HALF-OPEN transition once the recovery timer has elapsed. Every
// call arriving after the timer fires is admitted into the half-open probe
// window; the first failed probe re-opens the circuit for all of them.
func (cb *CircuitBreaker) allowLocked() (allowed, transitioned bool) {
	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true, false
	case StateOpen:
		if time.Now().Before(cb.nextAttempt) {
			return false, false
		}
		cb.state = StateHalfOpen
		cb.successes = 0
		return true, true
	default:
		return true, false
	}
}

type settled struct {
	value any
	err   error
}

// run races op against the per-call timeout. The timeout is advisory: op's
// context is cancelled when the timer wins, but the goroutine is abandoned
// and a late outcome is discarded rather than double-counted.
func (cb *CircuitBreaker) run(ctx context.Context, op Operation) (any, error) {
	opCtx, cancel := context.WithTimeout(ctx, cb.cfg.Timeout)
	defer cancel()

	done := make(chan settled, 1)
	go func() {
		value, err := op(opCtx)
		done <- settled{value: value, err: err}
	}()

	timer := time.NewTimer(cb.cfg.Timeout)
	defer timer.Stop()

	select {
	case s := <-done:
		return s.value, s.err
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// record routes a settled outcome through the state machine. Bookkeeping
// happens at settlement time, so two calls settling out of start order are
// counted in settlement order.
func (cb *CircuitBreaker) record(err error, elapsed time.Duration) {
	cb.mu.Lock()

	cb.samples[cb.sampleIdx] = elapsed
	cb.sampleIdx = (cb.sampleIdx + 1) % responseWindow
	if cb.sampleCount < responseWindow {
		cb.sampleCount++
	}

	var transitioned bool
	var newState State
	if err != nil {
		transitioned, newState = cb.onFailureLocked(err)
	} else {
		transitioned, newState = cb.onSuccessLocked()
	}
	cb.mu.Unlock()

	if transitioned {
		cb.notify(newState)
	}
}

func (cb *CircuitBreaker) onSuccessLocked() (bool, State) {
	cb.totalSuccesses++
	cb.lastSuccess = time.Now()

	switch cb.state {
	case StateClosed:
		// Any single success forgives the whole failure streak.
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 0
			return true, StateClosed
		}
	}
	return false, cb.state
}

func (cb *CircuitBreaker) onFailureLocked(err error) (bool, State) {
	cb.totalFailures++
	cb.lastFailure = time.Now()

	// Skip-classified errors are observed but never move the state machine.
	if cb.cfg.ShouldSkip != nil && cb.cfg.ShouldSkip(err) {
		return false, cb.state
	}

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.openLocked()
			return true, StateOpen
		}
	case StateHalfOpen:
		// A single failed probe distrusts the dependency again.
		cb.openLocked()
		return true, StateOpen
	}
	return false, cb.state
}

func (cb *CircuitBreaker) openLocked() {
	cb.state = StateOpen
	cb.successes = 0
	cb.nextAttempt = time.Now().Add(cb.cfg.RecoveryTimeout)
}

func (cb *CircuitBreaker) notify(s State) {
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(s)
	}
}

// State returns the current state without advancing the recovery timer.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// IsHealthy reports whether the breaker is CLOSED.
func (cb *CircuitBreaker) IsHealthy() bool {
	return cb.State() == StateClosed
}

// ForceState is an administrative override for ops tooling. Forcing CLOSED
// resets the consecutive streaks; the total counters are never reset.
func (cb *CircuitBreaker) ForceState(s State) {
	cb.mu.Lock()
	changed := cb.state != s
	cb.state = s
	switch s {
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
	case StateOpen:
		cb.nextAttempt = time.Now().Add(cb.cfg.RecoveryTimeout)
	case StateHalfOpen:
		cb.successes = 0
	}
	cb.mu.Unlock()

	if changed {
		cb.notify(s)
	}
}

// Stats returns a snapshot; safe to call from any goroutine.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	var total time.Duration
	for i := 0; i < cb.sampleCount; i++ {
		total += cb.samples[i]
	}
	var avg time.Duration
	if cb.sampleCount > 0 {
		avg = total / time.Duration(cb.sampleCount)
	}

	return Stats{
		Name:                cb.cfg.Name,
		State:               cb.state,
		StateName:           cb.state.String(),
		Failures:            cb.failures,
		Successes:           cb.successes,
		TotalRequests:       cb.totalRequests,
		TotalFailures:       cb.totalFailures,
		TotalSuccesses:      cb.totalSuccesses,
		LastFailureTime:     cb.lastFailure,
		LastSuccessTime:     cb.lastSuccess,
		AverageResponseTime: avg,
	}
}

// Do is a typed wrapper over Execute for callers that want a concrete result
// type instead of any. A fallback value of a different type yields the zero
// value.
func Do[T any](ctx context.Context, cb *CircuitBreaker, op func(ctx context.Context) (T, error)) (T, error) {
	value, err := cb.Execute(ctx, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, nil
	}
	return typed, nil
}
