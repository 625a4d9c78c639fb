package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/sellerkit/resilience/internal/circuitbreaker"
)

type Metrics struct {
	mutex         sync.RWMutex
	calls         map[string]int64
	failures      map[string]int64
	rejections    map[string]int64
	transitions   map[string]map[string]int64
	states        map[string]circuitbreaker.State
	responseTimes map[string][]time.Duration
	startTime     time.Time
}

type Snapshot struct {
	TotalCalls int64                     `json:"total_calls"`
	Uptime     time.Duration             `json:"uptime"`
	Breakers   map[string]BreakerMetrics `json:"breakers"`
}

type BreakerMetrics struct {
	Calls       int64            `json:"calls"`
	Failures    int64            `json:"failures"`
	Rejections  int64            `json:"rejections"`
	State       string           `json:"state"`
	Transitions map[string]int64 `json:"transitions"`
	AvgResponse time.Duration    `json:"avg_response"`
	P50Response time.Duration    `json:"p50_response"`
	P95Response time.Duration    `json:"p95_response"`
	P99Response time.Duration    `json:"p99_response"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		calls:         make(map[string]int64),
		failures:      make(map[string]int64),
		rejections:    make(map[string]int64),
		transitions:   make(map[string]map[string]int64),
		states:        make(map[string]circuitbreaker.State),
		responseTimes: make(map[string][]time.Duration),
		startTime:     time.Now(),
	}
}

func (m *Metrics) RecordCall(breaker string, duration time.Duration, failed bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.calls[breaker]++
	if failed {
		m.failures[breaker]++
	}

	m.responseTimes[breaker] = append(m.responseTimes[breaker], duration)
	if len(m.responseTimes[breaker]) > 1000 {
		m.responseTimes[breaker] = m.responseTimes[breaker][1:]
	}
}

func (m *Metrics) RecordRejection(breaker string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejections[breaker]++
}

func (m *Metrics) RecordTransition(breaker string, to circuitbreaker.State) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.transitions[breaker] == nil {
		m.transitions[breaker] = make(map[string]int64)
	}
	m.transitions[breaker][to.String()]++
	m.states[breaker] = to
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Breakers: make(map[string]BreakerMetrics),
	}

	// Collect every breaker name seen on any path
	allBreakers := make(map[string]bool)
	for breaker := range m.calls {
		allBreakers[breaker] = true
	}
	for breaker := range m.rejections {
		allBreakers[breaker] = true
	}
	for breaker := range m.transitions {
		allBreakers[breaker] = true
	}

	for breaker := range allBreakers {
		snap.TotalCalls += m.calls[breaker]

		state, known := m.states[breaker]
		stateName := state.String()
		if !known {
			stateName = circuitbreaker.StateClosed.String()
		}

		bm := BreakerMetrics{
			Calls:       m.calls[breaker],
			Failures:    m.failures[breaker],
			Rejections:  m.rejections[breaker],
			State:       stateName,
			Transitions: m.transitions[breaker],
		}

		durations := m.responseTimes[breaker]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			bm.AvgResponse = average(sorted)
			bm.P50Response = percentile(sorted, 0.50)
			bm.P95Response = percentile(sorted, 0.95)
			bm.P99Response = percentile(sorted, 0.99)
		}

		snap.Breakers[breaker] = bm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
