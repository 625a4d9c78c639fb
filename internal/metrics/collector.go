package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/sellerkit/resilience/internal/circuitbreaker"
)

type EventType string

const (
	EventCallSettled  EventType = "call_settled"
	EventCallRejected EventType = "call_rejected"
	EventStateChanged EventType = "state_changed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Breaker   string
	Duration  time.Duration
	Failed    bool
	NewState  circuitbreaker.State
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit sends an event without ever blocking the call path; events are shed
// when the buffer is full.
func (c *Collector) Emit(event MetricEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("metrics buffer full, dropping event",
			slog.String("type", string(event.Type)),
			slog.String("breaker", event.Breaker))
	}
}

// StateChangeHook returns a function suitable for
// circuitbreaker.Config.OnStateChange wired to the named breaker.
func (c *Collector) StateChangeHook(breaker string) func(circuitbreaker.State) {
	return func(s circuitbreaker.State) {
		c.Emit(MetricEvent{
			Type:      EventStateChanged,
			Timestamp: time.Now(),
			Breaker:   breaker,
			NewState:  s,
		})
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventCallSettled:
		c.metrics.RecordCall(event.Breaker, event.Duration, event.Failed)

	case EventCallRejected:
		c.metrics.RecordRejection(event.Breaker)

	case EventStateChanged:
		c.metrics.RecordTransition(event.Breaker, event.NewState)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
