package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventProviderSelected EventType = "provider_selected"
	EventSelectionFailed  EventType = "selection_failed"
	EventOutcomeReported  EventType = "outcome_reported"
	EventBreakerChanged   EventType = "breaker_changed"
	EventHealthChanged    EventType = "health_changed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Provider  string
	TraceID   string
	Success   bool
	Healthy   bool
	Breaker   string
	Reason    string
}

// Collector receives metric events over a buffered channel and aggregates
// them off the selection path.
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

// Emit sends an event without blocking. Events are dropped when the buffer
// is full rather than stalling a selection.
func (c *Collector) Emit(event MetricEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("metric event dropped", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("metrics collector started")
	defer c.logger.Info("metrics collector stopped")

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
	case EventProviderSelected:
		c.metrics.RecordSelection(event.Provider)

	case EventSelectionFailed:
		c.metrics.RecordSelectionFailure()

	case EventOutcomeReported:
		c.metrics.RecordOutcome(event.Provider, event.Success)

	case EventBreakerChanged:
		c.metrics.RecordBreakerState(event.Provider, event.Breaker)

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Provider, event.Healthy)

	default:
		c.logger.Warn("unknown metric event type", slog.String("type", string(event.Type)))
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

// Snapshot returns the aggregated metrics.
func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
