package metrics

import (
	"context"
	"sync/atomic"
	"time"
)

// Metrics represents the current state of the minutes pipeline.
type Metrics struct {
	// EventsReceived counts accepted webhook events
	EventsReceived int64 `json:"events_received"`

	// EventsCompleted counts pipeline runs that reached completed
	EventsCompleted int64 `json:"events_completed"`

	// EventsFailed counts pipeline runs that reached failed
	EventsFailed int64 `json:"events_failed"`

	// RetriesAttempted counts transcript fetch retries across all runs
	RetriesAttempted int64 `json:"retries_attempted"`

	// InFlight is the number of pipeline runs currently executing
	InFlight int64 `json:"in_flight"`

	// ProcessingMs is the cumulative wall-clock time of terminal runs
	ProcessingMs int64 `json:"processing_ms"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// Recorder is the write side used by the pipeline
type Recorder interface {
	EventReceived()
	EventCompleted(d time.Duration)
	EventFailed(d time.Duration)
	RetryAttempted()
	PipelineStarted()
	PipelineFinished()
}

// Collector is the read side used by exporters
type Collector interface {
	Collect(ctx context.Context) (Metrics, error)
}

// PipelineMetrics is an in-memory Recorder/Collector backed by atomics,
// safe for concurrent pipeline runs
type PipelineMetrics struct {
	received     atomic.Int64
	completed    atomic.Int64
	failed       atomic.Int64
	retries      atomic.Int64
	inFlight     atomic.Int64
	processingMs atomic.Int64
}

// NewPipelineMetrics creates an empty metrics recorder
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{}
}

func (m *PipelineMetrics) EventReceived() {
	m.received.Add(1)
}

func (m *PipelineMetrics) EventCompleted(d time.Duration) {
	m.completed.Add(1)
	m.processingMs.Add(d.Milliseconds())
}

func (m *PipelineMetrics) EventFailed(d time.Duration) {
	m.failed.Add(1)
	m.processingMs.Add(d.Milliseconds())
}

func (m *PipelineMetrics) RetryAttempted() {
	m.retries.Add(1)
}

func (m *PipelineMetrics) PipelineStarted() {
	m.inFlight.Add(1)
}

func (m *PipelineMetrics) PipelineFinished() {
	m.inFlight.Add(-1)
}

// Collect gathers a consistent-enough snapshot of the counters
func (m *PipelineMetrics) Collect(_ context.Context) (Metrics, error) {
	return Metrics{
		EventsReceived:   m.received.Load(),
		EventsCompleted:  m.completed.Load(),
		EventsFailed:     m.failed.Load(),
		RetriesAttempted: m.retries.Load(),
		InFlight:         m.inFlight.Load(),
		ProcessingMs:     m.processingMs.Load(),
		Timestamp:        time.Now(),
	}, nil
}
