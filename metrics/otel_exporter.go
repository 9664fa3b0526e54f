package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter exposes pipeline metrics through OpenTelemetry in
// Prometheus format
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector

	meter           metric.Meter
	eventsCounter   metric.Int64ObservableCounter
	outcomeCounter  metric.Int64ObservableCounter
	retriesCounter  metric.Int64ObservableCounter
	inFlightGauge   metric.Int64ObservableGauge
	processingTotal metric.Int64ObservableCounter
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"minutes-pipeline",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.eventsCounter, err = oe.meter.Int64ObservableCounter(
		"minutes.events.received",
		metric.WithDescription("Number of accepted webhook events"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeReceived),
	)
	if err != nil {
		return fmt.Errorf("creating events counter: %w", err)
	}

	oe.outcomeCounter, err = oe.meter.Int64ObservableCounter(
		"minutes.pipeline.outcomes",
		metric.WithDescription("Number of pipeline runs by terminal state"),
		metric.WithUnit("{runs}"),
		metric.WithInt64Callback(oe.observeOutcomes),
	)
	if err != nil {
		return fmt.Errorf("creating outcome counter: %w", err)
	}

	oe.retriesCounter, err = oe.meter.Int64ObservableCounter(
		"minutes.transcript.retries",
		metric.WithDescription("Number of transcript fetch retries"),
		metric.WithUnit("{retries}"),
		metric.WithInt64Callback(oe.observeRetries),
	)
	if err != nil {
		return fmt.Errorf("creating retries counter: %w", err)
	}

	oe.inFlightGauge, err = oe.meter.Int64ObservableGauge(
		"minutes.pipeline.in_flight",
		metric.WithDescription("Number of pipeline runs currently executing"),
		metric.WithUnit("{runs}"),
		metric.WithInt64Callback(oe.observeInFlight),
	)
	if err != nil {
		return fmt.Errorf("creating in-flight gauge: %w", err)
	}

	oe.processingTotal, err = oe.meter.Int64ObservableCounter(
		"minutes.pipeline.processing_time",
		metric.WithDescription("Cumulative pipeline processing time"),
		metric.WithUnit("ms"),
		metric.WithInt64Callback(oe.observeProcessingTime),
	)
	if err != nil {
		return fmt.Errorf("creating processing time counter: %w", err)
	}

	return nil
}

func (oe *OTelExporter) observeReceived(ctx context.Context, observer metric.Int64Observer) error {
	m, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}
	observer.Observe(m.EventsReceived)
	return nil
}

func (oe *OTelExporter) observeOutcomes(ctx context.Context, observer metric.Int64Observer) error {
	m, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}
	observer.Observe(m.EventsCompleted, metric.WithAttributes(
		attribute.String("pipeline.state", "completed"),
	))
	observer.Observe(m.EventsFailed, metric.WithAttributes(
		attribute.String("pipeline.state", "failed"),
	))
	return nil
}

func (oe *OTelExporter) observeRetries(ctx context.Context, observer metric.Int64Observer) error {
	m, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}
	observer.Observe(m.RetriesAttempted)
	return nil
}

func (oe *OTelExporter) observeInFlight(ctx context.Context, observer metric.Int64Observer) error {
	m, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}
	observer.Observe(m.InFlight)
	return nil
}

func (oe *OTelExporter) observeProcessingTime(ctx context.Context, observer metric.Int64Observer) error {
	m, err := oe.collector.Collect(ctx)
	if err != nil {
		return err
	}
	observer.Observe(m.ProcessingMs)
	return nil
}

// Handler serves Prometheus-formatted metrics
func (oe *OTelExporter) Handler() http.Handler {
	return promhttp.Handler()
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
