package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/skillsenselab/whisperd/internal/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the metric instruments for the transcription service.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestActive   metric.Int64UpDownCounter
	inferenceDur    metric.Float64Histogram
	modelLoadDur    metric.Float64Histogram
	stagedBytes     metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("transcription.request.total",
		metric.WithDescription("Total number of transcription requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.request.total counter: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("transcription.request.active",
		metric.WithDescription("Number of transcription requests in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.request.active gauge: %w", err)
	}

	inferenceDur, err := meter.Float64Histogram("transcription.inference.duration",
		metric.WithDescription("Duration of inference calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.inference.duration histogram: %w", err)
	}

	modelLoadDur, err := meter.Float64Histogram("transcription.model.load.duration",
		metric.WithDescription("Duration of the one-time model load in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.model.load.duration histogram: %w", err)
	}

	stagedBytes, err := meter.Int64Counter("transcription.staged.bytes",
		metric.WithDescription("Total bytes staged to disk for inference"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.staged.bytes counter: %w", err)
	}

	return &Metrics{
		requestTotal:  requestTotal,
		requestActive: requestActive,
		inferenceDur:  inferenceDur,
		modelLoadDur:  modelLoadDur,
		stagedBytes:   stagedBytes,
	}, nil
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the completed
// request with its inference duration.
func (m *Metrics) RecordRequestEnd(ctx context.Context, status string, quick bool, duration time.Duration) {
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("quick", quick),
	))
	m.inferenceDur.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Bool("quick", quick),
	))
}

// RecordModelLoad records the outcome and duration of the one-time load.
func (m *Metrics) RecordModelLoad(ctx context.Context, status string, duration time.Duration) {
	m.modelLoadDur.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordStagedBytes records how many bytes one upload staged to disk.
func (m *Metrics) RecordStagedBytes(ctx context.Context, n int64) {
	m.stagedBytes.Add(ctx, n)
}
