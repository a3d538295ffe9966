package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	traceSDK "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	exportInterval  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Config holds telemetry configuration for a service
type Config struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
}

// Telemetry carries the tracer and the sales instruments of one service
type Telemetry struct {
	config      Config
	tracer      trace.Tracer
	meter       metric.Meter
	instruments *instruments
}

type instruments struct {
	operations        metric.Int64Counter
	operationDuration metric.Float64Histogram
	sagaTransitions   metric.Int64Counter
	httpRequests      metric.Int64Counter
	httpDuration      metric.Float64Histogram
}

// NewTelemetry builds a Telemetry on top of the global providers
func NewTelemetry(config Config) *Telemetry {
	meter := otel.Meter(config.ServiceName)
	return &Telemetry{
		config:      config,
		tracer:      otel.Tracer(config.ServiceName),
		meter:       meter,
		instruments: newInstruments(meter),
	}
}

// newInstruments falls back to no-op instruments if the meter rejects one
func newInstruments(meter metric.Meter) *instruments {
	var (
		ins  instruments
		errs [5]error
	)
	ins.operations, errs[0] = meter.Int64Counter("sales_operations_total",
		metric.WithDescription("Total sales operations"))
	ins.operationDuration, errs[1] = meter.Float64Histogram("sales_operation_duration_seconds",
		metric.WithDescription("Sales operation duration"), metric.WithUnit("s"))
	ins.sagaTransitions, errs[2] = meter.Int64Counter("sales_saga_transitions_total",
		metric.WithDescription("Saga step and compensation transitions"))
	ins.httpRequests, errs[3] = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total HTTP requests"))
	ins.httpDuration, errs[4] = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("s"))

	for _, err := range errs {
		if err != nil {
			otel.Handle(err)
			return newInstruments(noop.NewMeterProvider().Meter("noop"))
		}
	}
	return &ins
}

// InitTelemetry installs the global tracer and meter providers. Spans go to
// OTLP when an endpoint is set; metrics are always exposed to Prometheus.
func InitTelemetry(ctx context.Context, config Config) (*Telemetry, func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	tracerProvider, err := newTracerProvider(ctx, res, config.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}

	meterProvider, err := newMeterProvider(ctx, res, config.OTLPEndpoint)
	if err != nil {
		shutdownWithTimeout(tracerProvider.Shutdown)
		return nil, nil, err
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func() {
		shutdownWithTimeout(tracerProvider.Shutdown)
		shutdownWithTimeout(meterProvider.Shutdown)
	}

	return NewTelemetry(config), shutdown, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, otlpEndpoint string) (*traceSDK.TracerProvider, error) {
	opts := []traceSDK.TracerProviderOption{
		traceSDK.WithResource(res),
		traceSDK.WithSampler(traceSDK.ParentBased(traceSDK.AlwaysSample())),
	}

	if otlpEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(otlpEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, traceSDK.WithBatcher(exporter))
	}

	return traceSDK.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, otlpEndpoint string) (*metricSDK.MeterProvider, error) {
	// /metrics scrapes this reader
	promReader, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	opts := []metricSDK.Option{
		metricSDK.WithResource(res),
		metricSDK.WithReader(promReader),
	}

	if otlpEndpoint != "" {
		exporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(otlpEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, metricSDK.WithReader(
			metricSDK.NewPeriodicReader(exporter, metricSDK.WithInterval(exportInterval)),
		))
	}

	return metricSDK.NewMeterProvider(opts...), nil
}

func shutdownWithTimeout(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		otel.Handle(err)
	}
}

// StartSpan starts a span with this service's tracer
func (t *Telemetry) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// GetMeter returns the meter instance for creating custom metrics
func (t *Telemetry) GetMeter() metric.Meter {
	return t.meter
}

func (t *Telemetry) GetServiceName() string {
	return t.config.ServiceName
}

type contextKey struct{}

// WithTelemetry injects telemetry into context
func WithTelemetry(ctx context.Context, tel *Telemetry) context.Context {
	return context.WithValue(ctx, contextKey{}, tel)
}

// FromContext extracts telemetry from context
func FromContext(ctx context.Context) *Telemetry {
	if tel, ok := ctx.Value(contextKey{}).(*Telemetry); ok && tel != nil {
		return tel
	}
	return nil
}

var (
	fallbackOnce sync.Once
	fallback     *Telemetry
)

// current is the telemetry in ctx, or one bound to the global providers for
// code running outside an HTTP request (queue consumers, cron jobs)
func current(ctx context.Context) *Telemetry {
	if tel := FromContext(ctx); tel != nil {
		return tel
	}
	fallbackOnce.Do(func() {
		fallback = NewTelemetry(SalesServiceConfig)
	})
	return fallback
}

// StartSpan starts a new trace span using telemetry from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return current(ctx).StartSpan(ctx, name, opts...)
}

// GetServiceName returns service name from context
func GetServiceName(ctx context.Context) string {
	if tel := FromContext(ctx); tel != nil {
		return tel.GetServiceName()
	}
	return "unknown"
}

// RecordOperation records the counter and duration histogram of one use case run
func RecordOperation(ctx context.Context, operation, status string, start time.Time) {
	tel := current(ctx)
	attrs := metric.WithAttributes(
		attribute.String("service", tel.GetServiceName()),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	tel.instruments.operations.Add(ctx, 1, attrs)
	tel.instruments.operationDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

// RecordSagaTransition counts one saga audit event, e.g. saga.step.completed for reserve_vehicle
func RecordSagaTransition(ctx context.Context, eventType, step string) {
	tel := current(ctx)
	tel.instruments.sagaTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", tel.GetServiceName()),
		attribute.String("event_type", eventType),
		attribute.String("step", step),
	))
}

func recordHTTPRequest(ctx context.Context, tel *Telemetry, method, route, statusClass string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("service", tel.GetServiceName()),
		attribute.String("method", method),
		attribute.String("path", route),
		attribute.String("status_class", statusClass),
	)
	tel.instruments.httpRequests.Add(ctx, 1, attrs)
	tel.instruments.httpDuration.Record(ctx, elapsed.Seconds(), attrs)
}
