package telemetry

import (
	"context"
	"fmt"
	"sync"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TracerProvider struct {
	provider *sdktrace.TracerProvider
	logger   *zap.Logger
	profiled sync.Once
}

// NewTracerProvider batches spans to the OTLP gRPC collector and installs
// itself with W3C trace context and baggage propagation.
func NewTracerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*TracerProvider, error) {
	if !cfg.Enabled {
		logger.Info("Tracing disabled")
		return &TracerProvider{logger: logger}, nil
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(cfg.SamplingRatio))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	logger.Info("Tracing enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
	)
	return &TracerProvider{provider: provider, logger: logger}, nil
}

// samplerFor clamps ratio to [0, 1]
func samplerFor(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	if ratio <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(ratio)
}

// EnableSpanProfiles labels CPU samples with the active span so Pyroscope
// links a slow checkout trace to its flame graph. Call it once the profiler
// runs; later calls do nothing.
func (tp *TracerProvider) EnableSpanProfiles() error {
	if !tp.IsEnabled() {
		return nil
	}
	tp.profiled.Do(func() {
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(tp.provider))
		tp.logger.Info("Span profiles enabled")
	})
	return nil
}

func (tp *TracerProvider) IsEnabled() bool { return tp.provider != nil }

// Shutdown flushes pending spans, giving up after shutdownTimeout
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if !tp.IsEnabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := tp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	return nil
}

func start(ctx context.Context, name string, kind trace.SpanKind, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(scope).Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
}

// StartSpan starts an internal span on the global provider
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, name, trace.SpanKindInternal, attrs)
}

// StartServiceSpan names the span "<service>.<method>", e.g. "checkout.place_order"
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, service+"."+method, trace.SpanKindInternal, attrs)
}

// StartClientSpan wraps a call to an outside service such as a carrier or VIES
func StartClientSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return start(ctx, service+"."+operation, trace.SpanKindClient, []attribute.KeyValue{AttrIntegration.String(service)})
}

// SetAttributes takes alternating keys and values. Pairs whose key is not
// a string are dropped.
func SetAttributes(span trace.Span, kv ...any) {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 1; i < len(kv); i += 2 {
		if key, ok := kv[i-1].(string); ok {
			attrs = append(attrs, toAttribute(key, kv[i]))
		}
	}
	span.SetAttributes(attrs...)
}

// RecordError marks the span failed; nil is ignored
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func toAttribute(key string, value any) attribute.KeyValue {
	k := attribute.Key(key)
	switch v := value.(type) {
	case string:
		return k.String(v)
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int64:
		return k.Int64(v)
	case float64:
		return k.Float64(v)
	case fmt.Stringer:
		return k.String(v.String())
	}
	return k.String(fmt.Sprint(value))
}
