package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerProvider ships zap entries to the collector as OTLP log records.
// A nil or disabled provider yields a no-op core.
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
}

// NewLoggerProvider runs before the process logger exists, so it reports
// through the bootstrap logger it is given.
func NewLoggerProvider(ctx context.Context, cfg Config, bootstrap *zap.Logger) (*LoggerProvider, error) {
	if !cfg.Enabled {
		return &LoggerProvider{}, nil
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, fmt.Errorf("log resource: %w", err)
	}
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}

	lp := NewLoggerProviderWithProcessor(sdklog.NewBatchProcessor(exp), sdklog.WithResource(res))
	global.SetLoggerProvider(lp.provider)
	bootstrap.Info("Log export enabled", zap.String("collector_endpoint", cfg.CollectorEndpoint))
	return lp, nil
}

// NewLoggerProviderWithProcessor is an enabled provider around processor.
// Tests pass a simple processor over a recording exporter.
func NewLoggerProviderWithProcessor(p sdklog.Processor, opts ...sdklog.LoggerProviderOption) *LoggerProvider {
	return &LoggerProvider{provider: sdklog.NewLoggerProvider(append(opts, sdklog.WithProcessor(p))...)}
}

func (lp *LoggerProvider) IsEnabled() bool { return lp != nil && lp.provider != nil }

// Core is the zap core to tee beside the console one. Entries below level
// stay local since otelzap exports everything it is handed.
func (lp *LoggerProvider) Core(service string, level zapcore.Level) zapcore.Core {
	if !lp.IsEnabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(service, otelzap.WithLoggerProvider(lp.provider))
	if filtered, err := zapcore.NewIncreaseLevelCore(core, level); err == nil {
		return filtered
	}
	return core
}

// Shutdown flushes buffered records, giving up after shutdownTimeout
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if !lp.IsEnabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := lp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("logger provider shutdown: %w", err)
	}
	return nil
}
