// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope profiling for the shop. Every provider degrades to a no-op
// when telemetry is switched off, so callers never branch on it.
package telemetry

import (
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// scope of spans started by this package
const scope = "github.com/dronehub/backend"

const shutdownTimeout = 10 * time.Second

// Config is shared by the trace, metric and log providers
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	ServiceVersion    string
	Insecure          bool
	// SamplingRatio applies to traces only: 1 samples everything, 0 nothing
	SamplingRatio float64
	// MetricsInterval is the export period of the metric reader, 60s when zero
	MetricsInterval time.Duration
}

func (c Config) resource() (*resource.Resource, error) {
	version := c.ServiceVersion
	if version == "" {
		version = "dev"
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(version),
	))
}
