package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// AttrCallerRole labels requests as guest, customer or admin
	AttrCallerRole  = attribute.Key("caller.role")
	AttrStatusClass = attribute.Key("http.status_class")
)

type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
}

var sizeBuckets = []float64{100, 500, 1e3, 5e3, 1e4, 5e4, 1e5, 5e5, 1e6, 5e6}

type httpMetrics struct {
	requests  *telemetry.Counter
	latency   *telemetry.Histogram
	reqBytes  *telemetry.Histogram
	respBytes *telemetry.Histogram
	inFlight  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	var errs []error
	keep := func(err error) { errs = append(errs, err) }
	hist := func(name, desc, unit string, bounds []float64) *telemetry.Histogram {
		h, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
			Name: name, Description: desc, Unit: unit, Boundaries: bounds,
		})
		keep(err)
		return h
	}

	m := &httpMetrics{
		latency:   hist("http_server_request_duration_seconds", "HTTP request latency in seconds", "s", telemetry.HTTPDurationBuckets),
		reqBytes:  hist("http_server_request_size_bytes", "HTTP request body size in bytes", "By", sizeBuckets),
		respBytes: hist("http_server_response_size_bytes", "HTTP response body size in bytes", "By", sizeBuckets),
	}
	var err error
	m.requests, err = telemetry.NewCounter(meter, "http_server_request_total", "HTTP requests served", "{request}")
	keep(err)
	m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"))
	keep(err)
	return m, errors.Join(errs...)
}

// HTTPMetrics records one sample per request keyed by route pattern
// ("/api/v1/orders/:number"), never by raw path.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return httpMetricsOn(cfg.MeterProvider.Meter("http.server"))
}

func httpMetricsOn(meter metric.Meter) gin.HandlerFunc {
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.inFlight.Add(ctx, 1)
		c.Next()
		m.inFlight.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		m.latency.RecordDuration(ctx, time.Since(start), attrs...)
		if n := c.Request.ContentLength; n > 0 {
			m.reqBytes.Record(ctx, float64(n), attrs...)
		}
		if n := c.Writer.Size(); n > 0 {
			m.respBytes.Record(ctx, float64(n), attrs...)
		}
		m.requests.Inc(ctx, append(attrs,
			AttrStatusClass.String(statusClass(c.Writer.Status())),
			AttrCallerRole.String(callerRole(c)),
		)...)
	}
}

// callerRole is "guest" for anonymous requests and the lower-cased role claim otherwise
func callerRole(c *gin.Context) string {
	if role := GetJWTRole(c); role != "" {
		return strings.ToLower(role)
	}
	return "guest"
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return string(rune('0'+code/100)) + "xx"
}
