// Package middleware holds the gin middleware of the shop API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps client supplied request ids copied into spans
const MaxRequestIDLength = 128

type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// nil uses the global provider
	TracerProvider trace.TracerProvider
}

// Tracing opens one server span per request, named after the matched route
// ("GET /api/v1/products/:slug"). Pair it with SpanTags.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanTags must run inside Tracing. It waits for the rest of the chain so
// that the user set by the JWT middleware and the final status are known.
func SpanTags() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(spanAttributes(c)...)
		markStatus(span, c.Writer.Status())
	}
}

func spanAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := getRequestID(c); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if id := GetJWTUserID(c); id != "" {
		attrs = append(attrs, attribute.String("user_id", id))
	}
	if role := GetJWTRole(c); role != "" {
		attrs = append(attrs, attribute.String("user.role", role))
	}
	return attrs
}

// markStatus fails the span on 4xx, which otelgin leaves unset for server
// spans. otelgin itself fails 5xx spans after SpanTags returns and its
// status, with an empty description, is the one that is kept.
func markStatus(span trace.Span, status int) {
	if status < http.StatusBadRequest {
		return
	}
	if status < http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDKey)
	if len(id) > MaxRequestIDLength {
		id = id[:MaxRequestIDLength]
	}
	return id
}
