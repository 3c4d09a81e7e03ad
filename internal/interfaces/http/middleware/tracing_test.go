package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return sr, tp
}

func traced(tp *sdktrace.TracerProvider) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		Tracing(TracingConfig{ServiceName: "dronehub-test", Enabled: true, TracerProvider: tp}),
		SpanTags(),
	}
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracing_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false}), SpanTags())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTracing_SpanAttributes(t *testing.T) {
	sr, tp := setupTestTracer(t)
	authn := newTestAuthenticator()
	token, claims := issue(t, authn, RoleAdmin)

	router := gin.New()
	router.Use(RequestID())
	router.Use(traced(tp)...)
	admin := router.Group("/api/v1/admin", JWTAuthMiddleware(authn, nil))
	admin.GET("/orders/:number", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders/1042", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Contains(t, span.Name(), "/api/v1/admin/orders/:number")

	got, ok := spanAttr(span, "request_id")
	assert.True(t, ok)
	assert.Equal(t, "req-abc", got)
	got, _ = spanAttr(span, "user_id")
	assert.Equal(t, claims.UserID, got)
	got, _ = spanAttr(span, "user.role")
	assert.Equal(t, RoleAdmin, got)
	assert.Equal(t, codes.Error, span.Status().Code)
}

func TestSpanTags_Status(t *testing.T) {
	tests := []struct {
		status   int
		wantCode codes.Code
		wantDesc string
	}{
		{http.StatusOK, codes.Unset, ""},
		{http.StatusBadRequest, codes.Error, "Bad Request"},
		{http.StatusUnauthorized, codes.Error, "Unauthorized"},
		{http.StatusUnprocessableEntity, codes.Error, "Unprocessable Entity"},
		{http.StatusBadGateway, codes.Error, ""},
		{http.StatusInternalServerError, codes.Error, ""},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			sr, tp := setupTestTracer(t)
			router := gin.New()
			router.Use(traced(tp)...)
			router.GET("/x", func(c *gin.Context) { c.Status(tt.status) })

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantCode, spans[0].Status().Code)
			assert.Equal(t, tt.wantDesc, spans[0].Status().Description, "server errors carry no detail")
			if tt.status >= http.StatusBadRequest {
				got, ok := spanAttr(spans[0], "http.status_code")
				assert.True(t, ok)
				assert.Equal(t, strconv.Itoa(tt.status), got)
			}
		})
	}
}

func TestSpanTags_NoSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanTags())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRequestID(t *testing.T) {
	long := strings.Repeat("a", MaxRequestIDLength+50)
	tests := []struct {
		name    string
		ctxID   string
		header  string
		wantLen int
		want    string
	}{
		{"from context", "ctx-id", "hdr-id", 0, "ctx-id"},
		{"from header", "", "hdr-id", 0, "hdr-id"},
		{"truncated header", "", long, MaxRequestIDLength, ""},
		{"none", "", "", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.ctxID != "" {
				c.Set("request_id", tt.ctxID)
			}
			if tt.header != "" {
				c.Request.Header.Set("X-Request-ID", tt.header)
			}
			got := getRequestID(c)
			if tt.wantLen > 0 {
				assert.Len(t, got, tt.wantLen)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
