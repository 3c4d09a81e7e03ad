package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dronehub/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://dronehub.pl"))
	r.GET("/api/v1/products", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	t.Run("allowed origin gets headers", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/v1/products", map[string]string{"Origin": "https://dronehub.pl"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://dronehub.pl", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), RequestIDKey)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("unknown origin gets none", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/v1/products", map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight answers 204", func(t *testing.T) {
		w := serve(r, http.MethodOptions, "/api/v1/products", map[string]string{"Origin": "https://dronehub.pl"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})

	t.Run("preflight from unknown origin still 204 without headers", func(t *testing.T) {
		w := serve(r, http.MethodOptions, "/api/v1/products", map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORS_Wildcard(t *testing.T) {
	r := gin.New()
	r.Use(CORS("*"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://anything.example"})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRequestID(t *testing.T) {
	var fromCtx, fromGin string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		fromGin = c.GetString("request_id")
		fromCtx = logger.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("keeps a well formed client id", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/x", map[string]string{RequestIDKey: "req-123"})
		assert.Equal(t, "req-123", w.Header().Get(RequestIDKey))
		assert.Equal(t, "req-123", fromGin)
		assert.Equal(t, "req-123", fromCtx)
	})

	t.Run("replaces a missing or hostile id", func(t *testing.T) {
		for _, in := range []string{"", strings.Repeat("a", 100), "x\ny"} {
			w := serve(r, http.MethodGet, "/x", map[string]string{RequestIDKey: in})
			_, err := uuid.Parse(w.Header().Get(RequestIDKey))
			assert.NoError(t, err)
		}
	})
}

func TestSecure(t *testing.T) {
	r := gin.New()
	r.Use(SecureWithConfig(SecurityConfig{
		HSTSMaxAge:      365 * 24 * time.Hour,
		ContentSecurity: "default-src 'none'",
	}))
	r.GET("/api/v1/products", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/swagger/index.html", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Empty(t, w.Header().Get("Permissions-Policy"))

	w = serve(r, http.MethodGet, "/swagger/index.html", nil)
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))
}

func TestSecure_Defaults(t *testing.T) {
	r := gin.New()
	r.Use(Secure())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", nil)
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Contains(t, w.Header().Get("Permissions-Policy"), "camera=()")
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) {
		_, hasDeadline := c.Request.Context().Deadline()
		assert.True(t, hasDeadline)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusGatewayTimeout, serve(r, http.MethodGet, "/slow", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/fast", nil).Code)
}
