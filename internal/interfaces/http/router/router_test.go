package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMount_GuardOrder(t *testing.T) {
	engine := gin.New()
	var trail []string
	mark := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			trail = append(trail, name)
			c.Next()
		}
	}
	Mount(engine, Handlers{}, Guards{
		Auth:          mark("auth"),
		OptionalAuth:  mark("optional"),
		Admin:         func(c *gin.Context) { trail = append(trail, "admin"); c.AbortWithStatus(http.StatusForbidden) },
		CheckoutLimit: func(c *gin.Context) { trail = append(trail, "limit"); c.AbortWithStatus(http.StatusTooManyRequests) },
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/"+APIVersion+"/admin/orders/42/status", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"auth", "admin"}, trail)

	trail = nil
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, []string{"limit"}, trail, "the budget is spent before the token is read")
}

func TestMount_RouteTable(t *testing.T) {
	engine := gin.New()
	Mount(engine, Handlers{}, Guards{})

	got := map[string]bool{}
	for _, r := range engine.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /api/v1/products",
		"GET /api/v1/products/:product",
		"POST /api/v1/products/:product/reviews",
		"POST /api/v1/checkout",
		"POST /api/v1/webhooks/stripe",
		"GET /api/v1/orders/track/:number",
		"POST /api/v1/vat/validate",
		"GET /api/v1/currency/convert",
		"POST /api/v1/auth/login",
		"GET /api/v1/me/orders",
		"PATCH /api/v1/admin/orders/:id/status",
		"POST /api/v1/admin/orders/:id/shipments",
		"GET /api/v1/admin/orders/:id/invoice",
		"PUT /api/v1/admin/settings/:key",
		"POST /api/v1/admin/outbox/:id/replay",
		"GET /api/v1/admin/outbox/dead",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestMount_AdminGuard(t *testing.T) {
	engine := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }
	pass := func(c *gin.Context) { c.Next() }
	Mount(engine, Handlers{}, Guards{Auth: pass, Admin: deny})

	for _, path := range []string{"/api/v1/admin/orders", "/api/v1/admin/settings", "/api/v1/admin/outbox/stats"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func TestChainSkipsNil(t *testing.T) {
	h := func(c *gin.Context) {}
	assert.Len(t, chain(nil, h, nil), 1)
}
