package router

import (
	"github.com/dronehub/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the HTTP handlers of the shop API
type Handlers struct {
	System     *handler.SystemHandler
	Auth       *handler.AuthHandler
	Products   *handler.ProductHandler
	Categories *handler.TaxonomyHandler
	Brands     *handler.TaxonomyHandler
	Reviews    *handler.ReviewHandler
	Checkout   *handler.CheckoutHandler
	Orders     *handler.OrderHandler
	Webhooks   *handler.StripeWebhookHandler
	VAT        *handler.VATHandler
	Currency   *handler.CurrencyHandler
	AdminOrder *handler.AdminOrderHandler
	Shipments  *handler.ShipmentHandler
	Settings   *handler.SettingHandler
	Outbox     *handler.OutboxHandler
}

// Guards are the middleware chains placed in front of route groups.
// Nil rate limiters are skipped.
type Guards struct {
	Auth          gin.HandlerFunc // 401 without a valid access token
	OptionalAuth  gin.HandlerFunc // reads a token when present
	Admin         gin.HandlerFunc // 403 for non-admins, after Auth
	AuthLimit     gin.HandlerFunc // login and register budget
	CheckoutLimit gin.HandlerFunc
}

// APIVersion prefixes every shop route
const APIVersion = "v1"

// Mount registers /health and the /api/v1 shop routes on engine
func Mount(engine *gin.Engine, h Handlers, g Guards) {
	engine.GET("/health", h.System.Health)

	api := engine.Group("/api/" + APIVersion)
	storefront(api, h, g)
	account(api, h, g)
	admin(api, h, g)
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// storefront holds the routes guests can call
func storefront(shop *gin.RouterGroup, h Handlers, g Guards) {
	shop.GET("/system/info", h.System.GetSystemInfo)

	shop.GET("/products", h.Products.List)
	shop.GET("/products/:product", h.Products.GetBySlug)
	shop.GET("/products/:product/reviews", h.Reviews.List)
	shop.POST("/products/:product/reviews", chain(g.Auth, h.Reviews.Create)...)
	shop.GET("/categories", h.Categories.List)
	shop.GET("/categories/:slug", h.Categories.Get)
	shop.GET("/brands", h.Brands.List)
	shop.GET("/brands/:slug", h.Brands.Get)

	shop.POST("/checkout", chain(g.CheckoutLimit, g.OptionalAuth, h.Checkout.Checkout)...)
	shop.GET("/orders/track/:number", chain(g.CheckoutLimit, h.Orders.Track)...)
	shop.POST("/webhooks/stripe", h.Webhooks.HandleStripeWebhook)

	shop.POST("/vat/validate", h.VAT.Validate)
	shop.GET("/currency/rates", h.Currency.Rates)
	shop.GET("/currency/convert", h.Currency.Convert)
}

// account holds authentication and the signed-in customer's own resources
func account(api *gin.RouterGroup, h Handlers, g Guards) {
	auth := api.Group("/auth")
	auth.POST("/register", chain(g.AuthLimit, h.Auth.Register)...)
	auth.POST("/login", chain(g.AuthLimit, h.Auth.Login)...)
	auth.POST("/refresh", chain(g.AuthLimit, h.Auth.Refresh)...)
	auth.POST("/logout", chain(g.Auth, h.Auth.Logout)...)

	me := api.Group("/me", chain(g.Auth)...)
	me.GET("", h.Auth.Me)
	me.PUT("", h.Auth.UpdateProfile)
	me.PUT("/password", h.Auth.ChangePassword)
	me.PUT("/addresses", h.Auth.ReplaceAddresses)
	me.GET("/orders", h.Orders.MyOrders)
	me.GET("/orders/:id", h.Orders.MyOrder)
}

// admin holds the back-office routes
func admin(api *gin.RouterGroup, h Handlers, g Guards) {
	adm := api.Group("/admin", chain(g.Auth, g.Admin)...)

	products := adm.Group("/products")
	products.GET("", h.Products.AdminList)
	products.POST("", h.Products.Create)
	products.GET("/:id", h.Products.Get)
	products.PUT("/:id", h.Products.Update)
	products.DELETE("/:id", h.Products.Delete)
	products.PUT("/:id/images", h.Products.ReplaceImages)
	products.POST("/:id/upload-url", h.Products.UploadURL)

	categories := adm.Group("/categories")
	categories.POST("", h.Categories.Create)
	categories.PUT("/:id", h.Categories.Update)
	categories.DELETE("/:id", h.Categories.Delete)

	brands := adm.Group("/brands")
	brands.POST("", h.Brands.Create)
	brands.PUT("/:id", h.Brands.Update)
	brands.DELETE("/:id", h.Brands.Delete)

	reviews := adm.Group("/reviews")
	reviews.GET("", h.Reviews.Pending)
	reviews.POST("/:id/approve", h.Reviews.Approve)
	reviews.DELETE("/:id", h.Reviews.Delete)

	orders := adm.Group("/orders")
	orders.GET("", h.AdminOrder.List)
	orders.GET("/:id", h.AdminOrder.Get)
	orders.PATCH("/:id", h.AdminOrder.UpdateDetails)
	orders.DELETE("/:id", h.AdminOrder.Delete)
	orders.PATCH("/:id/status", h.AdminOrder.ChangeStatus)
	orders.GET("/:id/audit", h.AdminOrder.Audit)
	orders.GET("/:id/invoice", h.AdminOrder.Invoice)
	orders.POST("/:id/shipments", h.Shipments.Dispatch)
	orders.GET("/:id/shipments/label", h.Shipments.Label)

	settings := adm.Group("/settings")
	settings.GET("", h.Settings.List)
	settings.PUT("/:key", h.Settings.Set)
	settings.DELETE("/:key", h.Settings.Delete)

	outbox := adm.Group("/outbox")
	outbox.GET("/stats", h.Outbox.Stats)
	outbox.GET("/dead", h.Outbox.DeadLetters)
	outbox.POST("/dead/replay", h.Outbox.ReplayAll)
	outbox.GET("/:id", h.Outbox.Get)
	outbox.POST("/:id/replay", h.Outbox.Replay)
}
