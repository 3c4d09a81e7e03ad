package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/dronehub/backend/internal/application/catalog"
	"github.com/dronehub/backend/internal/application/checkout"
	currencyapp "github.com/dronehub/backend/internal/application/currency"
	eventapp "github.com/dronehub/backend/internal/application/event"
	identityapp "github.com/dronehub/backend/internal/application/identity"
	"github.com/dronehub/backend/internal/application/notification"
	orderapp "github.com/dronehub/backend/internal/application/order"
	paymentapp "github.com/dronehub/backend/internal/application/payment"
	printingapp "github.com/dronehub/backend/internal/application/printing"
	settingapp "github.com/dronehub/backend/internal/application/setting"
	"github.com/dronehub/backend/internal/application/shipping"
	taxapp "github.com/dronehub/backend/internal/application/tax"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	shippingdomain "github.com/dronehub/backend/internal/domain/shipping"
	"github.com/dronehub/backend/internal/infrastructure/auth"
	"github.com/dronehub/backend/internal/infrastructure/cache"
	"github.com/dronehub/backend/internal/infrastructure/carrier"
	"github.com/dronehub/backend/internal/infrastructure/config"
	"github.com/dronehub/backend/internal/infrastructure/event"
	"github.com/dronehub/backend/internal/infrastructure/fx"
	"github.com/dronehub/backend/internal/infrastructure/logger"
	"github.com/dronehub/backend/internal/infrastructure/messaging"
	mailer "github.com/dronehub/backend/internal/infrastructure/notification"
	"github.com/dronehub/backend/internal/infrastructure/payment"
	"github.com/dronehub/backend/internal/infrastructure/persistence"
	"github.com/dronehub/backend/internal/infrastructure/printing"
	"github.com/dronehub/backend/internal/infrastructure/search"
	"github.com/dronehub/backend/internal/infrastructure/storage"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/dronehub/backend/internal/infrastructure/vies"
	"github.com/dronehub/backend/internal/interfaces/http/handler"
	"github.com/dronehub/backend/internal/interfaces/http/middleware"
	"github.com/dronehub/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/dronehub/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			DroneHub API
//	@version		1.0
//	@description	Drone parts store backend: catalog, checkout, payments, shipping and back office.

//	@contact.name	DroneHub Engineering
//	@contact.email	dev@dronehub.example.com

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	authAttemptsPerMinute = 10
	checkoutsPerMinute    = 20
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
	}

	// Log export is set up before the real logger so every later line reaches the collector
	var logsProvider *telemetry.LoggerProvider
	var extraCores []zapcore.Core
	if cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled {
		bootstrap, _ := zap.NewProduction()
		logsProvider, err = telemetry.NewLoggerProvider(ctx, otelCfg, bootstrap)
		if err != nil {
			panic("Failed to initialize log exporter: " + err.Error())
		}
		extraCores = append(extraCores, logsProvider.Core(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, extraCores...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting DroneHub backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeURL,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Warn("Continuous profiling disabled", zap.Error(err))
	}
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link spans to profiles", zap.Error(err))
		}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
		if err := logsProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  meterProvider.Meter("dronehub"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to initialize business metrics", zap.Error(err))
	}

	// Database
	const slowQuery = 200 * time.Millisecond
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), slowQuery)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbInstrumentation, err := telemetry.InstrumentDB(db.DB, meterProvider, telemetry.DBConfig{
		TraceEnabled:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:             cfg.Database.DBName,
		SlowQueryThreshold: slowQuery,
	}, log)
	if err != nil {
		log.Warn("Database instrumentation unavailable", zap.Error(err))
	}
	defer dbInstrumentation.Stop()
	log.Info("Database connected successfully")

	// Redis is optional; every consumer has an in-process fallback
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, using in-process fallbacks", zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
		}
	}

	// Repositories and outbox
	codec := event.NewShopCodec()
	outboxPublisher := event.NewOutboxPublisher(codec, cfg.Outbox.MaxRetries)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	orderRepo := persistence.NewGormOrderRepository(db.DB, outboxPublisher)
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)
	productRepo := persistence.NewGormProductRepository(db.DB, outboxPublisher)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	brandRepo := persistence.NewGormBrandRepository(db.DB)
	reviewRepo := persistence.NewGormReviewRepository(db.DB)
	settingRepo := persistence.NewGormSettingRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	idempotencyStore, err := cache.NewIdempotencyStore(redisClient, cfg.App.IsProduction(), log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotencyStore.Close() }()

	// Settings: local TTL snapshot, invalidated across replicas through Redis pub/sub
	settingOpts := []settingapp.Option{}
	if redisClient != nil {
		invalidator := cache.NewRedisSettingInvalidator(redisClient, "dronehub:settings", log)
		defer func() { _ = invalidator.Close() }()
		settingOpts = append(settingOpts, settingapp.WithInvalidator(invalidator))
	}
	settings := settingapp.NewService(settingRepo, log, settingOpts...)
	go func() {
		if err := settings.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Setting invalidation listener stopped", zap.Error(err))
		}
	}()

	// Object storage
	var objectStorage shared.ObjectStorage
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3(&cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.Warn("Storage bucket check failed", zap.String("bucket", s3Storage.Bucket()), zap.Error(err))
		}
		objectStorage = s3Storage
	} else {
		log.Warn("No storage bucket configured, keeping uploads in memory")
		objectStorage = storage.NewMemoryObjectStorage(cfg.Storage.PublicURL)
	}

	// External integrations
	carrierClient := &http.Client{Timeout: cfg.Shop.CarrierTimeout}
	notifyClient := &http.Client{Timeout: cfg.Shop.NotificationTimeout}

	gateway, err := payment.NewStripeGateway(payment.StripeConfigFrom(cfg.Stripe), log)
	if err != nil {
		log.Fatal("Failed to initialize Stripe gateway", zap.Error(err))
	}
	taxService := taxapp.NewService(
		vies.NewClient(cfg.VIES.URL, &http.Client{Timeout: cfg.VIES.Timeout}, log),
		cfg.Shop.HomeCountry, log,
	)
	currencyCfg := currencyapp.Config{
		Provider: fx.NewNBPProvider(cfg.FX.URL, &http.Client{Timeout: cfg.FX.Timeout}, log),
		Targets:  cfg.FX.Targets,
		TTL:      cfg.FX.CacheTTL,
		Logger:   log,
	}
	if redisClient != nil {
		currencyCfg.Shared = cache.NewRedisJSONCache(redisClient, "dronehub:fx:", log)
	}
	currencyService := currencyapp.NewService(currencyCfg)

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	}
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)
	if cfg.Shop.AdminEmail != "" && cfg.Shop.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Shop.AdminEmail, cfg.Shop.AdminPassword); err != nil {
			log.Fatal("Failed to provision administrator", zap.Error(err))
		}
	}

	var searcher catalogapp.ProductSearcher
	var productIndex *search.ProductIndex
	if cfg.Search.Enabled {
		esClient, err := search.NewClient(ctx, cfg.Search)
		if err != nil {
			log.Warn("Search cluster unavailable, falling back to SQL matching", zap.Error(err))
		} else {
			productIndex = search.NewProductIndex(esClient, cfg.Search.Index, log)
			if err := productIndex.EnsureIndex(ctx); err != nil {
				log.Fatal("Failed to create product index", zap.Error(err))
			}
			searcher = productIndex
		}
	}

	taxonomyService := catalogapp.NewTaxonomyService(categoryRepo, brandRepo)
	productService := catalogapp.NewProductService(catalogapp.ProductServiceConfig{
		Products:        productRepo,
		Categories:      categoryRepo,
		Brands:          brandRepo,
		Reviews:         reviewRepo,
		Storage:         objectStorage,
		Searcher:        searcher,
		UploadURLExpiry: cfg.Storage.PresignTTL,
		Logger:          log,
	})
	reviewService := catalogapp.NewReviewService(reviewRepo, productRepo, log)

	checkoutService := checkout.NewService(checkout.Config{
		Products: productRepo,
		Orders:   orderRepo,
		Scope:    txScope,
		Gateway:  gateway,
		VAT:      taxService,
		Pricing: order.PricingPolicy{
			VATRate:               cfg.Shop.VATRate,
			FreeShippingThreshold: cfg.Shop.FreeShippingThreshold,
			FlatFees: map[order.ShippingMethod]decimal.Decimal{
				order.ShippingInPostLocker:  cfg.Shop.FeeInPostLocker,
				order.ShippingInPostCourier: cfg.Shop.FeeInPostCourier,
				order.ShippingGLSCourier:    cfg.Shop.FeeGLSCourier,
			},
		},
		PublicURL: cfg.Shop.PublicURL,
		Metrics:   metrics,
		Logger:    log,
	})
	orderService := orderapp.NewService(orderRepo, txScope, log)
	webhookService := paymentapp.NewWebhookService(paymentapp.WebhookServiceConfig{
		Gateway:     gateway,
		Scope:       txScope,
		Idempotency: idempotencyStore,
		EventTTL:    cfg.Idempotency.TTL,
		Metrics:     metrics,
		Logger:      log,
	})
	shipmentDispatcher := shipping.NewDispatcher(shipping.DispatcherConfig{
		Carriers: []shippingdomain.Carrier{
			carrier.NewInPostAdapter(settings, carrierClient, log),
			carrier.NewGLSAdapter(settings, carrierClient, log),
		},
		Orders:  orderRepo,
		Scope:   txScope,
		Storage: objectStorage,
		Metrics: metrics,
		Logger:  log,
	})

	var renderer printing.PDFRenderer = printing.DisabledRenderer{}
	if cfg.PDF.Enabled {
		renderer = printing.NewChromedpRenderer(printing.ChromedpConfig{
			DefaultTimeout: cfg.PDF.Timeout,
			ExecPath:       cfg.PDF.ChromePath,
			NoSandbox:      os.Geteuid() == 0,
			Logger:         log,
		})
	}
	defer func() { _ = renderer.Close() }()
	invoiceService, err := printingapp.NewInvoiceService(printingapp.InvoiceServiceConfig{
		Orders:   orderRepo,
		Renderer: renderer,
		Storage:  objectStorage,
		Seller: printingapp.Seller{
			Name:    cfg.Shop.SellerName,
			Address: cfg.Shop.SellerAddress,
			VATID:   cfg.Shop.SellerVATID,
		},
		VATRate: cfg.Shop.VATRate,
		Logger:  log,
	})
	if err != nil {
		log.Fatal("Failed to initialize invoice service", zap.Error(err))
	}
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	// Event handlers, delivered by the outbox processor
	templates, err := notification.NewRenderer()
	if err != nil {
		log.Fatal("Failed to parse notification templates", zap.Error(err))
	}
	notifyCfg := notification.Config{
		Orders:    orderRepo,
		Settings:  settings,
		Mailer:    mailer.NewMailer(settings, notifyClient, log),
		SMS:       mailer.NewSMSGateway(settings, notifyClient, log),
		Renderer:  templates,
		PublicURL: cfg.Shop.PublicURL,
		AdminURL:  cfg.Shop.AdminURL,
		Metrics:   metrics,
		Logger:    log,
	}
	subscribers := []shared.EventHandler{
		notification.NewCustomerNotifier(notifyCfg),
		notification.NewAdminNotifier(notifyCfg),
	}
	if cfg.Kafka.Enabled {
		forwarder := messaging.NewOrderEventForwarder(messaging.NewWriter(cfg.Kafka), log)
		defer func() { _ = forwarder.Close() }()
		subscribers = append(subscribers, forwarder)
	}
	if productIndex != nil {
		subscribers = append(subscribers, productIndex)
	}

	eventDispatcher := event.NewDispatcher(log)
	for _, h := range subscribers {
		eventDispatcher.Subscribe(event.NewIdempotentHandler(h, idempotencyStore, cfg.Idempotency.TTL, log,
			event.WithDuplicateMetrics(metrics),
		))
	}

	if cfg.Outbox.Enabled {
		relay := event.NewRelay(outboxRepo, eventDispatcher, codec, event.RelayConfig{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
			Retention:    cfg.Outbox.CleanupRetention,
		}, log, event.WithRelayMetrics(metrics))
		relay.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := relay.Stop(stopCtx); err != nil {
				log.Error("Error stopping outbox relay", zap.Error(err))
			}
		}()
	}

	// HTTP handlers
	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	routes := &router.Handlers{
		System:     handler.NewSystemHandler(version, checks),
		Auth:       handler.NewAuthHandler(authService),
		Products:   handler.NewProductHandler(productService),
		Categories: handler.NewCategoryHandler(taxonomyService),
		Brands:     handler.NewBrandHandler(taxonomyService),
		Reviews:    handler.NewReviewHandler(reviewService),
		Checkout:   handler.NewCheckoutHandler(checkoutService),
		Orders:     handler.NewOrderHandler(orderService),
		Webhooks:   handler.NewStripeWebhookHandler(webhookService),
		VAT:        handler.NewVATHandler(taxService),
		Currency:   handler.NewCurrencyHandler(currencyService),
		AdminOrder: handler.NewAdminOrderHandler(orderService, invoiceService),
		Shipments:  handler.NewShipmentHandler(shipmentDispatcher),
		Settings:   handler.NewSettingHandler(settings),
		Outbox:     handler.NewOutboxHandler(outboxService),
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: request id, panic recovery, access log, tracing and metrics,
	// security headers, CORS, body limit, per-request deadline.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}), middleware.SpanTags())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
		Enabled:          cfg.Telemetry.ProfilingEnabled,
		SkipPathPrefixes: []string{"/health", "/swagger"},
	}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(cfg.HTTP.CORSAllowOrigins...))
	// The webhook handler enforces its own, smaller limit on the raw payload
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize, "/api/v1/webhooks/"))
	engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	guards := router.Guards{
		Auth:         middleware.JWTAuthMiddleware(authService, log),
		OptionalAuth: middleware.OptionalJWTAuthMiddleware(authService),
		Admin:        middleware.RequireAdmin(log),
	}
	if cfg.HTTP.RateLimitEnabled {
		guards.AuthLimit = middleware.RateLimitByKey(newLimiter(ctx, redisClient, "auth", authAttemptsPerMinute, time.Minute), "auth", middleware.RateLimitKey, log)
		guards.CheckoutLimit = middleware.RateLimitByKey(newLimiter(ctx, redisClient, "checkout", checkoutsPerMinute, time.Minute), "checkout", middleware.RateLimitKey, log)
		engine.Use(middleware.RateLimit(newLimiter(ctx, redisClient, "global", cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow), log))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
			zap.Bool("shared", redisClient != nil),
		)
	}

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:  cfg.Swagger.Enabled,
			Username: cfg.Swagger.Username,
			Password: cfg.Swagger.Password,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)
	router.Mount(engine, *routes, guards)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           engine,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout + 5*time.Second,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

// newLimiter shares counters across replicas when Redis is up
func newLimiter(ctx context.Context, client *redis.Client, scope string, limit int, period time.Duration) middleware.Limiter {
	if client != nil {
		return middleware.NewRedisLimiter(client, "dronehub:ratelimit:"+scope+":", limit, period)
	}
	l := middleware.NewMemoryLimiter(limit, period)
	go l.Run(ctx)
	return l
}
