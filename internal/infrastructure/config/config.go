package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all static application configuration.
// Carrier and email credentials are runtime settings stored in the database, not here.
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Outbox      OutboxConfig
	Idempotency IdempotencyConfig
	Shop        ShopConfig
	Stripe      StripeConfig
	FX          FXConfig
	VIES        VIESConfig
	Storage     StorageConfig
	PDF         PDFConfig
	Kafka       KafkaConfig
	Search      SearchConfig
	Swagger     SwaggerConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        string // silent, error, warn, info
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings. An empty host disables Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	Issuer                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	MaxRefreshCount        int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	TrustedProxies    []string
}

// OutboxConfig controls the background event delivery worker
type OutboxConfig struct {
	Enabled          bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupRetention time.Duration
}

// IdempotencyConfig controls duplicate suppression for webhooks and event handlers
type IdempotencyConfig struct {
	TTL time.Duration
}

// ShopConfig holds pricing and storefront settings
type ShopConfig struct {
	PublicURL             string // storefront base URL used in redirects and emails
	AdminURL              string // back-office base URL linked from staff alerts
	VATRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FeeInPostLocker       decimal.Decimal
	FeeInPostCourier      decimal.Decimal
	FeeGLSCourier         decimal.Decimal
	HomeCountry           string
	CarrierTimeout        time.Duration
	NotificationTimeout   time.Duration
	// Seller block printed on invoices
	SellerName    string
	SellerAddress string
	SellerVATID   string
	// First administrator, created at startup when both are set
	AdminEmail    string
	AdminPassword string
}

// StripeConfig holds Stripe API settings
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIURL        string // override for tests and stripe-mock
	SessionTTL    time.Duration
	Timeout       time.Duration
}

// FXConfig configures the exchange-rate feed
type FXConfig struct {
	URL      string
	CacheTTL time.Duration
	Timeout  time.Duration
	Targets  []string
}

// VIESConfig configures the EU VAT validation service
type VIESConfig struct {
	URL     string
	Timeout time.Duration
}

// StorageConfig configures S3-compatible object storage. An empty bucket disables it.
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicURL       string
	PresignTTL      time.Duration
}

// PDFConfig configures headless Chrome invoice rendering
type PDFConfig struct {
	Enabled    bool
	ChromePath string
	Timeout    time.Duration
}

// KafkaConfig configures the optional order event forwarder
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// SearchConfig configures the optional Elasticsearch product index
type SearchConfig struct {
	Enabled   bool
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// SwaggerConfig holds Swagger endpoint configuration
type SwaggerConfig struct {
	Enabled  bool
	Username string
	Password string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	LogsEnabled       bool
	ProfilingEnabled  bool
	PyroscopeURL      string
}

// Load reads configuration with this priority (highest first):
//  1. SHOP_* environment variables (e.g. SHOP_DATABASE_PASSWORD)
//  2. variables from a .env file in the working directory
//  3. config.toml (or the file named by CONFIG_FILE)
//  4. built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			Issuer:                 v.GetString("jwt.issuer"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Outbox: OutboxConfig{
			Enabled:          !v.IsSet("outbox.enabled") || v.GetBool("outbox.enabled"),
			BatchSize:        v.GetInt("outbox.batch_size"),
			PollInterval:     v.GetDuration("outbox.poll_interval"),
			MaxRetries:       v.GetInt("outbox.max_retries"),
			CleanupRetention: v.GetDuration("outbox.cleanup_retention"),
		},
		Idempotency: IdempotencyConfig{
			TTL: v.GetDuration("idempotency.ttl"),
		},
		Shop: ShopConfig{
			PublicURL:           v.GetString("shop.public_url"),
			AdminURL:            v.GetString("shop.admin_url"),
			HomeCountry:         v.GetString("shop.home_country"),
			CarrierTimeout:      v.GetDuration("shop.carrier_timeout"),
			NotificationTimeout: v.GetDuration("shop.notification_timeout"),
			SellerName:          v.GetString("shop.seller_name"),
			SellerAddress:       v.GetString("shop.seller_address"),
			SellerVATID:         v.GetString("shop.seller_vat_id"),
			AdminEmail:          v.GetString("shop.admin_email"),
			AdminPassword:       v.GetString("shop.admin_password"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("stripe.secret_key"),
			WebhookSecret: v.GetString("stripe.webhook_secret"),
			APIURL:        v.GetString("stripe.api_url"),
			SessionTTL:    v.GetDuration("stripe.session_ttl"),
			Timeout:       v.GetDuration("stripe.timeout"),
		},
		FX: FXConfig{
			URL:      v.GetString("fx.url"),
			CacheTTL: v.GetDuration("fx.cache_ttl"),
			Timeout:  v.GetDuration("fx.timeout"),
			Targets:  v.GetStringSlice("fx.targets"),
		},
		VIES: VIESConfig{
			URL:     v.GetString("vies.url"),
			Timeout: v.GetDuration("vies.timeout"),
		},
		Storage: StorageConfig{
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			PublicURL:       v.GetString("storage.public_url"),
			PresignTTL:      v.GetDuration("storage.presign_ttl"),
		},
		PDF: PDFConfig{
			Enabled:    v.GetBool("pdf.enabled"),
			ChromePath: v.GetString("pdf.chrome_path"),
			Timeout:    v.GetDuration("pdf.timeout"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Search: SearchConfig{
			Enabled:   v.GetBool("search.enabled"),
			Addresses: v.GetStringSlice("search.addresses"),
			Username:  v.GetString("search.username"),
			Password:  v.GetString("search.password"),
			Index:     v.GetString("search.index"),
		},
		Swagger: SwaggerConfig{
			Enabled:  v.GetBool("swagger.enabled"),
			Username: v.GetString("swagger.username"),
			Password: v.GetString("swagger.password"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeURL:      v.GetString("telemetry.pyroscope_url"),
		},
	}

	var err error
	if cfg.Shop.VATRate, err = decimalSetting(v, "shop.vat_rate", "0.23"); err != nil {
		return nil, err
	}
	if cfg.Shop.FreeShippingThreshold, err = decimalSetting(v, "shop.free_shipping_threshold", "500"); err != nil {
		return nil, err
	}
	if cfg.Shop.FeeInPostLocker, err = decimalSetting(v, "shop.fee_inpost_locker", "13.99"); err != nil {
		return nil, err
	}
	if cfg.Shop.FeeInPostCourier, err = decimalSetting(v, "shop.fee_inpost_courier", "17.99"); err != nil {
		return nil, err
	}
	if cfg.Shop.FeeGLSCourier, err = decimalSetting(v, "shop.fee_gls_courier", "19.99"); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decimalSetting reads a money/rate value as a string so it never passes through float64
func decimalSetting(v *viper.Viper, key, def string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		raw = def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q: %w", key, raw, err)
	}
	return d, nil
}

func applyDefaults(cfg *Config) {
	setString(&cfg.App.Name, "dronehub-backend")
	setString(&cfg.App.Env, "development")
	setString(&cfg.App.Port, "8080")

	setString(&cfg.Database.Host, "localhost")
	setInt(&cfg.Database.Port, 5432)
	setString(&cfg.Database.User, "postgres")
	setString(&cfg.Database.DBName, "dronehub")
	setString(&cfg.Database.SSLMode, "disable")
	setInt(&cfg.Database.MaxOpenConns, 25)
	setInt(&cfg.Database.MaxIdleConns, 5)
	setDuration(&cfg.Database.ConnMaxLifetime, time.Hour)
	setDuration(&cfg.Database.ConnMaxIdleTime, 30*time.Minute)
	setString(&cfg.Database.LogLevel, "warn")
	setDuration(&cfg.Database.SlowThreshold, 200*time.Millisecond)

	setInt(&cfg.Redis.Port, 6379)

	setString(&cfg.JWT.Issuer, "dronehub")
	setDuration(&cfg.JWT.AccessTokenExpiration, 15*time.Minute)
	setDuration(&cfg.JWT.RefreshTokenExpiration, 7*24*time.Hour)
	setInt(&cfg.JWT.MaxRefreshCount, 30)
	if cfg.JWT.Secret == "" && !cfg.App.IsProduction() {
		cfg.JWT.Secret = "dev-only-secret-change-me-0123456789"
	}
	setString(&cfg.JWT.RefreshSecret, cfg.JWT.Secret+"-refresh")

	setString(&cfg.Log.Level, "info")
	setString(&cfg.Log.Format, "console")
	setString(&cfg.Log.Output, "stdout")

	setDuration(&cfg.HTTP.ReadTimeout, 15*time.Second)
	setDuration(&cfg.HTTP.WriteTimeout, 30*time.Second)
	setDuration(&cfg.HTTP.IdleTimeout, 60*time.Second)
	setDuration(&cfg.HTTP.ShutdownTimeout, 20*time.Second)
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	setInt(&cfg.HTTP.RateLimitRequests, 120)
	setDuration(&cfg.HTTP.RateLimitWindow, time.Minute)

	setInt(&cfg.Outbox.BatchSize, 50)
	setDuration(&cfg.Outbox.PollInterval, 2*time.Second)
	setInt(&cfg.Outbox.MaxRetries, 5)
	setDuration(&cfg.Outbox.CleanupRetention, 14*24*time.Hour)

	setDuration(&cfg.Idempotency.TTL, 72*time.Hour)

	setString(&cfg.Shop.PublicURL, "http://localhost:3000")
	setString(&cfg.Shop.AdminURL, strings.TrimRight(cfg.Shop.PublicURL, "/")+"/admin")
	setString(&cfg.Shop.HomeCountry, "PL")
	setDuration(&cfg.Shop.CarrierTimeout, 15*time.Second)
	setDuration(&cfg.Shop.NotificationTimeout, 10*time.Second)
	setString(&cfg.Shop.SellerName, "DroneHub")

	setDuration(&cfg.Stripe.SessionTTL, 30*time.Minute)
	setDuration(&cfg.Stripe.Timeout, 20*time.Second)

	setString(&cfg.FX.URL, "https://api.nbp.pl/api/exchangerates/tables/A?format=json")
	setDuration(&cfg.FX.CacheTTL, time.Hour)
	setDuration(&cfg.FX.Timeout, 10*time.Second)
	if len(cfg.FX.Targets) == 0 {
		cfg.FX.Targets = []string{"EUR", "USD"}
	}

	setString(&cfg.VIES.URL, "https://ec.europa.eu/taxation_customs/vies/services/checkVatService")
	setDuration(&cfg.VIES.Timeout, 15*time.Second)

	setString(&cfg.Storage.Region, "eu-central-1")
	setDuration(&cfg.Storage.PresignTTL, 15*time.Minute)

	setDuration(&cfg.PDF.Timeout, 30*time.Second)

	setString(&cfg.Kafka.Topic, "shop.orders")
	setString(&cfg.Search.Index, "products")

	setString(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	setString(&cfg.Telemetry.ServiceName, cfg.App.Name)
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Shop.VATRate.IsNegative() || c.Shop.VATRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("shop.vat_rate must be between 0 and 1")
	}
	if c.Shop.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("shop.free_shipping_threshold cannot be negative")
	}
	if len(c.Shop.HomeCountry) != 2 {
		return fmt.Errorf("shop.home_country must be a 2-letter code")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Search.Enabled && len(c.Search.Addresses) == 0 {
		return fmt.Errorf("search.addresses is required when search is enabled")
	}

	if !c.App.IsProduction() {
		return nil
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 characters in production")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	if c.Stripe.SecretKey == "" || c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe.secret_key and stripe.webhook_secret are required in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
		}
	}
	if c.Swagger.Enabled && (c.Swagger.Username == "" || c.Swagger.Password == "") {
		return fmt.Errorf("swagger must be disabled or protected with credentials in production")
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}
