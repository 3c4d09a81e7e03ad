package payment

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds the settings of the Stripe checkout gateway
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// APIURL points the client at stripe-mock or a test server. Empty means api.stripe.com.
	APIURL     string
	SessionTTL time.Duration
	Timeout    time.Duration
	Currency   string
	Locale     string
}

// StripeConfigFrom maps the static application config
func StripeConfigFrom(cfg config.StripeConfig) *StripeConfig {
	return &StripeConfig{
		SecretKey:     cfg.SecretKey,
		WebhookSecret: cfg.WebhookSecret,
		APIURL:        cfg.APIURL,
		SessionTTL:    cfg.SessionTTL,
		Timeout:       cfg.Timeout,
	}
}

// Validate checks the keys and fills defaults
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return errors.New("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return errors.New("stripe: secret key must start with sk_ or rk_")
	}
	if c.WebhookSecret == "" {
		return errors.New("stripe: webhook secret is required")
	}
	// Stripe accepts 30 minutes to 24 hours
	if c.SessionTTL < 30*time.Minute || c.SessionTTL > 24*time.Hour {
		c.SessionTTL = time.Hour
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Currency == "" {
		c.Currency = "pln"
	}
	if c.Locale == "" {
		c.Locale = "pl"
	}
	return nil
}

// IsTestMode reports whether the secret key is a test key
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.SecretKey, "sk_test_") || strings.HasPrefix(c.SecretKey, "rk_test_")
}

func (c *StripeConfig) backends() *stripe.Backends {
	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: c.Timeout},
		MaxNetworkRetries: stripe.Int64(2),
	}
	if c.APIURL != "" {
		bc.URL = stripe.String(c.APIURL)
		bc.MaxNetworkRetries = stripe.Int64(0)
	}
	return &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, bc),
		Connect: stripe.GetBackend(stripe.ConnectBackend),
		Uploads: stripe.GetBackend(stripe.UploadsBackend),
	}
}
