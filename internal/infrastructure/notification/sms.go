package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/notification"
	"github.com/dronehub/backend/internal/domain/setting"
	"go.uber.org/zap"
)

// defaultSMSAPIURL is the SMSAPI.pl send endpoint
const defaultSMSAPIURL = "https://api.smsapi.pl/sms.do"

// SMSGateway sends text messages through an SMSAPI-compatible HTTP gateway
type SMSGateway struct {
	settings   setting.Reader
	httpClient *http.Client
	logger     *zap.Logger
}

type smsResponse struct {
	Count int `json:"count"`
	List  []struct {
		ID     string `json:"id"`
		Number string `json:"number"`
		Status string `json:"status"`
	} `json:"list"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// NewSMSGateway creates a settings-driven SMS sender
func NewSMSGateway(settings setting.Reader, httpClient *http.Client, logger *zap.Logger) *SMSGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SMSGateway{settings: settings, httpClient: httpClient, logger: logger}
}

// Enabled reports whether sms.enabled is on
func (g *SMSGateway) Enabled(ctx context.Context) bool {
	v, ok, err := g.settings.Get(ctx, setting.SMSEnabled)
	if err != nil || !ok {
		return false
	}
	return setting.Values{setting.SMSEnabled: v}.Bool(setting.SMSEnabled)
}

// Send delivers one message
func (g *SMSGateway) Send(ctx context.Context, msg notification.SMS) error {
	to := NormalizeMSISDN(msg.To)
	if to == "" {
		return notification.ErrNoRecipient
	}
	v, err := g.settings.GetPrefix(ctx, setting.PrefixSMS)
	if err != nil {
		return fmt.Errorf("sms: failed to read settings: %w", err)
	}
	if !v.Bool(setting.SMSEnabled) {
		return notification.ErrNotConfigured.WithMessage("SMS delivery is disabled (%s)", setting.SMSEnabled)
	}
	if missing := v.Missing(setting.SMSAPIToken); len(missing) > 0 {
		return notification.ErrNotConfigured.WithMessage("SMS is missing settings: %s", strings.Join(missing, ", "))
	}

	form := url.Values{}
	form.Set("to", to)
	form.Set("message", msg.Text)
	form.Set("format", "json")
	form.Set("encoding", "utf-8")
	if from := v.String(setting.SMSSenderName, ""); from != "" {
		form.Set("from", from)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.String(setting.SMSAPIURL, defaultSMSAPIURL), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+v.String(setting.SMSAPIToken, ""))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return notification.ErrDeliveryFailed.WithMessage("SMS gateway: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out smsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return notification.ErrDeliveryFailed.WithMessage("SMS gateway: HTTP %d, unreadable response", resp.StatusCode)
	}
	// SMSAPI reports errors with HTTP 200 and an error code in the body
	if out.Error != 0 || resp.StatusCode >= 300 {
		return notification.ErrDeliveryFailed.WithMessage("SMS gateway: error %d: %s", out.Error, out.Message)
	}

	g.logger.Info("SMS sent", zap.Int("count", out.Count))
	return nil
}

// NormalizeMSISDN turns "+48 600-100-200" or "600100200" into "48600100200"
func NormalizeMSISDN(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 9 {
		return "48" + digits
	}
	if len(digits) < 9 {
		return ""
	}
	return digits
}

var _ notification.SMSSender = (*SMSGateway)(nil)
