package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/notification"
	"github.com/dronehub/backend/internal/domain/setting"
	"go.uber.org/zap"
)

// Email providers selectable with the email.provider setting
const (
	ProviderAPI  = "api"
	ProviderSMTP = "smtp"
	ProviderNone = "none"
)

// Mailer sends email through the provider chosen in the setting store:
// a transactional HTTP API (default) or plain SMTP.
type Mailer struct {
	settings   setting.Reader
	httpClient *http.Client
	logger     *zap.Logger
	smtpSend   smtpSendFunc
}

type mailConfig struct {
	provider string
	from     string
	fromName string
	apiURL   string
	apiKey   string
	smtpHost string
	smtpPort int
	smtpUser string
	smtpPass string
}

// NewMailer creates a settings-driven mailer
func NewMailer(settings setting.Reader, httpClient *http.Client, logger *zap.Logger) *Mailer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Mailer{settings: settings, httpClient: httpClient, logger: logger, smtpSend: defaultSMTPSend}
}

func (m *Mailer) loadConfig(ctx context.Context) (*mailConfig, error) {
	email, err := m.settings.GetPrefix(ctx, setting.PrefixEmail)
	if err != nil {
		return nil, fmt.Errorf("mailer: failed to read settings: %w", err)
	}
	cfg := &mailConfig{
		provider: strings.ToLower(email.String(setting.EmailProvider, ProviderAPI)),
		from:     email.String(setting.EmailFrom, ""),
		fromName: email.String(setting.EmailFromName, "DroneHub"),
		apiURL:   email.String(setting.EmailAPIURL, defaultEmailAPIURL),
		apiKey:   email.String(setting.EmailAPIKey, ""),
	}
	if cfg.provider == ProviderNone {
		return nil, notification.ErrNotConfigured.WithMessage("email delivery is switched off (%s=none)", setting.EmailProvider)
	}
	if cfg.from == "" {
		return nil, notification.ErrNotConfigured.WithMessage("email is missing setting %s", setting.EmailFrom)
	}

	switch cfg.provider {
	case ProviderAPI:
		if cfg.apiKey == "" {
			return nil, notification.ErrNotConfigured.WithMessage("email is missing setting %s", setting.EmailAPIKey)
		}
	case ProviderSMTP:
		smtp, err := m.settings.GetPrefix(ctx, setting.PrefixSMTP)
		if err != nil {
			return nil, fmt.Errorf("mailer: failed to read settings: %w", err)
		}
		if missing := smtp.Missing(setting.SMTPHost); len(missing) > 0 {
			return nil, notification.ErrNotConfigured.WithMessage("SMTP is missing settings: %s", strings.Join(missing, ", "))
		}
		cfg.smtpHost = smtp.String(setting.SMTPHost, "")
		cfg.smtpPort = smtp.Int(setting.SMTPPort, 587)
		cfg.smtpUser = smtp.String(setting.SMTPUsername, "")
		cfg.smtpPass = smtp.String(setting.SMTPPassword, "")
	default:
		return nil, notification.ErrNotConfigured.WithMessage("unknown email provider %q", cfg.provider)
	}
	return cfg, nil
}

// Send delivers msg
func (m *Mailer) Send(ctx context.Context, msg notification.Email) error {
	if len(msg.To) == 0 {
		return notification.ErrNoRecipient
	}
	cfg, err := m.loadConfig(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	switch cfg.provider {
	case ProviderSMTP:
		err = m.sendSMTP(cfg, msg)
	default:
		err = m.sendAPI(ctx, cfg, msg)
	}
	if err != nil {
		m.logger.Error("Failed to send email",
			zap.String("provider", cfg.provider),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return err
	}

	m.logger.Info("Email sent",
		zap.String("provider", cfg.provider),
		zap.String("subject", msg.Subject),
		zap.Int("recipients", len(msg.To)),
		zap.Duration("took", time.Since(start)))
	return nil
}

var _ notification.Mailer = (*Mailer)(nil)
