package notification

import (
	"context"

	"github.com/dronehub/backend/internal/domain/shared"
)

// Email is a rendered message ready to send
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// SMS is a short text message. To is an MSISDN such as 48600100200.
type SMS struct {
	To   string
	Text string
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// SMSSender delivers text messages
type SMSSender interface {
	// Enabled reports whether SMS delivery is switched on
	Enabled(ctx context.Context) bool
	Send(ctx context.Context, msg SMS) error
}

var (
	ErrNotConfigured  = shared.NewDomainError("NOTIFICATION_NOT_CONFIGURED", "Notification channel is not configured")
	ErrDeliveryFailed = shared.NewDomainError("NOTIFICATION_FAILED", "Notification could not be delivered")
	ErrNoRecipient    = shared.NewDomainError("INVALID_INPUT", "Notification has no recipient")
)
