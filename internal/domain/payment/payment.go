package payment

import (
	"context"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EventKind is the provider-neutral meaning of a webhook event
type EventKind string

const (
	EventCheckoutCompleted EventKind = "checkout_completed"
	EventCheckoutExpired   EventKind = "checkout_expired"
	EventPaymentFailed     EventKind = "payment_failed"
	EventIgnored           EventKind = "ignored"
)

// Event is a verified webhook notification
type Event struct {
	ID   string
	Type string
	Kind EventKind
	// OrderID comes from the session or payment intent metadata. uuid.Nil when absent.
	OrderID   uuid.UUID
	SessionID string
	PaymentID string
	// Paid is false for completed sessions whose asynchronous payment is still pending
	Paid          bool
	FailureReason string
}

// SessionRequest asks the provider for a hosted checkout page
type SessionRequest struct {
	Order      *order.Order
	SuccessURL string
	CancelURL  string
}

// Session is a hosted checkout page the customer is redirected to
type Session struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// Gateway talks to the payment provider
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
	// ParseWebhook verifies the signature header and decodes the event
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

var (
	ErrInvalidSignature   = shared.NewDomainError("INVALID_SIGNATURE", "Webhook signature verification failed")
	ErrSessionFailed      = shared.NewDomainError("PAYMENT_SESSION_FAILED", "Could not start the payment, please try again")
	ErrMissingOrderID     = shared.NewDomainError("INVALID_INPUT", "Payment event carries no order id")
	ErrGatewayUnavailable = shared.NewDomainError("PAYMENT_UNAVAILABLE", "Online payments are not configured")
)
