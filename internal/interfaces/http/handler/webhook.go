package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/dronehub/backend/internal/application/payment"
	"github.com/gin-gonic/gin"
)

// Stripe events are small; anything larger is not from Stripe
const maxWebhookPayloadSize = 65536

// WebhookProcessor applies verified payment provider events
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*payment.WebhookResult, error)
}

// StripeWebhookHandler receives Stripe events. It is not behind authentication;
// the signature is the credential.
type StripeWebhookHandler struct {
	BaseHandler
	processor WebhookProcessor
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler
func NewStripeWebhookHandler(processor WebhookProcessor) *StripeWebhookHandler {
	return &StripeWebhookHandler{processor: processor}
}

// HandleStripeWebhook godoc
// @ID           handleStripeWebhook
// @Summary      Stripe webhook
// @Description  Verifies the Stripe-Signature header and applies checkout and payment events.
// @Description  Repeated deliveries of one event are acknowledged without side effects.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Stripe webhook signature"
// @Success      200 {object} APIResponse[payment.WebhookResult]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /webhooks/stripe [post]
func (h *StripeWebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Payload too large")
		return
	}

	result, err := h.processor.ProcessWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		// non-2xx makes Stripe retry, which is what transient failures need
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
