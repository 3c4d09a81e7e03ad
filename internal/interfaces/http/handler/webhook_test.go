package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dronehub/backend/internal/application/payment"
	domainpayment "github.com/dronehub/backend/internal/domain/payment"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*payment.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookResult), args.Error(1)
}

func webhookRouter(p WebhookProcessor) *gin.Engine {
	r := gin.New()
	r.POST("/webhooks/stripe", NewStripeWebhookHandler(p).HandleStripeWebhook)
	return r
}

func postWebhook(r http.Handler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStripeWebhook_PassesRawBodyAndSignature(t *testing.T) {
	p := new(MockWebhookProcessor)
	body := `{"id":"evt_1","type":"checkout.session.completed"}`
	p.On("ProcessWebhook", mock.Anything, []byte(body), "t=1,v1=abc").
		Return(&payment.WebhookResult{EventID: "evt_1", EventType: "checkout.session.completed", Outcome: payment.OutcomeApplied, OrderNumber: 3}, nil)

	w := postWebhook(webhookRouter(p), body, "t=1,v1=abc")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"event_id":"evt_1"`)
	p.AssertExpectations(t)
}

func TestStripeWebhook_InvalidSignatureIs400(t *testing.T) {
	p := new(MockWebhookProcessor)
	p.On("ProcessWebhook", mock.Anything, mock.Anything, "").Return(nil, domainpayment.ErrInvalidSignature)

	w := postWebhook(webhookRouter(p), `{}`, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SIGNATURE")
}

func TestStripeWebhook_TransientErrorAsksForRetry(t *testing.T) {
	p := new(MockWebhookProcessor)
	p.On("ProcessWebhook", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("database is locked"))

	w := postWebhook(webhookRouter(p), `{}`, "t=1,v1=abc")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStripeWebhook_PayloadTooLarge(t *testing.T) {
	p := new(MockWebhookProcessor)

	w := postWebhook(webhookRouter(p), strings.Repeat("x", maxWebhookPayloadSize+1), "t=1,v1=abc")

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	p.AssertNotCalled(t, "ProcessWebhook", mock.Anything, mock.Anything, mock.Anything)
}
