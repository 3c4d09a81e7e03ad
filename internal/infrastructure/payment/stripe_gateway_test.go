package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

func testGateway(t *testing.T, apiURL string) *StripeGateway {
	t.Helper()
	g, err := NewStripeGateway(&StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		APIURL:        apiURL,
	}, zap.NewNop())
	require.NoError(t, err)
	return g
}

func testOrder(t *testing.T, method order.PaymentMethod) *order.Order {
	t.Helper()
	addr, err := order.NewLockerShippingAddress(order.Recipient{
		Name: "Jan Kowalski", Email: "jan@example.pl", Phone: "+48 600 100 200",
	}, "WAW01M")
	require.NoError(t, err)
	o, err := order.New(order.PlaceParams{
		Lines: []order.LineInput{
			{ProductID: uuid.New(), Name: "Rama 5\"", UnitPrice: decimal.NewFromInt(100), Quantity: 2},
			{ProductID: uuid.New(), Name: "Silnik", Variant: "2306", UnitPrice: decimal.RequireFromString("49.99"), Quantity: 1},
		},
		Address:        addr,
		ShippingMethod: order.ShippingInPostLocker,
		PaymentMethod:  method,
		Pricing:        order.DefaultPricingPolicy(),
	})
	require.NoError(t, err)
	require.NoError(t, o.Place(42))
	return o
}

func signed(t *testing.T, payload map[string]any) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func TestStripeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StripeConfig
		wantErr string
	}{
		{"missing key", StripeConfig{WebhookSecret: "whsec"}, "secret key is required"},
		{"bad prefix", StripeConfig{SecretKey: "pk_test", WebhookSecret: "whsec"}, "must start with"},
		{"missing webhook secret", StripeConfig{SecretKey: "sk_test_1"}, "webhook secret"},
		{"ok", StripeConfig{SecretKey: "sk_test_1", WebhookSecret: "whsec"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, time.Hour, tt.cfg.SessionTTL)
				assert.Equal(t, "pln", tt.cfg.Currency)
				assert.True(t, tt.cfg.IsTestMode())
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	o := testOrder(t, order.PaymentMethodBLIK)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		f := r.PostForm

		assert.Equal(t, "payment", f.Get("mode"))
		assert.Equal(t, "blik", f.Get("payment_method_types[0]"))
		assert.Equal(t, o.ID.String(), f.Get("metadata[order_id]"))
		assert.Equal(t, o.ID.String(), f.Get("payment_intent_data[metadata][order_id]"))
		assert.Equal(t, "jan@example.pl", f.Get("customer_email"))
		assert.Equal(t, "checkout-"+o.ID.String(), r.Header.Get("Idempotency-Key"))

		assert.Equal(t, "10000", f.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "2", f.Get("line_items[0][quantity]"))
		assert.Equal(t, "Silnik (2306)", f.Get("line_items[1][price_data][product_data][name]"))
		assert.Equal(t, "1399", f.Get("line_items[2][price_data][unit_amount]"))
		assert.Equal(t, "VAT", f.Get("line_items[3][price_data][product_data][name]"))

		var sum int64
		for i := 0; i < 4; i++ {
			var amount, qty int64
			fmt.Sscan(f.Get(fmt.Sprintf("line_items[%d][price_data][unit_amount]", i)), &amount)
			fmt.Sscan(f.Get(fmt.Sprintf("line_items[%d][quantity]", i)), &qty)
			sum += amount * qty
		}
		assert.Equal(t, ToMinorUnits(o.Total), sum)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":         "cs_test_1",
			"object":     "checkout.session",
			"url":        "https://checkout.stripe.com/c/pay/cs_test_1",
			"expires_at": time.Now().Add(time.Hour).Unix(),
		})
	}))
	defer server.Close()

	g := testGateway(t, server.URL)
	sess, err := g.CreateCheckoutSession(context.Background(), payment.SessionRequest{
		Order:      o,
		SuccessURL: "https://shop.test/ok",
		CancelURL:  "https://shop.test/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)
	assert.False(t, sess.ExpiresAt.IsZero())
}

func TestStripeGateway_CreateCheckoutSession_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "invalid_request_error", "message": "p24 is not enabled"},
		})
	}))
	defer server.Close()

	g := testGateway(t, server.URL)
	_, err := g.CreateCheckoutSession(context.Background(), payment.SessionRequest{Order: testOrder(t, order.PaymentMethodP24)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create checkout session")
}

func TestStripeGateway_CreateCheckoutSession_RejectsCOD(t *testing.T) {
	g := testGateway(t, "http://127.0.0.1:1")
	_, err := g.CreateCheckoutSession(context.Background(), payment.SessionRequest{Order: testOrder(t, order.PaymentMethodCOD)})
	assert.Error(t, err)
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	g := testGateway(t, "")
	orderID := uuid.New()

	tests := []struct {
		name      string
		payload   map[string]any
		wantKind  payment.EventKind
		wantPaid  bool
		wantOrder uuid.UUID
		wantPayID string
	}{
		{
			name: "completed and paid",
			payload: map[string]any{
				"id": "evt_1", "object": "event", "type": "checkout.session.completed",
				"data": map[string]any{"object": map[string]any{
					"id": "cs_1", "object": "checkout.session", "payment_status": "paid",
					"payment_intent": "pi_1", "metadata": map[string]string{"order_id": orderID.String()},
				}},
			},
			wantKind: payment.EventCheckoutCompleted, wantPaid: true, wantOrder: orderID, wantPayID: "pi_1",
		},
		{
			name: "completed but async payment pending",
			payload: map[string]any{
				"id": "evt_2", "object": "event", "type": "checkout.session.completed",
				"data": map[string]any{"object": map[string]any{
					"id": "cs_2", "object": "checkout.session", "payment_status": "unpaid",
					"client_reference_id": orderID.String(),
				}},
			},
			wantKind: payment.EventCheckoutCompleted, wantPaid: false, wantOrder: orderID, wantPayID: "cs_2",
		},
		{
			name: "expired",
			payload: map[string]any{
				"id": "evt_3", "object": "event", "type": "checkout.session.expired",
				"data": map[string]any{"object": map[string]any{
					"id": "cs_3", "object": "checkout.session", "metadata": map[string]string{"order_id": orderID.String()},
				}},
			},
			wantKind: payment.EventCheckoutExpired, wantOrder: orderID, wantPayID: "cs_3",
		},
		{
			name: "payment intent failed",
			payload: map[string]any{
				"id": "evt_4", "object": "event", "type": "payment_intent.payment_failed",
				"data": map[string]any{"object": map[string]any{
					"id": "pi_4", "object": "payment_intent",
					"metadata":           map[string]string{"order_id": orderID.String()},
					"last_payment_error": map[string]any{"message": "Your card was declined."},
				}},
			},
			wantKind: payment.EventPaymentFailed, wantOrder: orderID, wantPayID: "pi_4",
		},
		{
			name: "unrelated type",
			payload: map[string]any{
				"id": "evt_5", "object": "event", "type": "customer.created",
				"data": map[string]any{"object": map[string]any{"id": "cus_1", "object": "customer"}},
			},
			wantKind: payment.EventIgnored, wantOrder: uuid.Nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, header := signed(t, tt.payload)
			ev, err := g.ParseWebhook(body, header)
			require.NoError(t, err)
			assert.Equal(t, tt.payload["id"], ev.ID)
			assert.Equal(t, tt.wantKind, ev.Kind)
			assert.Equal(t, tt.wantPaid, ev.Paid)
			assert.Equal(t, tt.wantOrder, ev.OrderID)
			assert.Equal(t, tt.wantPayID, ev.PaymentID)
		})
	}
}

func TestStripeGateway_ParseWebhook_FailureReason(t *testing.T) {
	g := testGateway(t, "")
	body, header := signed(t, map[string]any{
		"id": "evt_f", "object": "event", "type": "payment_intent.payment_failed",
		"data": map[string]any{"object": map[string]any{
			"id": "pi_f", "object": "payment_intent",
			"last_payment_error": map[string]any{"message": "Your card was declined."},
		}},
	})
	ev, err := g.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, "Your card was declined.", ev.FailureReason)
}

func TestStripeGateway_ParseWebhook_BadSignature(t *testing.T) {
	g := testGateway(t, "")
	body, _ := signed(t, map[string]any{"id": "evt_x", "object": "event", "type": "checkout.session.completed"})

	_, err := g.ParseWebhook(body, "")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)

	_, err = g.ParseWebhook(body, fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix()))
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)

	tampered, header := signed(t, map[string]any{"id": "evt_y", "object": "event", "type": "checkout.session.completed"})
	tampered[len(tampered)-1] = ' '
	_, err = g.ParseWebhook(tampered, header)
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1399), ToMinorUnits(decimal.RequireFromString("13.99")))
	assert.Equal(t, int64(10000), ToMinorUnits(decimal.NewFromInt(100)))
	assert.Equal(t, int64(5), ToMinorUnits(decimal.RequireFromString("0.045")))
}
