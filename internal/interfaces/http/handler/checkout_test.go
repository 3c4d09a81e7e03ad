package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/dronehub/backend/internal/application/checkout"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/payment"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderPlacer struct {
	mock.Mock
}

func (m *MockOrderPlacer) PlaceOrder(ctx context.Context, req checkout.Request) (*checkout.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Result), args.Error(1)
}

func checkoutRouter(placer OrderPlacer, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	h := NewCheckoutHandler(placer)
	r.POST("/checkout", append(mw, h.Checkout)...)
	return r
}

func validCheckoutBody(productID uuid.UUID) map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"product_id": productID, "quantity": 2, "variant": "5\"", "price": "0.01"},
		},
		"address": map[string]any{
			"kind":      "locker",
			"recipient": map[string]any{"name": "Jan Kowalski", "email": "jan@example.pl", "phone": "600 700 800"},
			"locker_id": "krk01m",
		},
		"shipping_method": "inpost_locker",
		"payment_method":  "card",
	}
}

func TestCheckout_PlacesOrder(t *testing.T) {
	placer := new(MockOrderPlacer)
	productID := uuid.New()
	userID := uuid.New()
	placer.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req checkout.Request) bool {
		return len(req.Lines) == 1 &&
			req.Lines[0].ProductID == productID &&
			req.Lines[0].Quantity == 2 &&
			req.Address.LockerID == "KRK01M" &&
			req.UserID != nil && *req.UserID == userID &&
			req.PaymentMethod == order.PaymentMethodCard
	})).Return(&checkout.Result{
		OrderID:       uuid.New(),
		OrderNumber:   17,
		DisplayNumber: "DH-000017",
		Status:        order.StatusPending,
		PaymentMethod: order.PaymentMethodCard,
		Totals: order.Totals{
			Subtotal:     decimal.NewFromInt(200),
			ShippingCost: decimal.RequireFromString("14.99"),
			Tax:          decimal.RequireFromString("49.45"),
			Total:        decimal.RequireFromString("264.44"),
		},
		RedirectURL: "https://checkout.stripe.com/c/pay/cs_test_1",
	}, nil)

	w, resp := doJSON(t, checkoutRouter(placer, asUser(userID, "CUSTOMER")), http.MethodPost, "/checkout", validCheckoutBody(productID))

	require.Equal(t, http.StatusCreated, w.Code)
	var out CheckoutResponse
	dataAs(t, resp, &out)
	assert.Equal(t, int64(17), out.OrderNumber)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", out.RedirectURL)
	assert.True(t, out.Total.Equal(out.Subtotal.Add(out.ShippingCost).Add(out.Tax)))
	placer.AssertExpectations(t)
}

func TestCheckout_EmptyCartRejectedBeforeService(t *testing.T) {
	placer := new(MockOrderPlacer)
	body := validCheckoutBody(uuid.New())
	body["items"] = []any{}

	w, resp := doJSON(t, checkoutRouter(placer), http.MethodPost, "/checkout", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_CART", resp.Error.Code)
	placer.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestCheckout_LockerMethodWithoutLockerID(t *testing.T) {
	placer := new(MockOrderPlacer)
	body := validCheckoutBody(uuid.New())
	body["address"].(map[string]any)["locker_id"] = ""

	w, resp := doJSON(t, checkoutRouter(placer), http.MethodPost, "/checkout", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LOCKER_ID_REQUIRED", resp.Error.Code)
	placer.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestCheckout_InvalidPaymentMethod(t *testing.T) {
	body := validCheckoutBody(uuid.New())
	body["payment_method"] = "bitcoin"

	w, resp := doJSON(t, checkoutRouter(new(MockOrderPlacer)), http.MethodPost, "/checkout", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestCheckout_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"out of stock", shared.ErrInsufficientStock.WithMessage("only 1 left"), http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{"payment session", payment.ErrSessionFailed, http.StatusBadGateway, "PAYMENT_SESSION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			placer := new(MockOrderPlacer)
			placer.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, tt.err)

			w, resp := doJSON(t, checkoutRouter(placer), http.MethodPost, "/checkout", validCheckoutBody(uuid.New()))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
