package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	shippingapp "github.com/dronehub/backend/internal/application/shipping"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shipping"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockShipmentDispatcher struct {
	mock.Mock
}

func (m *MockShipmentDispatcher) Dispatch(ctx context.Context, orderID uuid.UUID, req shippingapp.DispatchRequest) (*shippingapp.DispatchResult, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shippingapp.DispatchResult), args.Error(1)
}

func (m *MockShipmentDispatcher) Label(ctx context.Context, orderID uuid.UUID) (*shipping.Label, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Label), args.Error(1)
}

func shipmentRouter(d ShipmentDispatcher) *gin.Engine {
	r := gin.New()
	h := NewShipmentHandler(d)
	r.POST("/admin/orders/:id/shipments", h.Dispatch)
	r.GET("/admin/orders/:id/shipments/label", h.Label)
	return r
}

func TestDispatch_DefaultsToSizeA(t *testing.T) {
	d := new(MockShipmentDispatcher)
	o := sampleOrder(t)
	require.NoError(t, o.MarkPaid("pi_1", time.Now()))
	require.NoError(t, o.Ship(order.CarrierInPost, "1001", "6800000001"))
	d.On("Dispatch", mock.Anything, o.ID, mock.MatchedBy(func(req shippingapp.DispatchRequest) bool {
		return req.Parcel.Size == shipping.SizeA && req.Mode == shipping.ModeLocker
	})).Return(&shippingapp.DispatchResult{
		Order:       o,
		Shipment:    &shipping.Shipment{Carrier: order.CarrierInPost, ShipmentID: "1001", TrackingNumber: "6800000001", Status: "created"},
		TrackingURL: "https://inpost.pl/sledzenie-przesylek?number=6800000001",
	}, nil)

	w, resp := doJSON(t, shipmentRouter(d), http.MethodPost, "/admin/orders/"+o.ID.String()+"/shipments", map[string]any{"mode": "locker"})

	require.Equal(t, http.StatusCreated, w.Code)
	var out ShipmentResponse
	dataAs(t, resp, &out)
	assert.Equal(t, "6800000001", out.TrackingNumber)
	assert.Equal(t, order.StatusShipped, out.Order.Status)
	d.AssertExpectations(t)
}

func TestDispatch_CarrierErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"locker missing", order.ErrLockerIDRequired, http.StatusBadRequest, "LOCKER_ID_REQUIRED"},
		{"carrier not configured", shipping.ErrCarrierNotConfigured, http.StatusServiceUnavailable, "CARRIER_NOT_CONFIGURED"},
		{"carrier rejected", shipping.ErrCarrierRejected.WithMessage("invalid phone"), http.StatusBadGateway, "CARRIER_REJECTED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(MockShipmentDispatcher)
			d.On("Dispatch", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w, resp := doJSON(t, shipmentRouter(d), http.MethodPost, "/admin/orders/"+uuid.NewString()+"/shipments", map[string]any{})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestDispatch_RejectsUnknownSize(t *testing.T) {
	w, _ := doJSON(t, shipmentRouter(new(MockShipmentDispatcher)), http.MethodPost,
		"/admin/orders/"+uuid.NewString()+"/shipments", map[string]any{"size": "XL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLabel(t *testing.T) {
	d := new(MockShipmentDispatcher)
	id := uuid.New()
	d.On("Label", mock.Anything, id).Return(&shipping.Label{ContentType: "application/pdf", Data: []byte("%PDF")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/orders/"+id.String()+"/shipments/label", nil)
	w := httptest.NewRecorder()
	shipmentRouter(d).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", w.Body.String())
}
