package handler

import (
	"context"
	"fmt"
	"net/http"

	shippingapp "github.com/dronehub/backend/internal/application/shipping"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shipping"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentDispatcher registers parcels with carriers
type ShipmentDispatcher interface {
	Dispatch(ctx context.Context, orderID uuid.UUID, req shippingapp.DispatchRequest) (*shippingapp.DispatchResult, error)
	Label(ctx context.Context, orderID uuid.UUID) (*shipping.Label, error)
}

// ShipmentHandler handles carrier shipments for admins
type ShipmentHandler struct {
	BaseHandler
	dispatcher ShipmentDispatcher
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(dispatcher ShipmentDispatcher) *ShipmentHandler {
	return &ShipmentHandler{dispatcher: dispatcher}
}

// DimensionsRequest is a custom parcel size in millimetres
type DimensionsRequest struct {
	Length int `json:"length" binding:"required,min=1,max=2000"`
	Width  int `json:"width" binding:"required,min=1,max=2000"`
	Height int `json:"height" binding:"required,min=1,max=2000"`
}

// ShipmentRequest describes the parcel to send
type ShipmentRequest struct {
	// Carrier overrides the carrier implied by the shipping method
	Carrier    string             `json:"carrier" binding:"omitempty,oneof=inpost gls"`
	Mode       string             `json:"mode" binding:"omitempty,oneof=locker address"`
	Size       string             `json:"size" binding:"omitempty,oneof=A B C custom"`
	Dimensions *DimensionsRequest `json:"dimensions"`
	WeightKg   decimal.Decimal    `json:"weight_kg"`
	// CODAmount defaults to the order total for cash on delivery orders
	CODAmount *decimal.Decimal `json:"cod_amount"`
	Reference string           `json:"reference" binding:"max=100"`
}

// ShipmentResponse reports the created parcel
type ShipmentResponse struct {
	Carrier        order.Carrier `json:"carrier"`
	ShipmentID     string        `json:"shipment_id"`
	TrackingNumber string        `json:"tracking_number"`
	Status         string        `json:"status,omitempty"`
	TrackingURL    string        `json:"tracking_url,omitempty"`
	Order          OrderResponse `json:"order"`
}

// Dispatch godoc
// @ID           adminCreateShipment
// @Summary      Ship an order
// @Description  Registers the parcel with InPost or GLS and marks the order SHIPPED.
// @Description  Carrier credentials come from the settings store; an unconfigured carrier fails closed.
// @Tags         admin-shipments
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body ShipmentRequest true "Parcel"
// @Success      201 {object} APIResponse[ShipmentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/shipments [post]
func (h *ShipmentHandler) Dispatch(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ShipmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	parcel := shipping.Parcel{Size: shipping.PackageSize(req.Size), WeightKg: req.WeightKg}
	if parcel.Size == "" {
		parcel.Size = shipping.SizeA
	}
	if d := req.Dimensions; d != nil {
		parcel.Dimensions = &shipping.Dimensions{Length: d.Length, Width: d.Width, Height: d.Height}
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), id, shippingapp.DispatchRequest{
		Carrier:   order.Carrier(req.Carrier),
		Mode:      shipping.Mode(req.Mode),
		Parcel:    parcel,
		CODAmount: req.CODAmount,
		Reference: req.Reference,
		Actor:     actor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ShipmentResponse{
		Carrier:        result.Shipment.Carrier,
		ShipmentID:     result.Shipment.ShipmentID,
		TrackingNumber: result.Shipment.TrackingNumber,
		Status:         result.Shipment.Status,
		TrackingURL:    result.TrackingURL,
		Order:          toOrderResponse(result.Order),
	})
}

// Label godoc
// @ID           adminShipmentLabel
// @Summary      Download the shipping label
// @Tags         admin-shipments
// @Produce      application/pdf
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/shipments/label [get]
func (h *ShipmentHandler) Label(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	label, err := h.dispatcher.Label(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	contentType := label.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="label-%s.pdf"`, id))
	c.Data(http.StatusOK, contentType, label.Data)
}
