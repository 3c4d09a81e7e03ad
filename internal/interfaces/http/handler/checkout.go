package handler

import (
	"context"

	"github.com/dronehub/backend/internal/application/checkout"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPlacer places orders from a cart
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// CheckoutHandler serves the storefront checkout
type CheckoutHandler struct {
	BaseHandler
	placer OrderPlacer
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(placer OrderPlacer) *CheckoutHandler {
	return &CheckoutHandler{placer: placer}
}

// CartLineRequest is one cart line; price is informational and never trusted
type CartLineRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1,max=999"`
	Variant   string           `json:"variant" binding:"max=100"`
	Price     *decimal.Decimal `json:"price"`
}

// CheckoutRequest is the checkout payload
type CheckoutRequest struct {
	// Items may be empty in the payload; an empty cart is answered with EMPTY_CART
	Items          []CartLineRequest `json:"items" binding:"dive"`
	Address        AddressRequest    `json:"address" binding:"required"`
	ShippingMethod string            `json:"shipping_method" binding:"required,oneof=inpost_locker inpost_courier gls_courier"`
	PaymentMethod  string            `json:"payment_method" binding:"required,oneof=card p24 blik cod"`
	VATNumber      string            `json:"vat_number" binding:"omitempty,vat_id"`
	Notes          string            `json:"notes" binding:"max=1000"`
}

// CheckoutResponse tells the storefront where to send the buyer
type CheckoutResponse struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   int64               `json:"order_number"`
	DisplayNumber string              `json:"display_number"`
	Status        order.Status        `json:"status"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	ShippingCost  decimal.Decimal     `json:"shipping_cost"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.Decimal     `json:"total"`
	VATExempt     bool                `json:"vat_exempt"`
	RedirectURL   string              `json:"redirect_url"`
}

// Checkout godoc
// @ID           checkout
// @Summary      Place an order
// @Description  Prices the cart from the catalog, stores the order and opens a payment session.
// @Description  Cash on delivery orders skip the payment provider.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body CheckoutRequest true "Cart and delivery details"
// @Success      201 {object} APIResponse[CheckoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if len(req.Items) == 0 {
		h.HandleError(c, order.ErrEmptyOrder)
		return
	}
	addr, err := req.Address.toDomain()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	lines := make([]checkout.CartLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, checkout.CartLine{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Variant:     it.Variant,
			ClientPrice: it.Price,
		})
	}

	result, err := h.placer.PlaceOrder(c.Request.Context(), checkout.Request{
		UserID:         optionalUserID(c),
		Lines:          lines,
		Address:        addr,
		ShippingMethod: order.ShippingMethod(req.ShippingMethod),
		PaymentMethod:  order.PaymentMethod(req.PaymentMethod),
		VATNumber:      req.VATNumber,
		Notes:          req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, CheckoutResponse{
		OrderID:       result.OrderID,
		OrderNumber:   result.OrderNumber,
		DisplayNumber: result.DisplayNumber,
		Status:        result.Status,
		PaymentMethod: result.PaymentMethod,
		Subtotal:      result.Totals.Subtotal,
		ShippingCost:  result.Totals.ShippingCost,
		Tax:           result.Totals.Tax,
		Total:         result.Totals.Total,
		VATExempt:     result.VATExempt,
		RedirectURL:   result.RedirectURL,
	})
}
