package handler

import (
	"context"
	"net/http"
	"strings"

	orderapp "github.com/dronehub/backend/internal/application/order"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CustomerOrders is the read side a signed-in customer and a guest can reach
type CustomerOrders interface {
	CustomerOrders(ctx context.Context, userID uuid.UUID, page shared.Filter) ([]*order.Order, int64, error)
	CustomerOrder(ctx context.Context, userID, id uuid.UUID) (*order.Order, error)
	Track(ctx context.Context, number int64, email string) (*orderapp.Tracking, error)
}

// OrderHandler serves customer order history and guest tracking
type OrderHandler struct {
	BaseHandler
	orders CustomerOrders
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders CustomerOrders) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// MyOrders godoc
// @ID           listMyOrders
// @Summary      List my orders
// @Tags         account
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me/orders [get]
func (h *OrderHandler) MyOrders(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	filter := listFilter(req)
	orders, total, err := h.orders.CustomerOrders(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toOrderResponses(orders), total, filter.Page, filter.PageSize)
}

// MyOrder godoc
// @ID           getMyOrder
// @Summary      Get one of my orders
// @Tags         account
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me/orders/{id} [get]
func (h *OrderHandler) MyOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.CustomerOrder(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Track godoc
// @ID           trackOrder
// @Summary      Track an order
// @Description  Guests identify the order by its number and the email used at checkout.
// @Tags         orders
// @Produce      json
// @Param        number path string true "Order number, with or without the DH- prefix"
// @Param        email query string true "Email given at checkout"
// @Success      200 {object} APIResponse[orderapp.Tracking]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /orders/track/{number} [get]
func (h *OrderHandler) Track(c *gin.Context) {
	raw := strings.TrimPrefix(strings.ToUpper(c.Param("number")), "DH-")
	number, ok := parseInt64(raw)
	if !ok {
		h.BadRequest(c, "Invalid order number")
		return
	}
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		h.Error(c, http.StatusBadRequest, "EMAIL_REQUIRED", "Email is required")
		return
	}
	tracking, err := h.orders.Track(c.Request.Context(), number, email)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tracking)
}
