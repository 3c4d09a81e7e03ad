package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	orderapp "github.com/dronehub/backend/internal/application/order"
	"github.com/dronehub/backend/internal/application/printing"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderAdmin is the back office side of the order service
type OrderAdmin interface {
	List(ctx context.Context, filter order.Filter) ([]*order.Order, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	Audit(ctx context.Context, id uuid.UUID) ([]order.StatusAudit, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, change orderapp.StatusChange) (*order.Order, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, change orderapp.DetailsChange) (*order.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvoiceProvider renders order invoices
type InvoiceProvider interface {
	Invoice(ctx context.Context, orderID uuid.UUID) (*printing.Invoice, error)
}

// AdminOrderHandler handles order management for administrators
type AdminOrderHandler struct {
	BaseHandler
	orders   OrderAdmin
	invoices InvoiceProvider
}

// NewAdminOrderHandler creates a new admin order handler
func NewAdminOrderHandler(orders OrderAdmin, invoices InvoiceProvider) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, invoices: invoices}
}

// OrderListQuery filters the admin order list
type OrderListQuery struct {
	dto.ListRequest
	Status string `form:"status" binding:"omitempty,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED"`
	Email  string `form:"email" binding:"max=254"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// StatusChangeRequest moves an order through its lifecycle
type StatusChangeRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED"`
	// Force skips the transition table and needs a reason
	Force  bool   `json:"force"`
	Reason string `json:"reason" binding:"max=500"`
}

// OrderDetailsRequest edits notes or the delivery address
type OrderDetailsRequest struct {
	Notes   *string         `json:"notes" binding:"omitempty,max=1000"`
	Address *AddressRequest `json:"address"`
}

// StatusAuditResponse is one audited status change
type StatusAuditResponse struct {
	ID        uuid.UUID    `json:"id"`
	From      order.Status `json:"from"`
	To        order.Status `json:"to"`
	Actor     string       `json:"actor"`
	Reason    string       `json:"reason,omitempty"`
	Forced    bool         `json:"forced"`
	CreatedAt time.Time    `json:"created_at"`
}

// List godoc
// @ID           adminListOrders
// @Summary      List orders
// @Description  Search matches the order number or the customer email
// @Tags         admin-orders
// @Produce      json
// @Param        status query string false "Order status" Enums(PENDING, PROCESSING, SHIPPED, DELIVERED, CANCELLED)
// @Param        search query string false "Order number or email fragment"
// @Param        email query string false "Exact customer email"
// @Param        from query string false "Placed on or after (YYYY-MM-DD)"
// @Param        to query string false "Placed on or before (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders [get]
func (h *AdminOrderHandler) List(c *gin.Context) {
	var q OrderListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	filter := order.Filter{
		Filter: listFilter(q.ListRequest),
		Status: order.Status(q.Status),
		Email:  q.Email,
	}
	if q.From != "" {
		from, _ := time.Parse(time.DateOnly, q.From)
		filter.From = &from
	}
	if q.To != "" {
		to, _ := time.Parse(time.DateOnly, q.To)
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}

	orders, total, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toOrderResponses(orders), total, filter.Page, filter.PageSize)
}

// Get godoc
// @ID           adminGetOrder
// @Summary      Get an order with its items
// @Tags         admin-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id} [get]
func (h *AdminOrderHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// ChangeStatus godoc
// @ID           adminChangeOrderStatus
// @Summary      Change order status
// @Description  Transitions follow PENDING, PROCESSING, SHIPPED, DELIVERED with CANCELLED from the first two.
// @Description  A forced change ignores the table, requires a reason and is audited.
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body StatusChangeRequest true "Target status"
// @Success      200 {object} APIResponse[OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/status [patch]
func (h *AdminOrderHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req StatusChangeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	o, err := h.orders.ChangeStatus(c.Request.Context(), id, orderapp.StatusChange{
		To:     order.Status(req.Status),
		Force:  req.Force,
		Reason: req.Reason,
		Actor:  actor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// UpdateDetails godoc
// @ID           adminUpdateOrderDetails
// @Summary      Edit order notes or address
// @Description  Only orders that have not shipped can be edited
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body OrderDetailsRequest true "Fields to change"
// @Success      200 {object} APIResponse[OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id} [patch]
func (h *AdminOrderHandler) UpdateDetails(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req OrderDetailsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	change := orderapp.DetailsChange{Notes: req.Notes}
	if req.Address != nil {
		addr, err := req.Address.toDomain()
		if err != nil {
			h.HandleError(c, err)
			return
		}
		change.Address = &addr
	}
	o, err := h.orders.UpdateDetails(c.Request.Context(), id, change)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Delete godoc
// @ID           adminDeleteOrder
// @Summary      Delete an order and its items
// @Tags         admin-orders
// @Param        id path string true "Order ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id} [delete]
func (h *AdminOrderHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Audit godoc
// @ID           adminOrderAudit
// @Summary      Status change history
// @Tags         admin-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]StatusAuditResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/audit [get]
func (h *AdminOrderHandler) Audit(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entries, err := h.orders.Audit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]StatusAuditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, StatusAuditResponse{
			ID:        e.ID,
			From:      e.From,
			To:        e.To,
			Actor:     e.Actor,
			Reason:    e.Reason,
			Forced:    e.Forced,
			CreatedAt: e.CreatedAt,
		})
	}
	h.Success(c, out)
}

// Invoice godoc
// @ID           adminOrderInvoice
// @Summary      Download the invoice PDF
// @Description  Available for paid orders and cash on delivery orders
// @Tags         admin-orders
// @Produce      application/pdf
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/invoice [get]
func (h *AdminOrderHandler) Invoice(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Invoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, inv.FileName))
	c.Data(http.StatusOK, "application/pdf", inv.Data)
}
