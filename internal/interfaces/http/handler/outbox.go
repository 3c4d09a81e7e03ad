package handler

import (
	"context"

	"github.com/dronehub/backend/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxAdmin is what the outbox endpoints need
type OutboxAdmin interface {
	DeadLetters(ctx context.Context, p event.Page) ([]event.EntryView, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*event.EntryView, error)
	Replay(ctx context.Context, id uuid.UUID) (*event.EntryView, error)
	ReplayAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*event.Stats, error)
}

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outbox OutboxAdmin
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox OutboxAdmin) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// DeadLetters godoc
// @ID           listOutboxDeadLetters
// @Summary      List dead letter entries
// @Description  Entries that exhausted their delivery retries
// @Tags         admin-outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]event.EntryView]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/outbox/dead [get]
func (h *OutboxHandler) DeadLetters(c *gin.Context) {
	var p event.Page
	if !h.bindQuery(c, &p) {
		return
	}
	entries, total, err := h.outbox.DeadLetters(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	h.SuccessWithMeta(c, entries, total, p.Page, p.PageSize)
}

// Get godoc
// @ID           getOutboxEntry
// @Summary      Get an outbox entry
// @Tags         admin-outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.EntryView]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/outbox/{id} [get]
func (h *OutboxHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Replay godoc
// @ID           replayOutboxEntry
// @Summary      Replay a dead letter entry
// @Description  Puts the entry back in the delivery queue
// @Tags         admin-outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.EntryView]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/outbox/{id}/replay [post]
func (h *OutboxHandler) Replay(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.Replay(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// ReplayedData reports how many dead letters went back to the queue.
type ReplayedData struct {
	Replayed int64 `json:"replayed"`
}

// ReplayAll godoc
// @ID           replayAllOutboxEntries
// @Summary      Replay every dead letter entry
// @Tags         admin-outbox
// @Produce      json
// @Success      200 {object} APIResponse[ReplayedData]
// @Security     BearerAuth
// @Router       /admin/outbox/dead/replay [post]
func (h *OutboxHandler) ReplayAll(c *gin.Context) {
	n, err := h.outbox.ReplayAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReplayedData{Replayed: n})
}

// Stats godoc
// @ID           getOutboxStats
// @Summary      Outbox statistics
// @Description  Entry counts per delivery status
// @Tags         admin-outbox
// @Produce      json
// @Success      200 {object} APIResponse[event.Stats]
// @Security     BearerAuth
// @Router       /admin/outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
