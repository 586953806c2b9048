package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/application/event"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// OutboxService administers undelivered domain events
type OutboxService interface {
	ListDead(ctx context.Context, actor shared.Actor, filter event.OutboxFilter) (*shared.Paginated[event.OutboxEntryDTO], error)
	GetEntry(ctx context.Context, actor shared.Actor, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryDeadEntry(ctx context.Context, actor shared.Actor, id uuid.UUID) (*event.OutboxEntryDTO, error)
	Stats(ctx context.Context, actor shared.Actor) (*event.OutboxStatsDTO, error)
}

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outbox OutboxService
}

// NewOutboxHandler creates an outbox handler
func NewOutboxHandler(outbox OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// ListDead godoc
// @Summary      List dead letter entries
// @Tags         system
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /system/outbox/dead [get]
func (h *OutboxHandler) ListDead(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var filter event.OutboxFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	page, err := h.outbox.ListDead(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetEntry returns one outbox entry
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outbox.GetEntry(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Retry godoc
// @Summary      Retry a dead letter entry
// @Tags         system
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response "Entry is not dead"
// @Security     BearerAuth
// @Router       /system/outbox/{id}/retry [post]
func (h *OutboxHandler) Retry(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outbox.RetryDeadEntry(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Stats counts outbox entries per status
func (h *OutboxHandler) Stats(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	stats, err := h.outbox.Stats(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
