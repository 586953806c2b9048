package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// InvoiceService is the invoice use case surface used by InvoiceHandler
type InvoiceService interface {
	CreateInvoice(ctx context.Context, actor shared.Actor, req settlementapp.CreateInvoiceRequest) (*settlementapp.InvoiceResponse, error)
	CreateInvoiceFromQuote(ctx context.Context, actor shared.Actor, req settlementapp.CreateInvoiceFromQuoteRequest) (*settlementapp.InvoiceResponse, error)
	GetInvoice(ctx context.Context, actor shared.Actor, id uuid.UUID) (*settlementapp.InvoiceResponse, error)
	ListInvoices(ctx context.Context, actor shared.Actor, q settlementapp.InvoiceListQuery) (*shared.Paginated[settlementapp.InvoiceResponse], error)
	CancelInvoice(ctx context.Context, actor shared.Actor, id uuid.UUID, req settlementapp.CancelInvoiceRequest) (*settlementapp.InvoiceResponse, error)
	UpdateNotes(ctx context.Context, actor shared.Actor, id uuid.UUID, req settlementapp.UpdateNotesRequest) (*settlementapp.InvoiceResponse, error)
	MarkOverdue(ctx context.Context, actor shared.Actor) (*settlementapp.OverdueSweepResponse, error)
}

// InvoiceHandler handles invoice HTTP requests
type InvoiceHandler struct {
	BaseHandler
	invoices InvoiceService
}

// NewInvoiceHandler creates an invoice handler
func NewInvoiceHandler(invoices InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Create godoc
// @Summary      Create an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body settlementapp.CreateInvoiceRequest true "Invoice"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req settlementapp.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.invoices.CreateInvoice(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inv)
}

// CreateFromQuote godoc
// @Summary      Price a shipment and bill it
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body settlementapp.CreateInvoiceFromQuoteRequest true "Quote parameters"
// @Success      201 {object} dto.Response
// @Failure      404 {object} dto.Response "No charge rate for region and category"
// @Security     BearerAuth
// @Router       /invoices/from-quote [post]
func (h *InvoiceHandler) CreateFromQuote(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req settlementapp.CreateInvoiceFromQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.invoices.CreateInvoiceFromQuote(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inv)
}

// Get godoc
// @Summary      Get an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.GetInvoice(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// List godoc
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        status query string false "pending, paid, overdue or cancelled"
// @Param        direction query string false "to_customer, to_agent or from_agent"
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q settlementapp.InvoiceListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	page, err := h.invoices.ListInvoices(c.Request.Context(), actor, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Cancel godoc
// @Summary      Cancel an unpaid invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body settlementapp.CancelInvoiceRequest true "Reason"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response "Invoice is paid, cancelled or has payments"
// @Security     BearerAuth
// @Router       /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req settlementapp.CancelInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.invoices.CancelInvoice(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// UpdateNotes replaces the staff notes of an invoice
func (h *InvoiceHandler) UpdateNotes(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req settlementapp.UpdateNotesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.invoices.UpdateNotes(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// OverdueSweep marks the tenant's past-due invoices overdue. The scheduler
// runs the same sweep for every tenant.
func (h *InvoiceHandler) OverdueSweep(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	resp, err := h.invoices.MarkOverdue(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
