package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// ReconciliationService rebuilds balances and reports drift
type ReconciliationService interface {
	Recalculate(ctx context.Context, actor shared.Actor, bankAccountID uuid.UUID) (*settlementapp.RecalculationResponse, error)
	Report(ctx context.Context, actor shared.Actor) (*settlementapp.ReconciliationReport, error)
	ExportXLSX(ctx context.Context, actor shared.Actor) ([]byte, *settlementapp.ReconciliationReport, error)
	Archive(ctx context.Context, actor shared.Actor) (*settlementapp.ArchiveResponse, error)
}

// ReconciliationHandler handles reconciliation HTTP requests
type ReconciliationHandler struct {
	BaseHandler
	recon ReconciliationService
}

// NewReconciliationHandler creates a reconciliation handler
func NewReconciliationHandler(recon ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{recon: recon}
}

// Report godoc
// @Summary      Reconciliation report
// @Description  Lists bank account drift, payments without a journal entry and
// @Description  journal entries not yet exported to the ledger
// @Tags         reconciliation
// @Produce      json
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /reconciliation/report [get]
func (h *ReconciliationHandler) Report(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	report, err := h.recon.Report(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ReportXLSX streams the report as an Excel workbook
func (h *ReconciliationHandler) ReportXLSX(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	body, report, err := h.recon.ExportXLSX(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filename := fmt.Sprintf("reconciliation-%s.xlsx", report.GeneratedAt.UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, settlementapp.XLSXContentType, body)
}

// Recalculate rebuilds one account balance from its payment history
func (h *ReconciliationHandler) Recalculate(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.recon.Recalculate(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Archive renders the report and uploads it to object storage. Returns 503
// when storage is not configured.
func (h *ReconciliationHandler) Archive(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	resp, err := h.recon.Archive(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
