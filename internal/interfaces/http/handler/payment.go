package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// IdempotencyKeyHeader deduplicates payment submissions
const IdempotencyKeyHeader = "Idempotency-Key"

// SettlementService is the payment use case surface used by PaymentHandler
type SettlementService interface {
	RecordPayment(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID, req settlementapp.RecordPaymentRequest) (*settlementapp.SettlementResponse, error)
	VerifyPayment(ctx context.Context, actor shared.Actor, paymentID uuid.UUID) (*settlementapp.PaymentResponse, error)
	RejectPayment(ctx context.Context, actor shared.Actor, paymentID uuid.UUID, req settlementapp.RejectPaymentRequest) (*settlementapp.PaymentResponse, error)
	ListPayments(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID) ([]settlementapp.PaymentResponse, error)
}

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	BaseHandler
	settlements SettlementService
}

// NewPaymentHandler creates a payment handler
func NewPaymentHandler(settlements SettlementService) *PaymentHandler {
	return &PaymentHandler{settlements: settlements}
}

// Record godoc
// @Summary      Record a payment against an invoice
// @Description  Converts the amount into the invoice currency, splits it across
// @Description  bank accounts and posts a balanced journal entry. Replays with
// @Description  the same Idempotency-Key are rejected with 409.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        Idempotency-Key header string false "Client generated key"
// @Param        request body settlementapp.RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /invoices/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req settlementapp.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	resp, err := h.settlements.RecordPayment(c.Request.Context(), actor, invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListForInvoice lists every payment leg of an invoice
func (h *PaymentHandler) ListForInvoice(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	invoiceID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	payments, err := h.settlements.ListPayments(c.Request.Context(), actor, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// Verify godoc
// @Summary      Verify a payment leg
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /payments/{id}/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	payment, err := h.settlements.VerifyPayment(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Reject godoc
// @Summary      Reject a payment leg
// @Description  Reverses the leg's effect on the invoice and bank balance
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body settlementapp.RejectPaymentRequest true "Reason"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /payments/{id}/reject [post]
func (h *PaymentHandler) Reject(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req settlementapp.RejectPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	payment, err := h.settlements.RejectPayment(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}
