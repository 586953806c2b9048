package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSettlementService is a mock implementation of SettlementService
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) RecordPayment(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID, req settlementapp.RecordPaymentRequest) (*settlementapp.SettlementResponse, error) {
	args := m.Called(ctx, actor, invoiceID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.SettlementResponse), args.Error(1)
}

func (m *MockSettlementService) VerifyPayment(ctx context.Context, actor shared.Actor, paymentID uuid.UUID) (*settlementapp.PaymentResponse, error) {
	args := m.Called(ctx, actor, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.PaymentResponse), args.Error(1)
}

func (m *MockSettlementService) RejectPayment(ctx context.Context, actor shared.Actor, paymentID uuid.UUID, req settlementapp.RejectPaymentRequest) (*settlementapp.PaymentResponse, error) {
	args := m.Called(ctx, actor, paymentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.PaymentResponse), args.Error(1)
}

func (m *MockSettlementService) ListPayments(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID) ([]settlementapp.PaymentResponse, error) {
	args := m.Called(ctx, actor, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]settlementapp.PaymentResponse), args.Error(1)
}

func paymentRoutes(h *PaymentHandler) func(r gin.IRoutes) {
	return func(r gin.IRoutes) {
		r.POST("/invoices/:id/payments", h.Record)
		r.GET("/invoices/:id/payments", h.ListForInvoice)
		r.POST("/payments/:id/verify", h.Verify)
		r.POST("/payments/:id/reject", h.Reject)
	}
}

func TestPaymentHandler_RecordPassesIdempotencyKey(t *testing.T) {
	svc := new(MockSettlementService)
	r := newTestRouter(paymentRoutes(NewPaymentHandler(svc)))
	invoiceID := uuid.New()

	svc.On("RecordPayment", mock.Anything, testActor, invoiceID, mock.MatchedBy(func(req settlementapp.RecordPaymentRequest) bool {
		return req.IdempotencyKey == "till-7-0042" && req.Currency == "CNY" && len(req.Splits) == 2
	})).Return(&settlementapp.SettlementResponse{FullyPaid: true}, nil).Once()

	body := `{
		"amount": "1000",
		"currency": "CNY",
		"method": "bank_transfer",
		"splits": [
			{"bank_account_id": "` + uuid.NewString() + `", "amount": "600"},
			{"bank_account_id": "` + uuid.NewString() + `", "amount": "400"}
		]
	}`
	rec := do(r, http.MethodPost, "/invoices/"+invoiceID.String()+"/payments", body, IdempotencyKeyHeader, "till-7-0042")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"fully_paid":true`)
	svc.AssertExpectations(t)
}

func TestPaymentHandler_RecordDuplicate(t *testing.T) {
	svc := new(MockSettlementService)
	r := newTestRouter(paymentRoutes(NewPaymentHandler(svc)))
	invoiceID := uuid.New()
	svc.On("RecordPayment", mock.Anything, testActor, invoiceID, mock.Anything).Return(nil, shared.ErrDuplicateRequest)

	rec := do(r, http.MethodPost, "/invoices/"+invoiceID.String()+"/payments", `{"amount":"10","method":"cash"}`, IdempotencyKeyHeader, "k1")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_REQUEST", decode(t, rec).Error.Code)
}

func TestPaymentHandler_RecordValidation(t *testing.T) {
	svc := new(MockSettlementService)
	r := newTestRouter(paymentRoutes(NewPaymentHandler(svc)))

	rec := do(r, http.MethodPost, "/invoices/"+uuid.NewString()+"/payments", `{"amount":"10","method":"barter"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentHandler_SplitMismatch(t *testing.T) {
	svc := new(MockSettlementService)
	r := newTestRouter(paymentRoutes(NewPaymentHandler(svc)))
	invoiceID := uuid.New()
	svc.On("RecordPayment", mock.Anything, testActor, invoiceID, mock.Anything).Return(nil, settlement.ErrSplitMismatch)

	rec := do(r, http.MethodPost, "/invoices/"+invoiceID.String()+"/payments", `{"amount":"10","method":"cash"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SPLIT_MISMATCH", decode(t, rec).Error.Code)
}

func TestPaymentHandler_VerifyAndReject(t *testing.T) {
	svc := new(MockSettlementService)
	r := newTestRouter(paymentRoutes(NewPaymentHandler(svc)))
	paymentID := uuid.New()

	svc.On("VerifyPayment", mock.Anything, testActor, paymentID).Return(&settlementapp.PaymentResponse{ID: paymentID, Status: "verified"}, nil)
	svc.On("RejectPayment", mock.Anything, testActor, paymentID, settlementapp.RejectPaymentRequest{Reason: "bounced"}).
		Return(nil, shared.ErrInvalidState)

	rec := do(r, http.MethodPost, "/payments/"+paymentID.String()+"/verify", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"verified"`)

	rec = do(r, http.MethodPost, "/payments/"+paymentID.String()+"/reject", `{"reason":"bounced"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(r, http.MethodPost, "/payments/"+paymentID.String()+"/reject", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentHandler_ListForInvoice(t *testing.T) {
	svc := new(MockSettlementService)
	r := newTestRouter(paymentRoutes(NewPaymentHandler(svc)))
	invoiceID := uuid.New()
	svc.On("ListPayments", mock.Anything, testActor, invoiceID).
		Return([]settlementapp.PaymentResponse{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

	rec := do(r, http.MethodGet, "/invoices/"+invoiceID.String()+"/payments", "")

	require.Equal(t, http.StatusOK, rec.Code)
	items, ok := decode(t, rec).Data.([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)
}
