package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockQuoteService is a mock implementation of QuoteService
type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) Quote(ctx context.Context, actor shared.Actor, req settlementapp.QuoteRequest) (*settlementapp.QuoteResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.QuoteResponse), args.Error(1)
}

// MockRateService is a mock implementation of RateService
type MockRateService struct {
	mock.Mock
}

func (m *MockRateService) GetRateTable(ctx context.Context, actor shared.Actor) (settlement.RateTable, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(settlement.RateTable), args.Error(1)
}

func (m *MockRateService) UpsertRates(ctx context.Context, actor shared.Actor, req settlementapp.UpsertRatesRequest) (*settlementapp.RateTableResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.RateTableResponse), args.Error(1)
}

func (m *MockRateService) UpsertChargeRate(ctx context.Context, actor shared.Actor, req settlementapp.UpsertChargeRateRequest) (*settlementapp.ChargeRateResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.ChargeRateResponse), args.Error(1)
}

func (m *MockRateService) ListChargeRates(ctx context.Context, actor shared.Actor) ([]settlementapp.ChargeRateResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]settlementapp.ChargeRateResponse), args.Error(1)
}

// MockBankAccountService is a mock implementation of BankAccountService
type MockBankAccountService struct {
	mock.Mock
}

func (m *MockBankAccountService) CreateBankAccount(ctx context.Context, actor shared.Actor, req settlementapp.CreateBankAccountRequest) (*settlementapp.BankAccountResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.BankAccountResponse), args.Error(1)
}

func (m *MockBankAccountService) ListBankAccounts(ctx context.Context, actor shared.Actor) ([]settlementapp.BankAccountResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]settlementapp.BankAccountResponse), args.Error(1)
}

func (m *MockBankAccountService) GetBankAccount(ctx context.Context, actor shared.Actor, id uuid.UUID) (*settlementapp.BankAccountResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlementapp.BankAccountResponse), args.Error(1)
}

func newCatalogRouter() (*gin.Engine, *MockQuoteService, *MockRateService, *MockBankAccountService) {
	quotes := new(MockQuoteService)
	rates := new(MockRateService)
	accounts := new(MockBankAccountService)
	h := NewCatalogHandler(quotes, rates, accounts)
	r := newTestRouter(func(r gin.IRoutes) {
		r.POST("/quotes", h.Quote)
		r.GET("/exchange-rates", h.GetExchangeRates)
		r.PUT("/exchange-rates", h.PutExchangeRates)
		r.PUT("/charge-rates", h.PutChargeRate)
		r.POST("/bank-accounts", h.CreateBankAccount)
		r.GET("/bank-accounts/:id", h.GetBankAccount)
	})
	return r, quotes, rates, accounts
}

func TestCatalogHandler_Quote(t *testing.T) {
	r, quotes, _, _ := newCatalogRouter()
	quotes.On("Quote", mock.Anything, testActor, mock.MatchedBy(func(req settlementapp.QuoteRequest) bool {
		return len(req.Regions) == 2 && req.Category == "electronics"
	})).Return(&settlementapp.QuoteResponse{}, nil)

	rec := do(r, http.MethodPost, "/quotes", `{
		"product_cost": "200",
		"currency": "USD",
		"weight_kg": "10",
		"category": "electronics",
		"regions": ["china", "dubai"]
	}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(r, http.MethodPost, "/quotes", `{"currency":"USD","category":"electronics","regions":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	quotes.On("Quote", mock.Anything, testActor, mock.MatchedBy(func(req settlementapp.QuoteRequest) bool {
		return len(req.Regions) == 1
	})).Return(nil, settlement.ErrChargeRateNotFound)
	rec = do(r, http.MethodPost, "/quotes", `{"currency":"USD","category":"toys","regions":["mars"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogHandler_ExchangeRates(t *testing.T) {
	r, _, rates, _ := newCatalogRouter()
	asOf := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	table, err := settlement.NewRateTable(valueobject.TZS, map[valueobject.Currency]decimal.Decimal{
		valueobject.USD: decimal.NewFromInt(2500),
	}, asOf)
	require.NoError(t, err)
	rates.On("GetRateTable", mock.Anything, testActor).Return(table, nil)

	rec := do(r, http.MethodGet, "/exchange-rates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"base_currency":"TZS"`)
	assert.Contains(t, rec.Body.String(), `"USD"`)

	rates.On("UpsertRates", mock.Anything, testActor, mock.Anything).Return(nil, settlement.ErrNegativeRate)
	rec = do(r, http.MethodPut, "/exchange-rates", `{"rates":[{"currency":"TZS","rate_to_base":"1"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_RATE", decode(t, rec).Error.Code)
}

func TestCatalogHandler_ChargeRateForbidden(t *testing.T) {
	r, _, rates, _ := newCatalogRouter()
	rates.On("UpsertChargeRate", mock.Anything, testActor, mock.Anything).Return(nil, shared.ErrForbidden)

	rec := do(r, http.MethodPut, "/charge-rates", `{"region":"china","category":"electronics","currency":"USD","rate_per_kg":"5"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCatalogHandler_BankAccounts(t *testing.T) {
	r, _, _, accounts := newCatalogRouter()
	id := uuid.New()
	accounts.On("CreateBankAccount", mock.Anything, testActor, mock.MatchedBy(func(req settlementapp.CreateBankAccountRequest) bool {
		return req.Name == "CRDB USD" && req.LedgerAccountCode == "1010"
	})).Return(&settlementapp.BankAccountResponse{ID: id, Name: "CRDB USD"}, nil)
	accounts.On("GetBankAccount", mock.Anything, testActor, id).Return(nil, shared.ErrNotFound)

	rec := do(r, http.MethodPost, "/bank-accounts", `{"name":"CRDB USD","currency":"USD","ledger_account_code":"1010","opening_balance":"0"}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(r, http.MethodPost, "/bank-accounts", `{"name":"Till","currency":"shillings","ledger_account_code":"1000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/bank-accounts/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
