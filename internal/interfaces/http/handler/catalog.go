package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
)

// QuoteService prices shipments
type QuoteService interface {
	Quote(ctx context.Context, actor shared.Actor, req settlementapp.QuoteRequest) (*settlementapp.QuoteResponse, error)
}

// RateService manages exchange and charge rates
type RateService interface {
	GetRateTable(ctx context.Context, actor shared.Actor) (settlement.RateTable, error)
	UpsertRates(ctx context.Context, actor shared.Actor, req settlementapp.UpsertRatesRequest) (*settlementapp.RateTableResponse, error)
	UpsertChargeRate(ctx context.Context, actor shared.Actor, req settlementapp.UpsertChargeRateRequest) (*settlementapp.ChargeRateResponse, error)
	ListChargeRates(ctx context.Context, actor shared.Actor) ([]settlementapp.ChargeRateResponse, error)
}

// BankAccountService manages bank and cash accounts
type BankAccountService interface {
	CreateBankAccount(ctx context.Context, actor shared.Actor, req settlementapp.CreateBankAccountRequest) (*settlementapp.BankAccountResponse, error)
	ListBankAccounts(ctx context.Context, actor shared.Actor) ([]settlementapp.BankAccountResponse, error)
	GetBankAccount(ctx context.Context, actor shared.Actor, id uuid.UUID) (*settlementapp.BankAccountResponse, error)
}

// CatalogHandler serves the reference data cashiers price and settle
// against: quotes, rates and bank accounts.
type CatalogHandler struct {
	BaseHandler
	quotes   QuoteService
	rates    RateService
	accounts BankAccountService
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(quotes QuoteService, rates RateService, accounts BankAccountService) *CatalogHandler {
	return &CatalogHandler{quotes: quotes, rates: rates, accounts: accounts}
}

// Quote godoc
// @Summary      Price a shipment in one or more regions
// @Description  Regions without a charge rate are returned with available=false.
// @Description  Totals in the base currency are flagged degraded_conversion when
// @Description  an exchange rate is missing.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request body settlementapp.QuoteRequest true "Shipment"
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /quotes [post]
func (h *CatalogHandler) Quote(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req settlementapp.QuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	quote, err := h.quotes.Quote(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// GetExchangeRates returns the tenant's current rate snapshot
func (h *CatalogHandler) GetExchangeRates(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	table, err := h.rates.GetRateTable(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settlementapp.ToRateTableResponse(table))
}

// PutExchangeRates godoc
// @Summary      Replace the exchange rate snapshot
// @Tags         rates
// @Accept       json
// @Produce      json
// @Param        request body settlementapp.UpsertRatesRequest true "Rates against the base currency"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /exchange-rates [put]
func (h *CatalogHandler) PutExchangeRates(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req settlementapp.UpsertRatesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	table, err := h.rates.UpsertRates(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, table)
}

// ListChargeRates lists every region and category tariff
func (h *CatalogHandler) ListChargeRates(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	rates, err := h.rates.ListChargeRates(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rates)
}

// PutChargeRate creates or replaces the tariff for a region and category
func (h *CatalogHandler) PutChargeRate(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req settlementapp.UpsertChargeRateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rate, err := h.rates.UpsertChargeRate(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rate)
}

// CreateBankAccount registers a bank or cash account
func (h *CatalogHandler) CreateBankAccount(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req settlementapp.CreateBankAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := h.accounts.CreateBankAccount(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// ListBankAccounts lists the tenant's accounts with running balances
func (h *CatalogHandler) ListBankAccounts(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	accounts, err := h.accounts.ListBankAccounts(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// GetBankAccount returns one account
func (h *CatalogHandler) GetBankAccount(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	account, err := h.accounts.GetBankAccount(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}
