package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
)

// =============================================================================
// Invoices
// =============================================================================

// CreateInvoiceRequest opens a new invoice
type CreateInvoiceRequest struct {
	InvoiceNumber string          `json:"invoice_number" binding:"required,min=1,max=50"`
	CustomerID    uuid.UUID       `json:"customer_id" binding:"required"`
	CustomerName  string          `json:"customer_name" binding:"max=200"`
	ShipmentID    *uuid.UUID      `json:"shipment_id"`
	Direction     string          `json:"direction" binding:"required,oneof=to_customer to_agent from_agent"`
	Currency      string          `json:"currency" binding:"required,currency"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	DueDate       *time.Time      `json:"due_date"`
	Notes         string          `json:"notes" binding:"max=2000"`
}

// CreateInvoiceFromQuoteRequest prices a shipment for one region and bills it
type CreateInvoiceFromQuoteRequest struct {
	InvoiceNumber string          `json:"invoice_number" binding:"required,min=1,max=50"`
	CustomerID    uuid.UUID       `json:"customer_id" binding:"required"`
	CustomerName  string          `json:"customer_name" binding:"max=200"`
	ShipmentID    *uuid.UUID      `json:"shipment_id"`
	Region        string          `json:"region" binding:"required"`
	Category      string          `json:"category" binding:"required"`
	ProductCost   decimal.Decimal `json:"product_cost"`
	Currency      string          `json:"currency" binding:"required,currency"`
	WeightKg      decimal.Decimal `json:"weight_kg"`
	Extras        []ExtraRequest  `json:"extras" binding:"omitempty,dive"`
	DueDate       *time.Time      `json:"due_date"`
}

// CancelInvoiceRequest cancels an unpaid invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// UpdateNotesRequest replaces staff notes
type UpdateNotesRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// InvoiceListQuery filters invoice listings
type InvoiceListQuery struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=created_at due_date amount invoice_number"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status     string `form:"status" binding:"omitempty,oneof=pending paid overdue cancelled"`
	Direction  string `form:"direction" binding:"omitempty,oneof=to_customer to_agent from_agent"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
}

// InvoiceResponse is the API view of an invoice
type InvoiceResponse struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	ShipmentID    *uuid.UUID      `json:"shipment_id,omitempty"`
	Direction     string          `json:"direction"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Overpaid      decimal.Decimal `json:"overpaid"`
	Status        string          `json:"status"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// ToInvoiceResponse converts an invoice to its API view
func ToInvoiceResponse(inv *settlement.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		TenantID:      inv.TenantID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		CustomerName:  inv.CustomerName,
		ShipmentID:    inv.ShipmentID,
		Direction:     inv.Direction.String(),
		Currency:      inv.Currency.String(),
		Amount:        inv.Amount,
		AmountPaid:    inv.AmountPaid,
		Outstanding:   inv.Outstanding(),
		Overpaid:      inv.Overpaid(),
		Status:        string(inv.Status),
		DueDate:       inv.DueDate,
		PaidAt:        inv.PaidAt,
		CancelledAt:   inv.CancelledAt,
		CancelReason:  inv.CancelReason,
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
		Version:       inv.Version,
	}
}

// OverdueSweepResponse reports the overdue sweep outcome
type OverdueSweepResponse struct {
	Marked     int         `json:"marked"`
	InvoiceIDs []uuid.UUID `json:"invoice_ids"`
}

// =============================================================================
// Payments
// =============================================================================

// SplitRequest routes part of a payment to one bank account
type SplitRequest struct {
	BankAccountID uuid.UUID       `json:"bank_account_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
}

// RecordPaymentRequest settles an invoice, optionally across several bank accounts.
// Currency defaults to the invoice currency. Without splits the whole amount
// goes to BankAccountID.
type RecordPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Currency        string          `json:"currency" binding:"omitempty,currency"`
	Method          string          `json:"method" binding:"required,oneof=cash bank_transfer mobile_money card cheque"`
	Reference       string          `json:"reference" binding:"max=100"`
	BankAccountID   *uuid.UUID      `json:"bank_account_id"`
	Splits          []SplitRequest  `json:"splits" binding:"omitempty,dive"`
	ExpectedVersion *int            `json:"expected_version"`
	IdempotencyKey  string          `json:"-"`
}

// RejectPaymentRequest rejects a payment leg
type RejectPaymentRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// PaymentResponse is the API view of one payment leg
type PaymentResponse struct {
	ID              uuid.UUID       `json:"id"`
	SettlementID    uuid.UUID       `json:"settlement_id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	BankAccountID   uuid.UUID       `json:"bank_account_id"`
	Direction       string          `json:"direction"`
	Method          string          `json:"method"`
	Reference       string          `json:"reference"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	InvoiceAmount   decimal.Decimal `json:"invoice_amount"`
	AccountCurrency string          `json:"account_currency"`
	AccountAmount   decimal.Decimal `json:"account_amount"`
	BalanceDelta    decimal.Decimal `json:"balance_delta"`
	Degraded        bool            `json:"degraded_conversion"`
	Status          string          `json:"status"`
	JournalEntryID  *uuid.UUID      `json:"journal_entry_id,omitempty"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedBy       *uuid.UUID      `json:"recorded_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToPaymentResponse converts a payment to its API view
func ToPaymentResponse(p *settlement.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		SettlementID:    p.SettlementID,
		InvoiceID:       p.InvoiceID,
		BankAccountID:   p.BankAccountID,
		Direction:       p.Direction.String(),
		Method:          string(p.Method),
		Reference:       p.Reference,
		Currency:        p.Currency.String(),
		Amount:          p.Amount,
		InvoiceAmount:   p.InvoiceAmount,
		AccountCurrency: p.AccountCurrency.String(),
		AccountAmount:   p.AccountAmount,
		BalanceDelta:    p.BalanceDelta(),
		Degraded:        p.Degraded,
		Status:          string(p.Status),
		JournalEntryID:  p.JournalEntryID,
		VerifiedAt:      p.VerifiedAt,
		RejectedAt:      p.RejectedAt,
		RejectionReason: p.RejectionReason,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       p.CreatedAt,
	}
}

// ConversionResponse reports how the payment was converted
type ConversionResponse struct {
	From              string          `json:"from"`
	To                string          `json:"to"`
	Rate              decimal.Decimal `json:"rate"`
	Degraded          bool            `json:"degraded_conversion"`
	MissingCurrencies []string        `json:"missing_currencies,omitempty"`
}

// SettlementResponse is the outcome of RecordPayment
type SettlementResponse struct {
	SettlementID    uuid.UUID          `json:"settlement_id"`
	Invoice         InvoiceResponse    `json:"invoice"`
	Payments        []PaymentResponse  `json:"payments"`
	JournalEntryIDs []uuid.UUID        `json:"journal_entry_ids"`
	PaymentAmount   decimal.Decimal    `json:"payment_amount"`
	InvoiceAmount   decimal.Decimal    `json:"invoice_amount"`
	FullyPaid       bool               `json:"fully_paid"`
	Conversion      ConversionResponse `json:"conversion"`
}

// =============================================================================
// Quotes
// =============================================================================

// ExtraRequest is an additional charge line
type ExtraRequest struct {
	Label      string           `json:"label" binding:"required,max=100"`
	Amount     decimal.Decimal  `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage"`
}

// QuoteRequest prices a shipment in one or more regions
type QuoteRequest struct {
	ProductCost decimal.Decimal `json:"product_cost"`
	Currency    string          `json:"currency" binding:"required,currency"`
	WeightKg    decimal.Decimal `json:"weight_kg"`
	Category    string          `json:"category" binding:"required"`
	Regions     []string        `json:"regions" binding:"required,min=1,dive,required"`
	Extras      []ExtraRequest  `json:"extras" binding:"omitempty,dive"`
}

// LineResponse is one row of a charge breakdown
type LineResponse struct {
	Kind       string           `json:"kind"`
	Label      string           `json:"label"`
	Amount     decimal.Decimal  `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
}

// RegionQuote is the priced breakdown for one region
type RegionQuote struct {
	Region      string          `json:"region"`
	Available   bool            `json:"available"`
	Error       string          `json:"error,omitempty"`
	Currency    string          `json:"currency,omitempty"`
	Lines       []LineResponse  `json:"lines,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Markup      decimal.Decimal `json:"markup"`
	Total       decimal.Decimal `json:"total"`
	BaseTotal   decimal.Decimal `json:"base_total"`
	Degraded    bool            `json:"degraded_conversion"`
	MissingRate []string        `json:"missing_currencies,omitempty"`
}

// QuoteResponse lists every requested region and the cheapest available one
type QuoteResponse struct {
	BaseCurrency   string        `json:"base_currency"`
	Regions        []RegionQuote `json:"regions"`
	CheapestRegion string        `json:"cheapest_region,omitempty"`
	RatesAsOf      time.Time     `json:"rates_as_of"`
}

// =============================================================================
// Bank accounts
// =============================================================================

// CreateBankAccountRequest registers a bank or cash account
type CreateBankAccountRequest struct {
	Name              string          `json:"name" binding:"required,min=1,max=100"`
	AccountNumber     string          `json:"account_number" binding:"max=50"`
	Currency          string          `json:"currency" binding:"required,currency"`
	LedgerAccountCode string          `json:"ledger_account_code" binding:"required,min=1,max=20"`
	OpeningBalance    decimal.Decimal `json:"opening_balance"`
}

// BankAccountResponse is the API view of a bank account
type BankAccountResponse struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	AccountNumber     string          `json:"account_number"`
	Currency          string          `json:"currency"`
	LedgerAccountCode string          `json:"ledger_account_code"`
	OpeningBalance    decimal.Decimal `json:"opening_balance"`
	Balance           decimal.Decimal `json:"balance"`
	LastReconciledAt  *time.Time      `json:"last_reconciled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	Version           int             `json:"version"`
}

// ToBankAccountResponse converts a bank account to its API view
func ToBankAccountResponse(b *settlement.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:                b.ID,
		Name:              b.Name,
		AccountNumber:     b.AccountNumber,
		Currency:          b.Currency.String(),
		LedgerAccountCode: b.LedgerAccountCode,
		OpeningBalance:    b.OpeningBalance,
		Balance:           b.Balance,
		LastReconciledAt:  b.LastReconciledAt,
		CreatedAt:         b.CreatedAt,
		Version:           b.Version,
	}
}

// =============================================================================
// Rates
// =============================================================================

// RateEntry is one currency of a rate snapshot
type RateEntry struct {
	Currency   string          `json:"currency" binding:"required,currency"`
	RateToBase decimal.Decimal `json:"rate_to_base" binding:"required"`
}

// UpsertRatesRequest replaces the tenant's rate snapshot
type UpsertRatesRequest struct {
	AsOf  *time.Time  `json:"as_of"`
	Rates []RateEntry `json:"rates" binding:"required,min=1,dive"`
}

// RateTableResponse is the API view of a rate snapshot
type RateTableResponse struct {
	BaseCurrency string      `json:"base_currency"`
	AsOf         time.Time   `json:"as_of"`
	Rates        []RateEntry `json:"rates"`
}

// ToRateTableResponse converts a rate table to its API view
func ToRateTableResponse(t settlement.RateTable) RateTableResponse {
	resp := RateTableResponse{BaseCurrency: t.Base().String(), AsOf: t.AsOf()}
	for _, c := range t.Currencies() {
		rate, _ := t.Rate(c)
		resp.Rates = append(resp.Rates, RateEntry{Currency: c.String(), RateToBase: rate})
	}
	return resp
}

// UpsertChargeRateRequest sets the tariff for a region and category
type UpsertChargeRateRequest struct {
	Region                string          `json:"region" binding:"required,max=50"`
	Category              string          `json:"category" binding:"required,max=50"`
	Currency              string          `json:"currency" binding:"required,currency"`
	RatePerKg             decimal.Decimal `json:"rate_per_kg"`
	DutyPercentage        decimal.Decimal `json:"duty_percentage"`
	HandlingFeePercentage decimal.Decimal `json:"handling_fee_percentage"`
	MarkupPercentage      decimal.Decimal `json:"markup_percentage"`
}

// ChargeRateResponse is the API view of a charge rate
type ChargeRateResponse struct {
	ID                    uuid.UUID       `json:"id"`
	Region                string          `json:"region"`
	Category              string          `json:"category"`
	Currency              string          `json:"currency"`
	RatePerKg             decimal.Decimal `json:"rate_per_kg"`
	DutyPercentage        decimal.Decimal `json:"duty_percentage"`
	HandlingFeePercentage decimal.Decimal `json:"handling_fee_percentage"`
	MarkupPercentage      decimal.Decimal `json:"markup_percentage"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ToChargeRateResponse converts a charge rate to its API view
func ToChargeRateResponse(r *settlement.ChargeRate) ChargeRateResponse {
	return ChargeRateResponse{
		ID:                    r.ID,
		Region:                r.Region,
		Category:              r.Category,
		Currency:              r.Currency.String(),
		RatePerKg:             r.RatePerKg,
		DutyPercentage:        r.DutyPercentage,
		HandlingFeePercentage: r.HandlingFeePercentage,
		MarkupPercentage:      r.MarkupPercentage,
		UpdatedAt:             r.UpdatedAt,
	}
}
