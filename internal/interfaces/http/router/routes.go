package router

import (
	"github.com/smashburgertza/astralinelogistics-sub006/internal/application/event"
	settlementapp "github.com/smashburgertza/astralinelogistics-sub006/internal/application/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/interfaces/http/handler"
)

// Handlers groups the HTTP handlers mounted under the API prefix
type Handlers struct {
	Invoice        *handler.InvoiceHandler
	Payment        *handler.PaymentHandler
	Catalog        *handler.CatalogHandler
	Reconciliation *handler.ReconciliationHandler
	Outbox         *handler.OutboxHandler
}

// APIGroups builds the permission-gated route groups. Nil handlers are
// skipped.
func APIGroups(h Handlers) []*DomainGroup {
	var groups []*DomainGroup

	if h.Invoice != nil {
		invoices := NewDomainGroup("invoices", "/invoices").
			POST("", settlementapp.PermissionInvoiceCreate, h.Invoice.Create).
			POST("/from-quote", settlementapp.PermissionInvoiceCreate, h.Invoice.CreateFromQuote).
			POST("/overdue-sweep", settlementapp.PermissionInvoiceUpdate, h.Invoice.OverdueSweep).
			GET("", settlementapp.PermissionInvoiceRead, h.Invoice.List).
			GET("/:id", settlementapp.PermissionInvoiceRead, h.Invoice.Get).
			POST("/:id/cancel", settlementapp.PermissionInvoiceUpdate, h.Invoice.Cancel).
			PUT("/:id/notes", settlementapp.PermissionInvoiceUpdate, h.Invoice.UpdateNotes)
		if h.Payment != nil {
			invoices.
				POST("/:id/payments", settlementapp.PermissionPaymentRecord, h.Payment.Record).
				GET("/:id/payments", settlementapp.PermissionInvoiceRead, h.Payment.ListForInvoice)
		}
		groups = append(groups, invoices)
	}

	if h.Payment != nil {
		groups = append(groups, NewDomainGroup("payments", "/payments").
			POST("/:id/verify", settlementapp.PermissionPaymentVerify, h.Payment.Verify).
			POST("/:id/reject", settlementapp.PermissionPaymentVerify, h.Payment.Reject))
	}

	if h.Catalog != nil {
		groups = append(groups,
			NewDomainGroup("quotes", "/quotes").
				POST("", settlementapp.PermissionQuoteCreate, h.Catalog.Quote),
			NewDomainGroup("bank-accounts", "/bank-accounts").
				GET("", settlementapp.PermissionBankAccountRead, h.Catalog.ListBankAccounts).
				POST("", settlementapp.PermissionBankAccountManage, h.Catalog.CreateBankAccount).
				GET("/:id", settlementapp.PermissionBankAccountRead, h.Catalog.GetBankAccount),
			NewDomainGroup("exchange-rates", "/exchange-rates").
				GET("", settlementapp.PermissionRateRead, h.Catalog.GetExchangeRates).
				PUT("", settlementapp.PermissionRateManage, h.Catalog.PutExchangeRates),
			NewDomainGroup("charge-rates", "/charge-rates").
				GET("", settlementapp.PermissionRateRead, h.Catalog.ListChargeRates).
				PUT("", settlementapp.PermissionRateManage, h.Catalog.PutChargeRate),
		)
	}

	if h.Reconciliation != nil {
		groups = append(groups, NewDomainGroup("reconciliation", "/reconciliation").
			GET("/report", settlementapp.PermissionReconciliationRead, h.Reconciliation.Report).
			GET("/report.xlsx", settlementapp.PermissionReconciliationRead, h.Reconciliation.ReportXLSX).
			POST("/report/archive", settlementapp.PermissionReconciliationRun, h.Reconciliation.Archive).
			POST("/bank-accounts/:id/recalculate", settlementapp.PermissionReconciliationRun, h.Reconciliation.Recalculate))
	}

	if h.Outbox != nil {
		groups = append(groups, NewDomainGroup("outbox", "/system/outbox").
			GET("/dead", event.PermissionSystemAdmin, h.Outbox.ListDead).
			GET("/stats", event.PermissionSystemAdmin, h.Outbox.Stats).
			GET("/entries/:id", event.PermissionSystemAdmin, h.Outbox.GetEntry).
			POST("/entries/:id/retry", event.PermissionSystemAdmin, h.Outbox.Retry))
	}

	return groups
}
