package settlement

import "github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"

// Settlement error codes. INVALID_* codes are validation failures raised
// before any state is touched.
var (
	ErrNegativeAmount     = shared.NewDomainError("INVALID_AMOUNT", "Amount cannot be negative")
	ErrNonPositivePayment = shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	ErrNegativeWeight     = shared.NewDomainError("INVALID_WEIGHT", "Weight cannot be negative")
	ErrNegativeRate       = shared.NewDomainError("INVALID_RATE", "Rates and percentages cannot be negative")
	ErrInvalidCurrency    = shared.NewDomainError("INVALID_CURRENCY", "Currency code must be a three letter ISO code")
	ErrInvalidDirection   = shared.NewDomainError("INVALID_DIRECTION", "Invoice direction is not valid")
	ErrInvalidMethod      = shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	ErrInvalidSplit       = shared.NewDomainError("INVALID_SPLIT", "Each split needs a bank account and a positive amount")
	ErrDuplicateSplit     = shared.NewDomainError("INVALID_SPLIT", "A bank account may appear only once in a split")
	ErrSplitMismatch      = shared.NewDomainError("SPLIT_MISMATCH", "Split amounts must add up to the payment amount")
	ErrUnbalancedEntry    = shared.NewDomainError("UNBALANCED_ENTRY", "Journal entry debits and credits do not balance")
	ErrMissingLedgerLeg   = shared.NewDomainError("UNBALANCED_ENTRY", "No ledger posting data for allocation leg")
	ErrInvoiceNotPayable  = shared.NewDomainError("INVALID_STATE", "Invoice does not accept payments in its current status")
	ErrInvoiceHasPayments = shared.NewDomainError("HAS_PAYMENTS", "Cannot cancel an invoice with recorded payments")
	ErrChargeRateNotFound = shared.NewDomainError("CHARGE_RATE_NOT_FOUND", "No charge rate configured for region and category")
)
