package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentSplit routes part of a payment to one bank account
type PaymentSplit struct {
	BankAccountID uuid.UUID
	Amount        decimal.Decimal
}

// AccountDelta is one ledger leg of an allocation
type AccountDelta struct {
	BankAccountID uuid.UUID
	// Amount is the unsigned leg amount in the payment currency
	Amount decimal.Decimal
	// BalanceDelta is Amount signed by the invoice flow direction
	BalanceDelta decimal.Decimal
}

// Allocation is the computed effect of one settlement on an invoice and the
// receiving or paying bank accounts.
type Allocation struct {
	InvoiceID          uuid.UUID
	Direction          FlowDirection
	PreviousAmountPaid decimal.Decimal
	PaymentAmount      decimal.Decimal
	NewAmountPaid      decimal.Decimal
	IsFullyPaid        bool
	Legs               []AccountDelta
}

// Allocate computes the new paid amount and per-account deltas.
//
// paymentAmount is expressed in the invoice currency; split amounts are in
// the payment currency. Splits are trusted to add up to the payment: callers
// check that with ValidateSplits before allocating. Overpayment is accepted
// and still counts as fully paid.
func Allocate(invoice *Invoice, paymentAmount decimal.Decimal, splits []PaymentSplit) Allocation {
	newPaid := invoice.AmountPaid.Add(paymentAmount)
	sign := invoice.Direction.Sign()

	legs := make([]AccountDelta, 0, len(splits))
	for _, s := range splits {
		legs = append(legs, AccountDelta{
			BankAccountID: s.BankAccountID,
			Amount:        s.Amount,
			BalanceDelta:  s.Amount.Mul(sign),
		})
	}

	return Allocation{
		InvoiceID:          invoice.ID,
		Direction:          invoice.Direction,
		PreviousAmountPaid: invoice.AmountPaid,
		PaymentAmount:      paymentAmount,
		NewAmountPaid:      newPaid,
		IsFullyPaid:        newPaid.GreaterThanOrEqual(invoice.Amount),
		Legs:               legs,
	}
}

// ValidateSplits checks that every split is usable and that together they
// account for exactly the payment total.
func ValidateSplits(total decimal.Decimal, splits []PaymentSplit) error {
	if !total.IsPositive() {
		return ErrNonPositivePayment
	}
	if len(splits) == 0 {
		return ErrInvalidSplit
	}
	seen := make(map[uuid.UUID]struct{}, len(splits))
	sum := decimal.Zero
	for _, s := range splits {
		if s.BankAccountID == uuid.Nil || !s.Amount.IsPositive() {
			return ErrInvalidSplit
		}
		if _, dup := seen[s.BankAccountID]; dup {
			return ErrDuplicateSplit
		}
		seen[s.BankAccountID] = struct{}{}
		sum = sum.Add(s.Amount)
	}
	if !sum.Equal(total) {
		return ErrSplitMismatch
	}
	return nil
}
