package event

import "github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"

// RegisterSettlementEvents registers every settlement event with the
// serializer so the outbox processor can decode stored payloads.
func RegisterSettlementEvents(serializer *EventSerializer) {
	serializer.Register(settlement.EventInvoiceCreated, &settlement.InvoiceCreatedEvent{})
	serializer.Register(settlement.EventInvoicePaymentApplied, &settlement.InvoicePaymentAppliedEvent{})
	serializer.Register(settlement.EventInvoicePaid, &settlement.InvoicePaidEvent{})
	serializer.Register(settlement.EventInvoicePaymentReversed, &settlement.InvoicePaymentReversedEvent{})
	serializer.Register(settlement.EventInvoiceCancelled, &settlement.InvoiceCancelledEvent{})
	serializer.Register(settlement.EventInvoiceOverdue, &settlement.InvoiceOverdueEvent{})

	serializer.Register(settlement.EventPaymentRecorded, &settlement.PaymentRecordedEvent{})
	serializer.Register(settlement.EventPaymentVerified, &settlement.PaymentVerifiedEvent{})
	serializer.Register(settlement.EventPaymentRejected, &settlement.PaymentRejectedEvent{})

	serializer.Register(settlement.EventJournalEntryPosted, &settlement.JournalEntryPostedEvent{})
}
