package event

import (
	"context"

	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events to the outbox table inside the
// caller's transaction, so events commit or roll back with the aggregates
// that raised them.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

// NewOutboxPublisher creates a publisher; maxRetries bounds delivery attempts
// before an entry is dead-lettered
func NewOutboxPublisher(serializer *EventSerializer, maxRetries int) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer, maxRetries: maxRetries}
}

// PublishWithTx serializes the events and saves them using tx
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload, p.maxRetries))
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// TxRecorder binds the publisher to one transaction
type TxRecorder struct {
	publisher *OutboxPublisher
	tx        *gorm.DB
}

// Recorder returns an event recorder that writes through tx
func (p *OutboxPublisher) Recorder(tx *gorm.DB) *TxRecorder {
	return &TxRecorder{publisher: p, tx: tx}
}

// Record saves the events to the outbox in the bound transaction
func (r *TxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	return r.publisher.PublishWithTx(ctx, r.tx, events...)
}
