package services

import (
	"context"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/metrics"
)

// EventPublisher is the outbound side of the ledger event bus.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// LedgerService applies and reverses transactions through the ledger and
// announces every change on the event bus.
type LedgerService struct {
	ledger    *ledger.Ledger
	publisher EventPublisher
	metrics   metrics.Collector
	logger    *log.Logger
}

// NewLedgerService wires the service. publisher may be nil, in which case
// events are skipped; collector may be nil.
func NewLedgerService(l *ledger.Ledger, publisher EventPublisher, collector metrics.Collector) *LedgerService {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &LedgerService{
		ledger:    l,
		publisher: publisher,
		metrics:   collector,
		logger:    log.Default(log.ComponentLedger),
	}
}

// Apply posts t to the ledger, then publishes an applied event. Publish
// failures are logged; the ledger change stands.
func (s *LedgerService) Apply(ctx context.Context, t core.Transaction) (ledger.AppliedEffect, error) {
	effect, err := s.ledger.Apply(ctx, t)
	if err != nil {
		return effect, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventApplied, t.ID, t.AccountIDs()...))
	return effect, nil
}

// Reverse undoes transaction id and publishes a reversed event carrying
// the id of the new inverse entry.
func (s *LedgerService) Reverse(ctx context.Context, id string) (core.Transaction, error) {
	inverse, err := s.ledger.Reverse(ctx, id)
	if err != nil {
		return inverse, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventReversed, inverse.ID, inverse.AccountIDs()...))
	return inverse, nil
}

// Ledger exposes the underlying ledger for reads.
func (s *LedgerService) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *LedgerService) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping ledger event",
			log.FieldTransactionID, event.TransactionID)
		return
	}

	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		s.metrics.RecordEventPublished(string(event.Type), false)
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventType, string(event.Type),
			log.FieldTransactionID, event.TransactionID,
			log.FieldError, err)
		return
	}
	s.metrics.RecordEventPublished(string(event.Type), true)
}
