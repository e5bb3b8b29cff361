// Package services orchestrates ledger mutations across the record store
// and the AMQP event stream.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"jizhang/internal/amqp"
	"jizhang/internal/core"
	"jizhang/internal/store"
)

// EventPublisher is the slice of the AMQP client the service needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
	Close() error
}

// LedgerService writes to the store first and publishes events after.
// Event publishing is best effort: a broker failure is logged and never
// surfaces to the caller, the record is already durable.
type LedgerService struct {
	ledger    store.Ledger
	publisher EventPublisher
}

func NewLedgerService(ledger store.Ledger, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		ledger:    ledger,
		publisher: publisher,
	}
}

// Record appends an expense record and returns its id.
func (s *LedgerService) Record(ctx context.Context, userID string, amount core.Money, reason string) (int64, error) {
	id, err := s.ledger.Insert(ctx, userID, amount, reason)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	s.publish(ctx, amqp.NewRecordedEvent(id, userID, amount.Cents, reason))
	return id, nil
}

// Delete soft-deletes one record owned by userID.
func (s *LedgerService) Delete(ctx context.Context, id int64, userID string) error {
	if err := s.ledger.DeleteByID(ctx, id, userID); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewDeletedEvent(id, userID))
	return nil
}

// DeleteBulk soft-deletes the given ids, all-or-nothing on ownership.
func (s *LedgerService) DeleteBulk(ctx context.Context, ids []int64, userID string) (int64, error) {
	deleted, err := s.ledger.DeleteBulk(ctx, ids, userID)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		s.publish(ctx, amqp.NewDeletedEvent(id, userID))
	}
	return deleted, nil
}

// ClearAll soft-deletes every record of the user.
func (s *LedgerService) ClearAll(ctx context.Context, userID string) (int64, error) {
	return s.ledger.ClearAllForUser(ctx, userID)
}

// ListRecent returns up to limit records, newest first.
func (s *LedgerService) ListRecent(ctx context.Context, userID string, limit int) ([]core.Record, error) {
	return s.ledger.ListRecent(ctx, userID, limit)
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerEventMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", msg.Kind, "record_id", msg.RecordID, "error", err)
	}
}

// Close closes the store and the AMQP connection.
func (s *LedgerService) Close() error {
	var errs []error

	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
