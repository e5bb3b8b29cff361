// Package export defines the sink side of the ledger event stream: an
// append-only audit trail outside the primary store.
package export

import (
	"context"

	"jizhang/internal/amqp"
)

// RowAppender writes one ledger event as one appended row. Appends must
// be safe to repeat: the event stream delivers at least once.
type RowAppender interface {
	AppendEvent(ctx context.Context, ev *amqp.LedgerEventMessage) error
}
