package event

import (
	"context"
	"fmt"

	"github.com/dronehub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher appends events to outbox_events inside the caller's
// transaction, so an aggregate change and its events commit together.
type OutboxPublisher struct {
	codec      *Codec
	maxRetries int
}

// NewOutboxPublisher stamps every entry with maxRetries; <= 0 keeps the default budget
func NewOutboxPublisher(codec *Codec, maxRetries int) *OutboxPublisher {
	return &OutboxPublisher{codec: codec, maxRetries: maxRetries}
}

// SaveEvents implements shared.TxEventSaver; tx must be the open *gorm.DB transaction
func (p *OutboxPublisher) SaveEvents(ctx context.Context, tx any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox needs a *gorm.DB transaction, got %T", tx)
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, ev := range events {
		payload, err := p.codec.Encode(ev)
		if err != nil {
			return err
		}
		entries[i] = shared.NewOutboxEntry(ev, payload, p.maxRetries)
	}
	return NewGormOutboxRepository(db).Append(ctx, entries...)
}

var _ shared.TxEventSaver = (*OutboxPublisher)(nil)
