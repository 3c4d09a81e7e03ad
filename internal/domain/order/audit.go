package order

import (
	"time"

	"github.com/google/uuid"
)

// StatusAudit records an admin status change. Forced changes bypassed the transition table.
type StatusAudit struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	From      Status
	To        Status
	Actor     string
	Reason    string
	Forced    bool
	CreatedAt time.Time
}

func newStatusAudit(orderID uuid.UUID, from, to Status, actor, reason string, forced bool) StatusAudit {
	return StatusAudit{
		ID:        uuid.New(),
		OrderID:   orderID,
		From:      from,
		To:        to,
		Actor:     actor,
		Reason:    reason,
		Forced:    forced,
		CreatedAt: time.Now(),
	}
}
