package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// DefaultMaxRetries is the attempt budget of a new entry
const DefaultMaxRetries = 5

// Backoff spaces out redelivery attempts: Base, 2×Base, 4×Base ... capped at Max
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff retries after 1s, 2s, 4s ... and never waits longer than ten minutes
var DefaultBackoff = Backoff{Base: time.Second, Max: 10 * time.Minute}

// Delay returns the wait before attempt n+1, where n counts failed attempts so far
func (b Backoff) Delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := b.Base
	for i := 1; i < failures; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// OutboxEntry is a serialized domain event awaiting delivery to the local handlers.
// It is written in the transaction that changed the aggregate.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps an encoded event; maxRetries <= 0 means DefaultMaxRetries
func NewOutboxEntry(event DomainEvent, payload []byte, maxRetries int) *OutboxEntry {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    maxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Due reports whether a relay may claim the entry at now
func (e *OutboxEntry) Due(now time.Time) bool {
	switch e.Status {
	case OutboxStatusPending:
		return true
	case OutboxStatusFailed:
		return e.NextRetryAt == nil || !e.NextRetryAt.After(now)
	}
	return false
}

// Delivered records that every handler accepted the event
func (e *OutboxEntry) Delivered(now time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.NextRetryAt = nil
	e.LastError = ""
	e.UpdatedAt = now
}

// Undelivered records a failed attempt. The entry turns DEAD once its budget
// is spent, otherwise it waits b.Delay before the next claim.
func (e *OutboxEntry) Undelivered(cause error, now time.Time, b Backoff) {
	e.RetryCount++
	e.LastError = cause.Error()
	e.UpdatedAt = now
	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	next := now.Add(b.Delay(e.RetryCount))
	e.Status = OutboxStatusFailed
	e.NextRetryAt = &next
}

// Revive gives a dead entry a fresh attempt budget
func (e *OutboxEntry) Revive(now time.Time) error {
	if e.Status != OutboxStatusDead {
		return ErrInvalidState.WithMessage("only dead entries can be replayed, entry is %s", e.Status)
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = now
	return nil
}

func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository stores outbox entries
type OutboxRepository interface {
	Append(ctx context.Context, entries ...*OutboxEntry) error
	// Claim moves up to limit due entries to PROCESSING, oldest first. Entries
	// claimed by a concurrent caller are skipped.
	Claim(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	Save(ctx context.Context, entry *OutboxEntry) error
	Get(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	DeadLetters(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	// Requeue returns PROCESSING entries untouched since before to PENDING
	Requeue(ctx context.Context, before time.Time) (int64, error)
	PurgeSent(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
