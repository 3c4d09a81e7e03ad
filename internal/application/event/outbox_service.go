// Package event exposes the outbox to administrators: delivery statistics and
// replay of events whose handlers kept failing (payment emails, search indexing, Kafka forwarding).
package event

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEntryNotFound is returned for unknown outbox ids
var ErrEntryNotFound = shared.NewDomainError("OUTBOX_ENTRY_NOT_FOUND", "Outbox entry not found")

// ErrEntryNotDead is returned when replaying an entry that is still being delivered
var ErrEntryNotDead = shared.NewDomainError("INVALID_STATE", "Only dead letter entries can be replayed")

const replayBatch = 100

// OutboxService lists and replays outbox entries
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{repo: repo, logger: logger}
}

// EntryView is an outbox entry as shown to admins
type EntryView struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Status        string          `json:"status"`
	RetryCount    int             `json:"retry_count"`
	MaxRetries    int             `json:"max_retries"`
	LastError     string          `json:"last_error,omitempty"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Page selects a page of dead letters
type Page struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Stats counts entries per delivery status
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// DeadLetters returns a page of entries that exhausted their retries
func (s *OutboxService) DeadLetters(ctx context.Context, p Page) ([]EntryView, int64, error) {
	f := shared.Filter{Page: p.Page, PageSize: p.PageSize}.Normalize()
	entries, total, err := s.repo.DeadLetters(ctx, f.Page, f.PageSize)
	if err != nil {
		s.logger.Error("Failed to list dead letters", zap.Error(err))
		return nil, 0, err
	}
	views := make([]EntryView, len(entries))
	for i, e := range entries {
		views[i] = toView(e)
	}
	return views, total, nil
}

// Get returns one entry including its payload
func (s *OutboxService) Get(ctx context.Context, id uuid.UUID) (*EntryView, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	v := toView(entry)
	return &v, nil
}

// Replay puts a dead entry back into the pending queue
func (s *OutboxService) Replay(ctx context.Context, id uuid.UUID) (*EntryView, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.Revive(time.Now()); err != nil {
		return nil, ErrEntryNotDead
	}
	if err := s.repo.Save(ctx, entry); err != nil {
		s.logger.Error("Failed to replay outbox entry", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Dead letter replayed",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_id", entry.AggregateID.String()),
	)
	v := toView(entry)
	return &v, nil
}

// ReplayAll puts every dead entry back into the pending queue
func (s *OutboxService) ReplayAll(ctx context.Context) (int64, error) {
	var count int64
	for {
		// replayed entries leave the dead set, so the first page always holds the remainder
		entries, _, err := s.repo.DeadLetters(ctx, 1, replayBatch)
		if err != nil {
			return count, err
		}
		progressed := false
		for _, entry := range entries {
			if entry.Revive(time.Now()) != nil {
				continue
			}
			if err := s.repo.Save(ctx, entry); err != nil {
				s.logger.Error("Failed to replay outbox entry", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			progressed = true
			count++
		}
		if len(entries) < replayBatch || !progressed {
			break
		}
	}
	s.logger.Info("Dead letters replayed", zap.Int64("count", count))
	return count, nil
}

// Stats returns outbox statistics
func (s *OutboxService) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := &Stats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		out.Total += n
	}
	return out, nil
}

func (s *OutboxService) find(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) && de.Code == ErrEntryNotFound.Code {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

func toView(e *shared.OutboxEntry) EntryView {
	v := EntryView{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if json.Valid(e.Payload) {
		v.Payload = json.RawMessage(e.Payload)
	}
	return v
}
