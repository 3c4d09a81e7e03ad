package event

import (
	"context"
	"errors"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOutboxEntryNotFound is returned by Get for unknown ids
var ErrOutboxEntryNotFound = shared.NewDomainError("OUTBOX_ENTRY_NOT_FOUND", "Outbox entry not found")

// GormOutboxRepository stores entries in outbox_events
type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) Append(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.OutboxEntryModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// Claim selects due rows and flips them to PROCESSING in one transaction.
// On PostgreSQL the select takes FOR UPDATE SKIP LOCKED, so relays running in
// several replicas split the backlog instead of delivering an entry twice.
func (r *GormOutboxRepository) Claim(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []models.OutboxEntryModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("status = ?", shared.OutboxStatusPending).
			Or("status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)", shared.OutboxStatusFailed, now).
			Order("created_at, id").
			Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{
				Strength: clause.LockingStrengthUpdate,
				Options:  clause.LockingOptionsSkipLocked,
			})
		}
		if err := q.Find(&rows).Error; err != nil || len(rows) == 0 {
			return err
		}

		ids := make([]uuid.UUID, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
			rows[i].Status = shared.OutboxStatusProcessing
			rows[i].UpdatedAt = now
		}
		return tx.Model(&models.OutboxEntryModel{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"status": shared.OutboxStatusProcessing, "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return entriesOf(rows), nil
}

// Save writes the full entry back
func (r *GormOutboxRepository) Save(ctx context.Context, entry *shared.OutboxEntry) error {
	return r.db.WithContext(ctx).Save(models.OutboxEntryModelFromDomain(entry)).Error
}

func (r *GormOutboxRepository) Get(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var m models.OutboxEntryModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOutboxEntryNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// DeadLetters pages through DEAD entries, most recently failed first
func (r *GormOutboxRepository) DeadLetters(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	f := shared.Filter{Page: page, PageSize: pageSize}.Normalize()
	dead := r.db.WithContext(ctx).Model(&models.OutboxEntryModel{}).Where("status = ?", shared.OutboxStatusDead)

	var total int64
	if err := dead.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.OutboxEntryModel
	if err := dead.Session(&gorm.Session{}).
		Order("updated_at DESC").
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return entriesOf(rows), total, nil
}

// Requeue releases entries whose relay died mid-delivery
func (r *GormOutboxRepository) Requeue(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.OutboxEntryModel{}).
		Where("status = ? AND updated_at < ?", shared.OutboxStatusProcessing, before).
		Updates(map[string]any{"status": shared.OutboxStatusPending, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

// PurgeSent deletes delivered entries processed before the cutoff
func (r *GormOutboxRepository) PurgeSent(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&models.OutboxEntryModel{})
	return res.RowsAffected, res.Error
}

func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status shared.OutboxStatus
		N      int64
	}
	if err := r.db.WithContext(ctx).Model(&models.OutboxEntryModel{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}

func entriesOf(rows []models.OutboxEntryModel) []*shared.OutboxEntry {
	out := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
