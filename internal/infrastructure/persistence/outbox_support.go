package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/dronehub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// eventSource is an aggregate that buffers domain events
type eventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// flushEvents writes the aggregate's pending events to the outbox inside tx.
// Events are cleared only after the outbox accepted them.
func flushEvents(ctx context.Context, saver shared.TxEventSaver, tx *gorm.DB, agg eventSource) error {
	events := agg.GetDomainEvents()
	if saver == nil || len(events) == 0 {
		return nil
	}
	if err := saver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	agg.ClearDomainEvents()
	return nil
}

// inTx reuses an open transaction or starts a new one
func inTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if isTx(db) {
		return fn(db.WithContext(ctx))
	}
	return db.WithContext(ctx).Transaction(fn)
}

func isTx(db *gorm.DB) bool {
	_, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}

// currentVersion reads the stored version of a row; found is false for new aggregates
func currentVersion(tx *gorm.DB, model any, id any) (version int, found bool, err error) {
	var row struct{ Version int }
	res := tx.Model(model).Select("version").Where("id = ?", id).Limit(1).Scan(&row)
	if res.Error != nil {
		return 0, false, res.Error
	}
	return row.Version, res.RowsAffected > 0, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
