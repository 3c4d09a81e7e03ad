package persistence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderSequenceName is the counter row used for order numbers
const OrderSequenceName = "orders"

// GormTransactionScope implements order.TransactionScope using GORM transactions.
// Every repository handed to fn shares the same transaction.
type GormTransactionScope struct {
	db          *gorm.DB
	outboxSaver shared.TxEventSaver
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, outboxSaver shared.TxEventSaver) *GormTransactionScope {
	return &GormTransactionScope{db: db, outboxSaver: outboxSaver}
}

// Execute runs fn within a database transaction. An error from fn rolls everything back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos order.TxRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxRepositories{tx: tx, outboxSaver: s.outboxSaver})
	})
}

type gormTxRepositories struct {
	tx          *gorm.DB
	outboxSaver shared.TxEventSaver
}

func (r *gormTxRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx, r.outboxSaver)
}

func (r *gormTxRepositories) Numbers() order.NumberAllocator {
	return NewGormNumberAllocator(r.tx)
}

func (r *gormTxRepositories) Stock() order.StockWriter {
	return NewGormStockWriter(r.tx)
}

// GormNumberAllocator hands out order numbers from a counter row.
// The UPDATE takes a row lock, so concurrent checkouts serialize on the counter
// and never receive the same number.
type GormNumberAllocator struct {
	db *gorm.DB
}

// NewGormNumberAllocator creates an allocator. db should be a transaction so the
// number is released on rollback together with the order.
func NewGormNumberAllocator(db *gorm.DB) *GormNumberAllocator {
	return &GormNumberAllocator{db: db}
}

// Next increments the counter and returns the new value
func (a *GormNumberAllocator) Next(ctx context.Context) (int64, error) {
	var next int64
	err := inTx(ctx, a.db, func(tx *gorm.DB) error {
		for attempt := 0; attempt < 2; attempt++ {
			res := tx.Model(&models.OrderSequenceModel{}).
				Where("name = ?", OrderSequenceName).
				Update("value", gorm.Expr("value + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				var seq models.OrderSequenceModel
				if err := tx.Where("name = ?", OrderSequenceName).First(&seq).Error; err != nil {
					return err
				}
				next = seq.Value
				return nil
			}
			// first order ever: create the counter and retry
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.OrderSequenceModel{Name: OrderSequenceName, Value: 0}).Error; err != nil {
				return err
			}
		}
		return fmt.Errorf("order sequence %q unavailable", OrderSequenceName)
	})
	return next, err
}

// GormStockWriter decrements product stock with conditional updates
type GormStockWriter struct {
	db *gorm.DB
}

// NewGormStockWriter creates a stock writer bound to db (normally a transaction)
func NewGormStockWriter(db *gorm.DB) *GormStockWriter {
	return &GormStockWriter{db: db}
}

// Decrement takes the requested quantities from stock. Stock never goes negative:
// a line that cannot be covered clamps the product to zero and is reported Short.
// Lines are processed in product id order so concurrent writers lock rows in the same order.
func (w *GormStockWriter) Decrement(ctx context.Context, lines []order.StockLine) ([]order.StockResult, error) {
	sorted := make([]order.StockLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID.String() < sorted[j].ProductID.String() })

	results := make([]order.StockResult, 0, len(sorted))
	err := inTx(ctx, w.db, func(tx *gorm.DB) error {
		for _, line := range sorted {
			if line.Quantity <= 0 {
				continue
			}
			var row struct{ Stock int }
			res := tx.Model(&models.ProductModel{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("stock").
				Where("id = ?", line.ProductID).
				Limit(1).
				Scan(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// product deleted after checkout
				results = append(results, order.StockResult{ProductID: line.ProductID, Requested: line.Quantity, Short: true})
				continue
			}

			result := order.StockResult{ProductID: line.ProductID, Requested: line.Quantity, Available: row.Stock}
			now := time.Now()
			upd := tx.Model(&models.ProductModel{}).
				Where("id = ? AND stock >= ?", line.ProductID, line.Quantity).
				Updates(map[string]any{"stock": gorm.Expr("stock - ?", line.Quantity), "updated_at": now})
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				result.Short = true
				if err := tx.Model(&models.ProductModel{}).
					Where("id = ?", line.ProductID).
					Updates(map[string]any{"stock": 0, "updated_at": now}).Error; err != nil {
					return err
				}
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

var (
	_ order.TransactionScope = (*GormTransactionScope)(nil)
	_ order.TxRepositories   = (*gormTxRepositories)(nil)
	_ order.NumberAllocator  = (*GormNumberAllocator)(nil)
	_ order.StockWriter      = (*GormStockWriter)(nil)
)
