package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.TxEventSaver
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB, outboxSaver shared.TxEventSaver) *GormOrderRepository {
	return &GormOrderRepository{db: db, outboxSaver: outboxSaver}
}

func (r *GormOrderRepository) findOne(db *gorm.DB, query string, arg any) (*order.Order, error) {
	var m models.OrderModel
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC")
	}).Where(query, arg).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate loads the order with a row lock held until the transaction ends
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// FindByNumber finds an order by its sequential number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number int64) (*order.Order, error) {
	return r.findOne(r.db.WithContext(ctx), "order_number = ?", number)
}

// List returns one page of orders, newest first unless the filter says otherwise
func (r *GormOrderRepository) List(ctx context.Context, filter order.Filter) ([]*order.Order, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	query := func() *gorm.DB {
		return r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	err := query().Preload("Items").
		Order(orderSorting.orderBy(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]*order.Order, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, f order.Filter) *gorm.DB {
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.Email != "" {
		query = query.Where("email = ?", strings.ToLower(strings.TrimSpace(f.Email)))
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at < ?", *f.To)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("(LOWER(recipient_name) LIKE ? OR LOWER(email) LIKE ? OR tracking_number = ?)", like, like, s)
	}
	return query
}

// Create inserts a new order with its items and writes its events to the outbox
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Create(models.OrderModelFromDomain(o)).Error; err != nil {
			if isDuplicate(err) {
				return shared.ErrAlreadyExists.WithMessage("order number %d is already taken", o.Number)
			}
			return err
		}
		return flushEvents(ctx, r.outboxSaver, tx, o)
	})
}

// Save updates the order header with an optimistic version check.
// Items are immutable after checkout and are not rewritten.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		m := models.OrderModelFromDomain(o)
		updatedAt := time.Now()
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(map[string]any{
				"user_id":            m.UserID,
				"subtotal":           m.Subtotal,
				"shipping_cost":      m.ShippingCost,
				"tax":                m.Tax,
				"total":              m.Total,
				"vat_number":         m.VATNumber,
				"vat_exempt":         m.VATExempt,
				"address_kind":       m.AddressKind,
				"recipient_name":     m.RecipientName,
				"company":            m.Company,
				"email":              m.Email,
				"phone":              m.Phone,
				"street":             m.Street,
				"building_number":    m.BuildingNumber,
				"flat_number":        m.FlatNumber,
				"postal_code":        m.PostalCode,
				"city":               m.City,
				"country_code":       m.CountryCode,
				"locker_id":          m.LockerID,
				"status":             m.Status,
				"payment_session_id": m.PaymentSessionID,
				"payment_id":         m.PaymentID,
				"is_paid":            m.IsPaid,
				"paid_at":            m.PaidAt,
				"carrier":            m.Carrier,
				"shipment_id":        m.ShipmentID,
				"tracking_number":    m.TrackingNumber,
				"shipped_at":         m.ShippedAt,
				"delivered_at":       m.DeliveredAt,
				"cancelled_at":       m.CancelledAt,
				"notes":              m.Notes,
				"version":            o.Version + 1,
				"updated_at":         updatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.OrderModel{}).Where("id = ?", o.ID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return order.ErrOrderNotFound
			}
			return shared.ErrConcurrencyConflict.WithMessage("order %s was modified by another request", o.DisplayNumber())
		}
		o.Version++
		o.UpdatedAt = updatedAt
		return flushEvents(ctx, r.outboxSaver, tx, o)
	})
}

// Delete removes an order with its items and audit trail
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderStatusAuditModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.OrderModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return order.ErrOrderNotFound
		}
		return nil
	})
}

// AppendAudit stores an admin status change
func (r *GormOrderRepository) AppendAudit(ctx context.Context, audit order.StatusAudit) error {
	return r.db.WithContext(ctx).Create(models.OrderStatusAuditModelFromDomain(audit)).Error
}

// ListAudit returns the status history of an order, oldest first
func (r *GormOrderRepository) ListAudit(ctx context.Context, orderID uuid.UUID) ([]order.StatusAudit, error) {
	var rows []models.OrderStatusAuditModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]order.StatusAudit, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
