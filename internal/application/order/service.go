// Package order holds the order management use cases: admin status changes,
// detail edits, customer history and guest tracking.
package order

import (
	"context"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/domain/shipping"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusChange is an admin status update
type StatusChange struct {
	To     order.Status
	Force  bool
	Reason string
	Actor  string
}

// DetailsChange is an admin edit of notes and/or the address
type DetailsChange struct {
	Notes   *string
	Address *order.ShippingAddress
}

// Tracking is what a guest sees for their order
type Tracking struct {
	Number         string       `json:"number"`
	Status         order.Status `json:"status"`
	IsPaid         bool         `json:"is_paid"`
	Carrier        string       `json:"carrier,omitempty"`
	TrackingNumber string       `json:"tracking_number,omitempty"`
	TrackingURL    string       `json:"tracking_url,omitempty"`
	PlacedAt       time.Time    `json:"placed_at"`
	ShippedAt      *time.Time   `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time   `json:"delivered_at,omitempty"`
}

// Service manages placed orders
type Service struct {
	orders order.Repository
	scope  order.TransactionScope
	logger *zap.Logger
}

// NewService creates an order service
func NewService(orders order.Repository, scope order.TransactionScope, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orders: orders, scope: scope, logger: logger}
}

// List returns orders matching the admin filter
func (s *Service) List(ctx context.Context, filter order.Filter) ([]*order.Order, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
		filter.OrderDir = "desc"
	}
	return s.orders.List(ctx, filter)
}

// Get returns one order with its items
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// Audit returns the status audit trail, oldest first
func (s *Service) Audit(ctx context.Context, id uuid.UUID) ([]order.StatusAudit, error) {
	if _, err := s.orders.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.orders.ListAudit(ctx, id)
}

// ChangeStatus applies a validated or forced status change and records it in the audit trail.
// Moving to SHIPPED goes through the shipment dispatcher, which knows the carrier.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, change StatusChange) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "change_status")
	defer span.End()

	if change.To == order.StatusShipped && !change.Force {
		return nil, order.ErrInvalidTransition.WithMessage("create a shipment to mark the order as shipped")
	}

	var updated *order.Order
	err := s.scope.Execute(ctx, func(repos order.TxRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		var audit order.StatusAudit
		if change.Force {
			audit, err = o.ForceStatus(change.To, change.Actor, change.Reason)
		} else {
			audit, err = o.ChangeStatus(change.To, change.Actor, change.Reason)
		}
		if err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		if err := repos.Orders().AppendAudit(ctx, audit); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.Int64("order_number", updated.Number),
		zap.String("status", string(updated.Status)),
		zap.Bool("forced", change.Force),
		zap.String("actor", change.Actor))
	return updated, nil
}

// UpdateDetails edits notes and/or the address of an order that has not shipped
func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, change DetailsChange) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.UpdateDetails(change.Notes, change.Address); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Delete removes an order with its items and audit trail
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Warn("Order deleted", zap.Int64("order_number", o.Number), zap.String("order_id", id.String()))
	return nil
}

// CustomerOrders lists the orders of one user, newest first
func (s *Service) CustomerOrders(ctx context.Context, userID uuid.UUID, page shared.Filter) ([]*order.Order, int64, error) {
	page.OrderBy = "created_at"
	page.OrderDir = "desc"
	return s.orders.List(ctx, order.Filter{Filter: page, UserID: &userID})
}

// CustomerOrder returns an order owned by the user. Other users' orders look not found.
func (s *Service) CustomerOrder(ctx context.Context, userID, id uuid.UUID) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

// Track looks an order up by number for a guest. The email must match the order's contact email.
func (s *Service) Track(ctx context.Context, number int64, email string) (*Tracking, error) {
	o, err := s.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(email), o.CustomerEmail()) {
		return nil, order.ErrOrderNotFound
	}
	return &Tracking{
		Number:         o.DisplayNumber(),
		Status:         o.Status,
		IsPaid:         o.IsPaid,
		Carrier:        string(o.Carrier),
		TrackingNumber: o.TrackingNumber,
		TrackingURL:    shipping.TrackingURL(o.Carrier, o.TrackingNumber),
		PlacedAt:       o.CreatedAt,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
	}, nil
}
