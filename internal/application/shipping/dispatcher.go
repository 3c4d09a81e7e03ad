// Package shipping dispatches paid orders to a carrier and keeps their labels.
package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/domain/shipping"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DispatchRequest is an admin request to ship an order
type DispatchRequest struct {
	// Carrier overrides the carrier implied by the shipping method
	Carrier   order.Carrier
	Mode      shipping.Mode
	Parcel    shipping.Parcel
	CODAmount *decimal.Decimal
	Reference string
	Actor     string
}

// DispatchResult is the shipped order with the carrier's answer
type DispatchResult struct {
	Order       *order.Order
	Shipment    *shipping.Shipment
	TrackingURL string
}

// DispatcherConfig holds Dispatcher dependencies
type DispatcherConfig struct {
	Carriers []shipping.Carrier
	Orders   order.Repository
	Scope    order.TransactionScope
	// Storage archives labels; optional
	Storage shared.ObjectStorage
	Metrics *telemetry.BusinessMetrics
	Logger  *zap.Logger
}

// Dispatcher creates carrier shipments for orders
type Dispatcher struct {
	carriers map[order.Carrier]shipping.Carrier
	orders   order.Repository
	scope    order.TransactionScope
	storage  shared.ObjectStorage
	metrics  *telemetry.BusinessMetrics
	logger   *zap.Logger
}

// NewDispatcher creates a shipment dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		carriers: make(map[order.Carrier]shipping.Carrier, len(cfg.Carriers)),
		orders:   cfg.Orders,
		scope:    cfg.Scope,
		storage:  cfg.Storage,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	for _, c := range cfg.Carriers {
		d.carriers[c.Name()] = c
	}
	return d
}

func (d *Dispatcher) carrierFor(o *order.Order, override order.Carrier) (shipping.Carrier, error) {
	name := override
	if name == "" {
		name = o.ShippingMethod.Carrier()
	}
	c, ok := d.carriers[name]
	if !ok {
		return nil, shipping.ErrUnknownCarrier.WithMessage("carrier %q is not available", name)
	}
	return c, nil
}

// Dispatch creates a shipment with the carrier and marks the order SHIPPED
func (d *Dispatcher) Dispatch(ctx context.Context, orderID uuid.UUID, req DispatchRequest) (*DispatchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipping", "dispatch")
	defer span.End()

	o, err := d.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// checked before the carrier call so that no parcel is registered for an order that cannot ship
	if !o.Status.CanTransitionTo(order.StatusShipped) {
		return nil, order.ErrInvalidTransition.WithMessage("cannot ship a %s order", o.Status)
	}
	c, err := d.carrierFor(o, req.Carrier)
	if err != nil {
		return nil, err
	}

	cod := req.CODAmount
	if cod == nil && o.PaymentMethod == order.PaymentMethodCOD {
		total := o.Total
		cod = &total
	}

	log := d.logger.With(zap.Int64("order_number", o.Number), zap.String("carrier", string(c.Name())))
	start := time.Now()
	shipment, err := c.CreateShipment(ctx, shipping.Request{
		Order:     o,
		Mode:      req.Mode,
		Parcel:    req.Parcel,
		CODAmount: cod,
		Reference: req.Reference,
	})
	d.metrics.ObserveIntegration(ctx, string(c.Name()), time.Since(start), err)
	if err != nil {
		log.Warn("Carrier rejected shipment", zap.Error(err))
		d.metrics.RecordShipment(ctx, string(c.Name()), telemetry.OutcomeFailed)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var shipped *order.Order
	err = d.scope.Execute(ctx, func(repos order.TxRepositories) error {
		current, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := current.Ship(shipment.Carrier, shipment.ShipmentID, shipment.TrackingNumber); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, current); err != nil {
			return err
		}
		shipped = current
		return nil
	})
	if err != nil {
		// the parcel exists at the carrier; the operator has to reconcile by hand
		log.Error("Shipment created but order could not be updated",
			zap.String("shipment_id", shipment.ShipmentID),
			zap.String("tracking_number", shipment.TrackingNumber),
			zap.Error(err))
		return nil, fmt.Errorf("shipment %s created but order not updated: %w", shipment.ShipmentID, err)
	}

	d.metrics.RecordShipment(ctx, string(c.Name()), telemetry.OutcomeSuccess)
	log.Info("Order shipped",
		zap.String("shipment_id", shipment.ShipmentID),
		zap.String("tracking_number", shipment.TrackingNumber),
		zap.String("actor", req.Actor))

	return &DispatchResult{
		Order:       shipped,
		Shipment:    shipment,
		TrackingURL: shipping.TrackingURL(shipped.Carrier, shipped.TrackingNumber),
	}, nil
}

func labelKey(o *order.Order) string {
	return fmt.Sprintf("labels/%s/%s-%s.pdf", o.DisplayNumber(), o.Carrier, o.ShipmentID)
}

// Label returns the shipping label PDF, from the archive when it was fetched before
func (d *Dispatcher) Label(ctx context.Context, orderID uuid.UUID) (*shipping.Label, error) {
	o, err := d.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.ShipmentID == "" {
		return nil, shipping.ErrNoShipment
	}

	key := labelKey(o)
	if d.storage != nil {
		data, err := d.storage.Download(ctx, key)
		if err == nil {
			return &shipping.Label{ContentType: "application/pdf", Data: data}, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			d.logger.Warn("Label archive unavailable", zap.String("key", key), zap.Error(err))
		}
	}

	c, err := d.carrierFor(o, o.Carrier)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	label, err := c.GetLabel(ctx, o.ShipmentID)
	d.metrics.ObserveIntegration(ctx, string(c.Name()), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if d.storage != nil {
		if err := d.storage.Upload(ctx, key, label.Data, label.ContentType); err != nil {
			d.logger.Warn("Failed to archive label", zap.String("key", key), zap.Error(err))
		}
	}
	return label, nil
}
