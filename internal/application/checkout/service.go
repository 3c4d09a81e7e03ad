// Package checkout turns a client cart into a persisted order and a payment redirect.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dronehub/backend/internal/application/tax"
	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/payment"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Checkout errors
var (
	ErrEmptyCart          = order.ErrEmptyOrder
	ErrProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available")
	ErrInsufficientStock  = shared.ErrInsufficientStock
)

// CartLine is one line of the client cart. The client price is informational only.
type CartLine struct {
	ProductID   uuid.UUID
	Quantity    int
	Variant     string
	ClientPrice *decimal.Decimal
}

// Request is a checkout submission
type Request struct {
	UserID         *uuid.UUID
	Lines          []CartLine
	Address        order.ShippingAddress
	ShippingMethod order.ShippingMethod
	PaymentMethod  order.PaymentMethod
	VATNumber      string
	Notes          string
}

// Result is returned to the storefront
type Result struct {
	OrderID       uuid.UUID
	OrderNumber   int64
	DisplayNumber string
	Status        order.Status
	PaymentMethod order.PaymentMethod
	Totals        order.Totals
	VATExempt     bool
	// RedirectURL is the hosted payment page, or the confirmation page for cash on delivery
	RedirectURL string
}

// VATChecker decides the intra-community exemption
type VATChecker interface {
	ExemptionFor(ctx context.Context, raw string) (tax.Exemption, error)
}

// ProductReader loads the products a cart refers to
type ProductReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.Product, error)
}

// Config holds Service dependencies
type Config struct {
	Products  ProductReader
	Orders    order.Repository
	Scope     order.TransactionScope
	Gateway   payment.Gateway
	VAT       VATChecker
	Pricing   order.PricingPolicy
	PublicURL string
	Metrics   *telemetry.BusinessMetrics
	Logger    *zap.Logger
}

// Service orchestrates checkout
type Service struct {
	products  ProductReader
	orders    order.Repository
	scope     order.TransactionScope
	gateway   payment.Gateway
	vat       VATChecker
	pricing   order.PricingPolicy
	publicURL string
	metrics   *telemetry.BusinessMetrics
	logger    *zap.Logger
}

// NewService creates a checkout service
func NewService(cfg Config) *Service {
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		products:  cfg.Products,
		orders:    cfg.Orders,
		scope:     cfg.Scope,
		gateway:   cfg.Gateway,
		vat:       cfg.VAT,
		pricing:   cfg.Pricing,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		metrics:   cfg.Metrics,
		logger:    l,
	}
}

// PlaceOrder validates the cart against the catalog, persists the order and,
// for online payment methods, opens a hosted checkout session.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place_order")
	defer span.End()

	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if req.PaymentMethod.IsOnline() && s.gateway == nil {
		return nil, payment.ErrGatewayUnavailable
	}

	lines, err := s.priceLines(ctx, req.Lines)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	exemption := tax.Exemption{}
	if req.VATNumber != "" && s.vat != nil {
		exemption, err = s.vat.ExemptionFor(ctx, req.VATNumber)
		if err != nil {
			return nil, err
		}
	}

	o, err := order.New(order.PlaceParams{
		UserID:         req.UserID,
		Lines:          lines,
		Address:        req.Address,
		ShippingMethod: req.ShippingMethod,
		PaymentMethod:  req.PaymentMethod,
		VATNumber:      exemption.VATNumber,
		VATExempt:      exemption.Exempt,
		Notes:          req.Notes,
		Pricing:        s.pricing,
	})
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos order.TxRepositories) error {
		number, err := repos.Numbers().Next(ctx)
		if err != nil {
			return fmt.Errorf("allocate order number: %w", err)
		}
		if err := o.Place(number); err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, o); err != nil {
			return err
		}
		if o.PaymentMethod.IsOnline() {
			// the payment webhook takes the stock
			return nil
		}
		return takeStock(ctx, repos.Stock(), o)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	log := s.logger.With(zap.Int64("order_number", o.Number))
	log.Info("Order placed",
		zap.String("order_id", o.ID.String()),
		zap.String("payment_method", string(o.PaymentMethod)),
		zap.String("shipping_method", string(o.ShippingMethod)),
		zap.String("total", o.Total.StringFixed(2)),
		zap.Bool("vat_exempt", o.VATExempt))
	s.metrics.RecordOrderCreated(ctx, string(o.PaymentMethod), string(o.ShippingMethod), o.Total)
	telemetry.SetAttributes(span, "order_number", o.Number, "payment_method", string(o.PaymentMethod))

	result := &Result{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		DisplayNumber: o.DisplayNumber(),
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Totals:        o.Totals(),
		VATExempt:     o.VATExempt,
	}

	if !o.PaymentMethod.IsOnline() {
		result.RedirectURL = fmt.Sprintf("%s/checkout/success?order=%s", s.publicURL, o.ID)
		return result, nil
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		Order:      o,
		SuccessURL: fmt.Sprintf("%s/checkout/success?order=%s&session_id={CHECKOUT_SESSION_ID}", s.publicURL, o.ID),
		CancelURL:  fmt.Sprintf("%s/checkout/cancel?order=%s", s.publicURL, o.ID),
	})
	if err != nil {
		log.Error("Payment session failed, cancelling order", zap.Error(err))
		telemetry.RecordError(span, err)
		s.compensate(ctx, o, err)
		return nil, payment.ErrSessionFailed.Wrap(err)
	}

	if err := o.AttachPaymentSession(session.ID); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		// the webhook carries the order id in metadata, so a missing session id is recoverable
		log.Warn("Failed to store payment session id", zap.String("session_id", session.ID), zap.Error(err))
	}

	result.RedirectURL = session.URL
	return result, nil
}

// priceLines re-reads every product and snapshots name and price from the catalog
func (s *Service) priceLines(ctx context.Context, cart []CartLine) ([]order.LineInput, error) {
	ids := make([]uuid.UUID, 0, len(cart))
	wanted := make(map[uuid.UUID]int, len(cart))
	for _, l := range cart {
		if l.Quantity <= 0 {
			return nil, shared.ErrInvalidInput.WithMessage("quantity must be positive")
		}
		if _, seen := wanted[l.ProductID]; !seen {
			ids = append(ids, l.ProductID)
		}
		wanted[l.ProductID] += l.Quantity
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.IsActive {
			return nil, ErrProductUnavailable.WithMessage("product %s is not available", id)
		}
		if !p.IsPurchasable(wanted[id]) {
			return nil, ErrInsufficientStock.WithMessage("only %d units of %s left", p.Stock, p.Name)
		}
	}

	lines := make([]order.LineInput, 0, len(cart))
	for _, l := range cart {
		p := byID[l.ProductID]
		if l.ClientPrice != nil && !l.ClientPrice.Equal(p.Price) {
			s.logger.Debug("Client price differs from catalog, using catalog price",
				zap.String("product_id", p.ID.String()),
				zap.String("client_price", l.ClientPrice.String()),
				zap.String("catalog_price", p.Price.String()))
		}
		lines = append(lines, order.LineInput{
			ProductID: p.ID,
			Name:      p.Name,
			SKU:       p.SKU,
			Variant:   l.Variant,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
		})
	}
	return lines, nil
}

// takeStock decrements stock for orders that never see a payment webhook.
// A short line fails the checkout and rolls the order back.
func takeStock(ctx context.Context, w order.StockWriter, o *order.Order) error {
	lines := make([]order.StockLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, order.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	results, err := w.Decrement(ctx, lines)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	for _, r := range results {
		if !r.Short {
			continue
		}
		name := r.ProductID.String()
		if it := o.ItemByProduct(r.ProductID); it != nil {
			name = it.Name
		}
		return ErrInsufficientStock.WithMessage("only %d units of %s left", r.Available, name)
	}
	return nil
}

// compensate cancels an order whose payment session could not be opened
func (s *Service) compensate(ctx context.Context, o *order.Order, cause error) {
	current, err := s.orders.FindByID(ctx, o.ID)
	if err != nil {
		s.logger.Error("Failed to reload order for cancellation", zap.String("order_id", o.ID.String()), zap.Error(err))
		return
	}
	reason := "payment session could not be created"
	var de *shared.DomainError
	if errors.As(cause, &de) && de.Message != "" {
		reason += ": " + de.Message
	}
	if err := current.Cancel("system", reason); err != nil {
		s.logger.Error("Failed to cancel order", zap.String("order_id", o.ID.String()), zap.Error(err))
		return
	}
	if err := s.orders.Save(ctx, current); err != nil {
		s.logger.Error("Failed to save cancelled order", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}
