package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/payment"
	"github.com/dronehub/backend/internal/infrastructure/cache"
	"github.com/dronehub/backend/internal/infrastructure/event"
	"github.com/dronehub/backend/internal/infrastructure/persistence"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"github.com/dronehub/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// scriptedGateway returns the event registered under the payload
type scriptedGateway struct {
	events map[string]*payment.Event
}

func (g *scriptedGateway) CreateCheckoutSession(context.Context, payment.SessionRequest) (*payment.Session, error) {
	return nil, errors.New("not used")
}

func (g *scriptedGateway) ExpireCheckoutSession(context.Context, string) error { return nil }

func (g *scriptedGateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	ev, ok := g.events[string(payload)]
	if !ok {
		return nil, errors.New("unknown payload")
	}
	return ev, nil
}

type webhookFixture struct {
	db       *gorm.DB
	gateway  *scriptedGateway
	orders   order.Repository
	products catalog.ProductRepository
	store    *cache.InMemoryIdempotencyStore
	svc      *WebhookService
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	codec := event.NewShopCodec()
	outbox := event.NewOutboxPublisher(codec, 0)

	f := &webhookFixture{
		db:       db,
		gateway:  &scriptedGateway{events: map[string]*payment.Event{}},
		orders:   persistence.NewGormOrderRepository(db, outbox),
		products: persistence.NewGormProductRepository(db, nil),
		store:    cache.NewInMemoryIdempotencyStore(),
	}
	t.Cleanup(func() { _ = f.store.Close() })
	f.svc = NewWebhookService(WebhookServiceConfig{
		Gateway:     f.gateway,
		Scope:       persistence.NewGormTransactionScope(db, outbox),
		Idempotency: f.store,
		Logger:      zap.NewNop(),
	})
	return f
}

func (f *webhookFixture) product(t *testing.T, name string, price int64, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(catalog.ProductInput{
		Name:     name,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		IsActive: true,
	})
	require.NoError(t, err)
	require.NoError(t, f.products.Save(context.Background(), p))
	return p
}

func (f *webhookFixture) setStock(t *testing.T, p *catalog.Product, stock int) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.ProductModel{}).Where("id = ?", p.ID).Update("stock", stock).Error)
}

func (f *webhookFixture) stockOf(t *testing.T, p *catalog.Product) int {
	t.Helper()
	reloaded, err := f.products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	return reloaded.Stock
}

func (f *webhookFixture) outboxCount(t *testing.T, eventType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.OutboxEntryModel{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func (f *webhookFixture) placeOrder(t *testing.T, number int64, lines ...order.LineInput) *order.Order {
	t.Helper()
	addr, err := order.NewLockerShippingAddress(order.Recipient{
		Name:  "Piotr Wiśniewski",
		Email: "piotr@example.pl",
		Phone: "+48 600 700 800",
	}, "GDA05N")
	require.NoError(t, err)
	o, err := order.New(order.PlaceParams{
		Lines:          lines,
		Address:        addr,
		ShippingMethod: order.ShippingInPostLocker,
		PaymentMethod:  order.PaymentMethodCard,
		Pricing:        order.DefaultPricingPolicy(),
	})
	require.NoError(t, err)
	require.NoError(t, o.Place(number))
	require.NoError(t, f.orders.Create(context.Background(), o))
	return o
}

func line(p *catalog.Product, qty int) order.LineInput {
	return order.LineInput{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: qty}
}

func (f *webhookFixture) deliver(t *testing.T, payload string) *WebhookResult {
	t.Helper()
	res, err := f.svc.ProcessWebhook(context.Background(), []byte(payload), "valid")
	require.NoError(t, err)
	return res
}

func TestProcessWebhook_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)
	_, err := f.svc.ProcessWebhook(context.Background(), []byte("{}"), "forged")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestProcessWebhook_CompletedIsAppliedOnce(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	a := f.product(t, "Rama Apex 5", 100, 5)
	b := f.product(t, "Silnik 2306", 50, 1)
	o := f.placeOrder(t, 1, line(a, 2), line(b, 1))

	f.gateway.events["completed"] = &payment.Event{
		ID: "evt_1", Type: "checkout.session.completed", Kind: payment.EventCheckoutCompleted,
		OrderID: o.ID, SessionID: "cs_1", PaymentID: "pi_1", Paid: true,
	}

	first := f.deliver(t, "completed")
	assert.Equal(t, OutcomeApplied, first.Outcome)
	assert.Equal(t, int64(1), first.OrderNumber)

	second := f.deliver(t, "completed")
	assert.Equal(t, OutcomeDuplicate, second.Outcome)

	stored, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, stored.Status)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, "pi_1", stored.PaymentID)

	assert.Equal(t, 3, f.stockOf(t, a))
	assert.Equal(t, 0, f.stockOf(t, b))
	assert.Equal(t, int64(1), f.outboxCount(t, order.EventTypeOrderPaid))
	assert.Zero(t, f.outboxCount(t, order.EventTypeStockShortage))
}

func TestProcessWebhook_RedeliveryAfterStoreLossIsNoop(t *testing.T) {
	f := newWebhookFixture(t)
	a := f.product(t, "Rama Apex 5", 100, 5)
	o := f.placeOrder(t, 7, line(a, 2))

	f.gateway.events["completed"] = &payment.Event{
		ID: "evt_7", Kind: payment.EventCheckoutCompleted, OrderID: o.ID, PaymentID: "pi_7", Paid: true,
	}
	assert.Equal(t, OutcomeApplied, f.deliver(t, "completed").Outcome)

	// the idempotency store forgot the event; the order status still guards the handler
	require.NoError(t, f.store.Release(context.Background(), "payment-webhook:evt_7"))
	assert.Equal(t, OutcomeNoop, f.deliver(t, "completed").Outcome)

	assert.Equal(t, 3, f.stockOf(t, a))
	assert.Equal(t, int64(1), f.outboxCount(t, order.EventTypeOrderPaid))
}

func TestProcessWebhook_StockShortage(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	a := f.product(t, "Rama Apex 5", 100, 5)
	b := f.product(t, "Silnik 2306", 50, 1)
	o := f.placeOrder(t, 2, line(a, 2), line(b, 1))

	// stock sold elsewhere while the customer was paying
	f.setStock(t, a, 3)
	f.setStock(t, b, 0)

	f.gateway.events["completed"] = &payment.Event{
		ID: "evt_2", Kind: payment.EventCheckoutCompleted, OrderID: o.ID, PaymentID: "pi_2", Paid: true,
	}
	assert.Equal(t, OutcomeApplied, f.deliver(t, "completed").Outcome)

	stored, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, stored.Status)
	assert.True(t, stored.IsPaid)

	assert.Equal(t, 1, f.stockOf(t, a))
	assert.Equal(t, 0, f.stockOf(t, b))
	assert.Equal(t, int64(1), f.outboxCount(t, order.EventTypeStockShortage))
}

func TestProcessWebhook_UnsettledPaymentWaits(t *testing.T) {
	f := newWebhookFixture(t)
	a := f.product(t, "Rama Apex 5", 100, 5)
	o := f.placeOrder(t, 3, line(a, 1))

	f.gateway.events["pending"] = &payment.Event{
		ID: "evt_3", Kind: payment.EventCheckoutCompleted, OrderID: o.ID, Paid: false,
	}
	assert.Equal(t, OutcomeNoop, f.deliver(t, "pending").Outcome)

	stored, err := f.orders.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
	assert.Equal(t, 5, f.stockOf(t, a))
}

func TestProcessWebhook_Expired(t *testing.T) {
	f := newWebhookFixture(t)
	a := f.product(t, "Rama Apex 5", 100, 5)
	pending := f.placeOrder(t, 4, line(a, 1))
	paid := f.placeOrder(t, 5, line(a, 1))

	f.gateway.events["paid"] = &payment.Event{
		ID: "evt_5a", Kind: payment.EventCheckoutCompleted, OrderID: paid.ID, PaymentID: "pi_5", Paid: true,
	}
	f.gateway.events["expired-pending"] = &payment.Event{ID: "evt_4", Kind: payment.EventCheckoutExpired, OrderID: pending.ID}
	f.gateway.events["expired-paid"] = &payment.Event{ID: "evt_5b", Kind: payment.EventCheckoutExpired, OrderID: paid.ID}

	f.deliver(t, "paid")
	assert.Equal(t, OutcomeApplied, f.deliver(t, "expired-pending").Outcome)
	assert.Equal(t, OutcomeNoop, f.deliver(t, "expired-paid").Outcome)

	ctx := context.Background()
	got, err := f.orders.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, got.Status)

	got, err = f.orders.FindByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, got.Status)
}

func TestProcessWebhook_PaymentFailedKeepsOrderPending(t *testing.T) {
	f := newWebhookFixture(t)
	a := f.product(t, "Rama Apex 5", 100, 5)
	o := f.placeOrder(t, 6, line(a, 1))

	f.gateway.events["failed"] = &payment.Event{
		ID: "evt_6", Kind: payment.EventPaymentFailed, OrderID: o.ID, FailureReason: "card_declined",
	}
	assert.Equal(t, OutcomeApplied, f.deliver(t, "failed").Outcome)

	stored, err := f.orders.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
	assert.Equal(t, int64(1), f.outboxCount(t, order.EventTypePaymentFailed))
}

func TestProcessWebhook_Acknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	f.gateway.events["unknown-order"] = &payment.Event{ID: "evt_8", Kind: payment.EventCheckoutCompleted, OrderID: uuid.New(), Paid: true}
	f.gateway.events["no-order"] = &payment.Event{ID: "evt_9", Kind: payment.EventCheckoutCompleted, Paid: true}
	f.gateway.events["other"] = &payment.Event{ID: "evt_10", Type: "customer.created", Kind: payment.EventIgnored}

	for _, payload := range []string{"unknown-order", "no-order", "other"} {
		t.Run(payload, func(t *testing.T) {
			assert.Equal(t, OutcomeIgnored, f.deliver(t, payload).Outcome)
		})
	}
}
