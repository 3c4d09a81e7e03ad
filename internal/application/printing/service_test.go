package printing

import (
	"context"
	"testing"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/infrastructure/event"
	"github.com/dronehub/backend/internal/infrastructure/persistence"
	infra "github.com/dronehub/backend/internal/infrastructure/printing"
	"github.com/dronehub/backend/internal/infrastructure/storage"
	"github.com/dronehub/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRenderer returns a fixed PDF and keeps the HTML it was given
type recordingRenderer struct {
	calls int
	html  string
	err   error
}

func (r *recordingRenderer) Render(_ context.Context, req *infra.RenderRequest) (*infra.RenderResult, error) {
	r.calls++
	r.html = req.HTML
	if r.err != nil {
		return nil, r.err
	}
	return &infra.RenderResult{PDFData: []byte("%PDF-1.7 test"), RenderDuration: time.Millisecond}, nil
}

func (r *recordingRenderer) Close() error { return nil }

type fixture struct {
	orders   order.Repository
	renderer *recordingRenderer
	storage  *storage.MemoryObjectStorage
	svc      *InvoiceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	codec := event.NewShopCodec()
	f := &fixture{
		orders:   persistence.NewGormOrderRepository(db, event.NewOutboxPublisher(codec, 0)),
		renderer: &recordingRenderer{},
		storage:  storage.NewMemoryObjectStorage("https://cdn.example.pl"),
	}
	svc, err := NewInvoiceService(InvoiceServiceConfig{
		Orders:   f.orders,
		Renderer: f.renderer,
		Storage:  f.storage,
		Seller:   Seller{Name: "DroneHub Sp. z o.o.", Address: "ul. Lotnicza 1, 00-001 Warszawa", VATID: "PL5250000000"},
		VATRate:  decimal.RequireFromString("0.23"),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) place(t *testing.T, method order.PaymentMethod, vatNumber string, exempt bool) *order.Order {
	t.Helper()
	addr, err := order.NewStreetShippingAddress(
		order.Recipient{Name: "Anna Nowak", Company: "Aero GmbH", Email: "anna@example.de", Phone: "+4915112345678"},
		order.StreetAddress{Street: "Hauptstrasse", BuildingNumber: "5", PostalCode: "10115", City: "Berlin", CountryCode: "DE"},
	)
	require.NoError(t, err)
	o, err := order.New(order.PlaceParams{
		Lines: []order.LineInput{
			{ProductID: uuid.New(), Name: "Silnik 2207", Variant: "1950KV", UnitPrice: decimal.NewFromInt(100), Quantity: 4},
		},
		Address:        addr,
		ShippingMethod: order.ShippingGLSCourier,
		PaymentMethod:  method,
		VATNumber:      vatNumber,
		VATExempt:      exempt,
		Pricing:        order.DefaultPricingPolicy(),
	})
	require.NoError(t, err)
	require.NoError(t, o.Place(42))
	require.NoError(t, f.orders.Create(context.Background(), o))
	return o
}

func TestInvoice_UnpaidOnlineOrderIsRejected(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, order.PaymentMethodCard, "", false)

	_, err := f.svc.Invoice(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrInvoiceNotAvailable)
	assert.Zero(t, f.renderer.calls)
}

func TestInvoice_RendersOnceAndArchives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.place(t, order.PaymentMethodCOD, "", false)

	inv, err := f.svc.Invoice(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 test"), inv.Data)
	assert.Equal(t, "faktura-DH-000042.pdf", inv.FileName)
	assert.Contains(t, inv.URL, "https://cdn.example.pl/invoices/")
	assert.Contains(t, f.renderer.html, "Silnik 2207 (1950KV)")
	assert.Contains(t, f.renderer.html, "23%")
	assert.Contains(t, f.renderer.html, "DroneHub Sp. z o.o.")

	again, err := f.svc.Invoice(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Data, again.Data)
	assert.Equal(t, 1, f.renderer.calls, "archived invoice is served without rendering again")
}

func TestRenderHTML_ReverseCharge(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, order.PaymentMethodCOD, "DE123456789", true)

	html, err := f.svc.RenderHTML(o)
	require.NoError(t, err)
	assert.Contains(t, html, "Odwrotne obciążenie")
	assert.Contains(t, html, "DE123456789")
	assert.Contains(t, html, "np.")
}

func TestInvoiceNumber(t *testing.T) {
	o := &order.Order{Number: 7}
	o.CreatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "FV/2026/000007", InvoiceNumber(o))
}
