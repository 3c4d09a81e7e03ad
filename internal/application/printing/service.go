// Package printing produces order documents: the VAT invoice rendered to PDF
// by headless Chrome and archived in object storage.
package printing

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	infra "github.com/dronehub/backend/internal/infrastructure/printing"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ErrInvoiceNotAvailable is returned for orders that were never paid and are not cash on delivery
var ErrInvoiceNotAvailable = shared.NewDomainError("INVOICE_NOT_AVAILABLE", "Invoice is available once the order is paid")

//go:embed templates/invoice.html.tmpl
var invoiceFS embed.FS

// Seller is printed in the invoice header
type Seller struct {
	Name    string
	Address string
	VATID   string
}

// Invoice is a rendered PDF
type Invoice struct {
	Number   string
	FileName string
	Data     []byte
	// URL is set when the PDF was archived in storage
	URL string
}

// InvoiceServiceConfig holds InvoiceService dependencies
type InvoiceServiceConfig struct {
	Orders   order.Repository
	Renderer infra.PDFRenderer
	// Storage archives rendered invoices; optional
	Storage shared.ObjectStorage
	Seller  Seller
	VATRate decimal.Decimal
	Logger  *zap.Logger
}

// InvoiceService renders and archives invoices
type InvoiceService struct {
	orders   order.Repository
	renderer infra.PDFRenderer
	storage  shared.ObjectStorage
	seller   Seller
	vatRate  decimal.Decimal
	page     *template.Template
	printer  *message.Printer
	logger   *zap.Logger
}

// NewInvoiceService parses the embedded invoice template
func NewInvoiceService(cfg InvoiceServiceConfig) (*InvoiceService, error) {
	s := &InvoiceService{
		orders:   cfg.Orders,
		renderer: cfg.Renderer,
		storage:  cfg.Storage,
		seller:   cfg.Seller,
		vatRate:  cfg.VATRate,
		printer:  message.NewPrinter(language.Polish),
		logger:   cfg.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	page, err := template.New("invoice.html.tmpl").
		Funcs(template.FuncMap{"pln": s.formatPLN, "percent": formatPercent, "inc": func(i int) int { return i + 1 }}).
		ParseFS(invoiceFS, "templates/invoice.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	s.page = page
	return s, nil
}

// invoiceLine is one priced row; shipping is a line of its own
type invoiceLine struct {
	Name     string
	Quantity int
	Net      decimal.Decimal
	NetTotal decimal.Decimal
}

type invoiceView struct {
	Number    string
	IssuedAt  time.Time
	Seller    Seller
	Order     *order.Order
	Lines     []invoiceLine
	Net       decimal.Decimal
	VATRate   decimal.Decimal
	VAT       decimal.Decimal
	Gross     decimal.Decimal
	Exempt    bool
	VATNumber string
	Address   order.ShippingAddress
	PaidAt    *time.Time
	COD       bool
}

// InvoiceNumber is FV/<year>/<order number>
func InvoiceNumber(o *order.Order) string {
	return fmt.Sprintf("FV/%d/%06d", o.CreatedAt.Year(), o.Number)
}

// Invoice returns the invoice of an order, rendering it on first request
func (s *InvoiceService) Invoice(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "printing", "invoice")
	defer span.End()

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsPaid && o.PaymentMethod != order.PaymentMethodCOD {
		return nil, ErrInvoiceNotAvailable
	}

	inv := &Invoice{
		Number:   InvoiceNumber(o),
		FileName: fmt.Sprintf("faktura-%s.pdf", o.DisplayNumber()),
	}
	key := archiveKey(o)
	if s.storage != nil {
		data, err := s.storage.Download(ctx, key)
		switch {
		case err == nil:
			inv.Data, inv.URL = data, s.storage.PublicURL(key)
			return inv, nil
		case !errors.Is(err, shared.ErrNotFound):
			s.logger.Warn("Invoice archive unavailable, rendering again", zap.String("key", key), zap.Error(err))
		}
	}

	html, err := s.RenderHTML(o)
	if err != nil {
		return nil, err
	}
	result, err := s.renderer.Render(ctx, &infra.RenderRequest{
		HTML:       html,
		Title:      inv.Number,
		Margins:    infra.DefaultMargins(),
		FooterHTML: `<div style="font-size:8px;width:100%;text-align:center"><span class="pageNumber"></span>/<span class="totalPages"></span></div>`,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Invoice rendering failed", zap.Int64("order_number", o.Number), zap.Error(err))
		return nil, err
	}
	inv.Data = result.PDFData

	if s.storage != nil {
		if err := s.storage.Upload(ctx, key, result.PDFData, "application/pdf"); err != nil {
			s.logger.Warn("Failed to archive invoice", zap.String("key", key), zap.Error(err))
		} else {
			inv.URL = s.storage.PublicURL(key)
		}
	}
	s.logger.Info("Invoice generated",
		zap.String("invoice", inv.Number),
		zap.Int64("order_number", o.Number),
		zap.Duration("render_duration", result.RenderDuration),
	)
	return inv, nil
}

// RenderHTML renders the invoice page without converting it to PDF
func (s *InvoiceService) RenderHTML(o *order.Order) (string, error) {
	view := invoiceView{
		Number:    InvoiceNumber(o),
		IssuedAt:  time.Now(),
		Seller:    s.seller,
		Order:     o,
		Net:       o.Subtotal.Add(o.ShippingCost),
		VATRate:   s.vatRate,
		VAT:       o.Tax,
		Gross:     o.Total,
		Exempt:    o.VATExempt,
		VATNumber: o.VATNumber,
		Address:   o.Address,
		PaidAt:    o.PaidAt,
		COD:       o.PaymentMethod == order.PaymentMethodCOD,
	}
	if o.VATExempt {
		view.VATRate = decimal.Zero
	}
	for _, it := range o.Items {
		name := it.Name
		if it.Variant != "" {
			name += " (" + it.Variant + ")"
		}
		view.Lines = append(view.Lines, invoiceLine{Name: name, Quantity: it.Quantity, Net: it.UnitPrice, NetTotal: it.LineTotal()})
	}
	if o.ShippingCost.IsPositive() {
		view.Lines = append(view.Lines, invoiceLine{Name: "Dostawa", Quantity: 1, Net: o.ShippingCost, NetTotal: o.ShippingCost})
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render invoice: %w", err)
	}
	return buf.String(), nil
}

func archiveKey(o *order.Order) string {
	return fmt.Sprintf("invoices/%d/%s.pdf", o.CreatedAt.Year(), o.DisplayNumber())
}

func (s *InvoiceService) formatPLN(d decimal.Decimal) string {
	return s.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2))) + " zł"
}

func formatPercent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).Round(0).String() + "%"
}
