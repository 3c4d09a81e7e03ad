// Package notification turns order events into customer and admin messages.
package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/dronehub/backend/internal/domain/notification"
	"github.com/dronehub/backend/internal/domain/order"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Template names
const (
	TemplateOrderReceived      = "order_received"
	TemplatePaymentConfirmed   = "payment_confirmed"
	TemplateOrderShipped       = "order_shipped"
	TemplateStatusChanged      = "status_changed"
	TemplatePaymentFailed      = "payment_failed"
	TemplateAdminNewOrder      = "admin_new_order"
	TemplateAdminOrderPaid     = "admin_order_paid"
	TemplateAdminStockShortage = "admin_stock_shortage"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var statusLabels = map[order.Status]string{
	order.StatusPending:    "oczekuje na płatność",
	order.StatusProcessing: "w realizacji",
	order.StatusShipped:    "wysłane",
	order.StatusDelivered:  "dostarczone",
	order.StatusCancelled:  "anulowane",
}

var paymentLabels = map[order.PaymentMethod]string{
	order.PaymentMethodCard: "karta płatnicza",
	order.PaymentMethodP24:  "Przelewy24",
	order.PaymentMethodBLIK: "BLIK",
	order.PaymentMethodCOD:  "płatność przy odbiorze",
}

// Renderer renders the message templates. Each template file defines
// <name>.subject, <name>.text and <name>.html.
type Renderer struct {
	html    *htmltemplate.Template
	text    *texttemplate.Template
	printer *message.Printer
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	r := &Renderer{printer: message.NewPrinter(language.Polish)}
	funcs := map[string]any{
		"pln":     r.FormatPLN,
		"status":  StatusLabel,
		"payment": PaymentLabel,
	}

	var err error
	r.text, err = texttemplate.New("text").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	r.html, err = htmltemplate.New("html").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return r, nil
}

// FormatPLN renders an amount the Polish way, e.g. "324,71 zł"
func (r *Renderer) FormatPLN(d decimal.Decimal) string {
	return r.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2))) + " zł"
}

// StatusLabel is the customer-facing Polish name of a status
func StatusLabel(s order.Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// PaymentLabel is the customer-facing Polish name of a payment method
func PaymentLabel(m order.PaymentMethod) string {
	if l, ok := paymentLabels[m]; ok {
		return l
	}
	return string(m)
}

// Render builds an email from the named template
func (r *Renderer) Render(name string, to []string, data any) (notification.Email, error) {
	var subject, text, html bytes.Buffer
	if err := r.text.ExecuteTemplate(&subject, name+".subject", data); err != nil {
		return notification.Email{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := r.text.ExecuteTemplate(&text, name+".text", data); err != nil {
		return notification.Email{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := r.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return notification.Email{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return notification.Email{
		To:      to,
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}
