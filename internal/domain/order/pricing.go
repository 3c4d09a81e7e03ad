package order

import (
	"github.com/shopspring/decimal"
)

// PricingPolicy computes shipping and VAT for an order.
// Catalog prices are net; VAT is added on top of goods and shipping.
type PricingPolicy struct {
	VATRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatFees              map[ShippingMethod]decimal.Decimal
}

// Totals are the money fields of an order. Total = Subtotal + ShippingCost + Tax.
type Totals struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// DefaultPricingPolicy is 23% VAT, free shipping from 500 PLN.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		VATRate:               decimal.RequireFromString("0.23"),
		FreeShippingThreshold: decimal.NewFromInt(500),
		FlatFees: map[ShippingMethod]decimal.Decimal{
			ShippingInPostLocker:  decimal.RequireFromString("13.99"),
			ShippingInPostCourier: decimal.RequireFromString("17.99"),
			ShippingGLSCourier:    decimal.RequireFromString("19.99"),
		},
	}
}

// ShippingCost returns the fee for the method, or zero at or above the threshold
func (p PricingPolicy) ShippingCost(subtotal decimal.Decimal, m ShippingMethod) decimal.Decimal {
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatFees[m].Round(2)
}

// Quote computes all totals for a subtotal
func (p PricingPolicy) Quote(subtotal decimal.Decimal, m ShippingMethod, vatExempt bool) Totals {
	subtotal = subtotal.Round(2)
	shipping := p.ShippingCost(subtotal, m)
	tax := decimal.Zero
	if !vatExempt {
		tax = subtotal.Add(shipping).Mul(p.VATRate).Round(2)
	}
	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        subtotal.Add(shipping).Add(tax),
	}
}

// Consistent reports whether Total equals the sum of its parts
func (t Totals) Consistent() bool {
	return t.Total.Equal(t.Subtotal.Add(t.ShippingCost).Add(t.Tax))
}
