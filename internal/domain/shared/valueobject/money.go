package valueobject

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code
type Currency string

const (
	PLN Currency = "PLN"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// DefaultCurrency is the currency of every persisted amount
const DefaultCurrency = PLN

// ErrCurrencyMismatch is returned when combining amounts in different currencies
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money is an immutable monetary amount
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money with the given currency
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount, currency: currency}
}

// NewPLN creates Money in złoty
func NewPLN(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: PLN}
}

// NewPLNFromString parses a złoty amount such as "149.99"
func NewPLNFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return NewPLN(d), nil
}

// ZeroPLN returns 0 PLN
func ZeroPLN() Money {
	return NewPLN(decimal.Zero)
}

func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) Currency() Currency {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns m + other
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// MulInt multiplies by an integer quantity
func (m Money) MulInt(n int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(n))), currency: m.currency}
}

// MulRate multiplies by a rate and rounds to whole minor units (half away from zero)
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(rate).Round(2), currency: m.currency}
}

// Round rounds to two decimal places
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(2), currency: m.currency}
}

// MinorUnits returns the amount in the smallest currency unit (grosze for PLN)
func (m Money) MinorUnits() int64 {
	return m.amount.Shift(2).Round(0).IntPart()
}

// GreaterThanOrEqual compares amounts of the same currency
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.currency == other.currency && m.amount.GreaterThanOrEqual(other.amount)
}

// Equals reports whether both amount and currency match
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders "149.99 PLN"
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + string(m.currency)
}
