package currency

import (
	"context"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Base is the canonical currency of all prices
const Base = "PLN"

// Source tells whether rates came from the live feed or the built-in table
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Rates maps a currency code to the amount of it one PLN buys
type Rates struct {
	Base      string
	Values    map[string]decimal.Decimal
	FetchedAt time.Time
	Source    Source
}

// FallbackRates are approximate rates used when the feed is unreachable
func FallbackRates() Rates {
	return Rates{
		Base: Base,
		Values: map[string]decimal.Decimal{
			"PLN": decimal.NewFromInt(1),
			"EUR": decimal.RequireFromString("0.23"),
			"USD": decimal.RequireFromString("0.25"),
		},
		FetchedAt: time.Now(),
		Source:    SourceFallback,
	}
}

// Convert turns a PLN amount into the target currency for display, rounded to 2 places
func (r Rates) Convert(amountPLN decimal.Decimal, target string) (decimal.Decimal, error) {
	rate, ok := r.Values[target]
	if !ok {
		return decimal.Zero, ErrUnsupportedCurrency.WithMessage("currency %s is not supported", target)
	}
	return valueobject.NewPLN(amountPLN).MulRate(rate).Amount(), nil
}

// Provider fetches live rates with PLN as base
type Provider interface {
	Fetch(ctx context.Context, targets []string) (map[string]decimal.Decimal, error)
}

var ErrUnsupportedCurrency = shared.NewDomainError("UNSUPPORTED_CURRENCY", "Currency is not supported")
