package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/currency"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultNBPURL is the National Bank of Poland table A of average rates
const DefaultNBPURL = "https://api.nbp.pl/api/exchangerates/tables/A?format=json"

// NBPProvider fetches average exchange rates published by the National Bank of Poland.
// NBP quotes PLN per unit of foreign currency; Fetch inverts them to units per PLN.
type NBPProvider struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

type nbpTable struct {
	Table         string    `json:"table"`
	No            string    `json:"no"`
	EffectiveDate string    `json:"effectiveDate"`
	Rates         []nbpRate `json:"rates"`
}

type nbpRate struct {
	Currency string          `json:"currency"`
	Code     string          `json:"code"`
	Mid      decimal.Decimal `json:"mid"`
}

// NewNBPProvider creates a provider. An empty url means the public NBP API.
func NewNBPProvider(url string, httpClient *http.Client, logger *zap.Logger) *NBPProvider {
	if url == "" {
		url = DefaultNBPURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &NBPProvider{url: url, httpClient: httpClient, logger: logger}
}

// Fetch returns the amount of each target currency one PLN buys
func (p *NBPProvider) Fetch(ctx context.Context, targets []string) (map[string]decimal.Decimal, error) {
	ctx, span := telemetry.StartClientSpan(ctx, "nbp", "fetch_rates")
	defer span.End()

	rates, err := p.fetch(ctx, targets)
	telemetry.RecordError(span, err)
	return rates, err
}

func (p *NBPProvider) fetch(ctx context.Context, targets []string) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fx: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fx: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fx: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fx: failed to read response: %w", err)
	}

	var tables []nbpTable
	if err := json.Unmarshal(body, &tables); err != nil {
		return nil, fmt.Errorf("fx: failed to decode response: %w", err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("fx: empty rate table")
	}

	mids := make(map[string]decimal.Decimal, len(tables[0].Rates))
	for _, r := range tables[0].Rates {
		mids[strings.ToUpper(r.Code)] = r.Mid
	}

	out := map[string]decimal.Decimal{currency.Base: decimal.NewFromInt(1)}
	for _, code := range targets {
		code = strings.ToUpper(code)
		if code == currency.Base {
			continue
		}
		mid, ok := mids[code]
		if !ok || !mid.IsPositive() {
			return nil, fmt.Errorf("fx: table %s has no rate for %s", tables[0].No, code)
		}
		out[code] = decimal.NewFromInt(1).DivRound(mid, 6)
	}

	p.logger.Debug("Fetched NBP rates",
		zap.String("table", tables[0].No),
		zap.String("effective_date", tables[0].EffectiveDate),
		zap.Int("currencies", len(out)))
	return out, nil
}

var _ currency.Provider = (*NBPProvider)(nil)
