package handler

import (
	"context"
	"strings"
	"time"

	currencyapp "github.com/dronehub/backend/internal/application/currency"
	"github.com/dronehub/backend/internal/domain/currency"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RateProvider serves display exchange rates
type RateProvider interface {
	Rates(ctx context.Context) currency.Rates
	Convert(ctx context.Context, amount decimal.Decimal, target string) (*currencyapp.ConversionResult, error)
}

// CurrencyHandler exposes display currency conversion. Orders are always charged in PLN.
type CurrencyHandler struct {
	BaseHandler
	rates RateProvider
}

// NewCurrencyHandler creates a new currency handler
func NewCurrencyHandler(rates RateProvider) *CurrencyHandler {
	return &CurrencyHandler{rates: rates}
}

// RatesResponse lists rates against the base currency
type RatesResponse struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
	Source    currency.Source            `json:"source"`
}

// ConvertQuery converts a PLN amount
type ConvertQuery struct {
	Amount string `form:"amount" binding:"required"`
	To     string `form:"to" binding:"required,len=3"`
}

// Rates godoc
// @ID           currencyRates
// @Summary      Exchange rates
// @Description  PLN based rates, cached for an hour. Fallback rates are served when the provider is down.
// @Tags         currency
// @Produce      json
// @Success      200 {object} APIResponse[RatesResponse]
// @Router       /currency/rates [get]
func (h *CurrencyHandler) Rates(c *gin.Context) {
	r := h.rates.Rates(c.Request.Context())
	h.Success(c, RatesResponse{Base: r.Base, Rates: r.Values, FetchedAt: r.FetchedAt, Source: r.Source})
}

// Convert godoc
// @ID           currencyConvert
// @Summary      Convert a PLN amount
// @Tags         currency
// @Produce      json
// @Param        amount query string true "Amount in PLN"
// @Param        to query string true "Target currency" Enums(EUR, USD, PLN)
// @Success      200 {object} APIResponse[currencyapp.ConversionResult]
// @Failure      400 {object} ErrorResponse
// @Router       /currency/convert [get]
func (h *CurrencyHandler) Convert(c *gin.Context) {
	var q ConvertQuery
	if !h.bindQuery(c, &q) {
		return
	}
	amount, err := decimal.NewFromString(q.Amount)
	if err != nil || amount.IsNegative() {
		h.BadRequest(c, "Amount must be a non-negative number")
		return
	}
	res, err := h.rates.Convert(c.Request.Context(), amount, strings.ToUpper(q.To))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
