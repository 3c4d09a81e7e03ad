// Package currency serves display exchange rates with PLN as base.
package currency

import (
	"context"
	"sync"
	"time"

	"github.com/dronehub/backend/internal/domain/currency"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long live rates are served from cache
	DefaultTTL = time.Hour
	// fallbackRetry is how long fallback rates are served before the feed is tried again
	fallbackRetry  = 5 * time.Minute
	sharedCacheKey = "rates"
)

// SharedCache is a cache shared between instances, such as Redis
type SharedCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// ConversionResult is an amount converted for display
type ConversionResult struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
	Source    currency.Source `json:"source"`
}

// Service returns rates that are never empty: live rates cached for the TTL,
// fallback rates when the feed fails.
type Service struct {
	provider currency.Provider
	shared   SharedCache
	targets  []string
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger

	group    singleflight.Group
	mu       sync.RWMutex
	rates    *currency.Rates
	validTil time.Time
}

// Config holds Service dependencies
type Config struct {
	Provider currency.Provider
	Shared   SharedCache
	Targets  []string
	TTL      time.Duration
	Logger   *zap.Logger
}

// NewService creates the currency service
func NewService(cfg Config) *Service {
	s := &Service{
		provider: cfg.Provider,
		shared:   cfg.Shared,
		targets:  cfg.Targets,
		ttl:      cfg.TTL,
		now:      time.Now,
		logger:   cfg.Logger,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if len(s.targets) == 0 {
		s.targets = []string{"EUR", "USD"}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Rates returns the current rates
func (s *Service) Rates(ctx context.Context) currency.Rates {
	s.mu.RLock()
	if s.rates != nil && s.now().Before(s.validTil) {
		r := *s.rates
		s.mu.RUnlock()
		return r
	}
	s.mu.RUnlock()

	v, _, _ := s.group.Do("rates", func() (any, error) {
		return s.refresh(ctx), nil
	})
	return v.(currency.Rates)
}

func (s *Service) refresh(ctx context.Context) currency.Rates {
	if s.shared != nil {
		var cached currency.Rates
		found, err := s.shared.Get(ctx, sharedCacheKey, &cached)
		if err != nil {
			s.logger.Warn("Shared FX cache read failed", zap.Error(err))
		}
		if found && len(cached.Values) > 0 {
			s.store(cached, cached.FetchedAt.Add(s.ttl))
			return cached
		}
	}

	values, err := s.provider.Fetch(ctx, s.targets)
	if err != nil || len(values) == 0 {
		s.logger.Warn("FX feed unavailable, serving fallback rates", zap.Error(err))
		fb := currency.FallbackRates()
		s.store(fb, s.now().Add(fallbackRetry))
		return fb
	}

	values[currency.Base] = decimal.NewFromInt(1)
	rates := currency.Rates{
		Base:      currency.Base,
		Values:    values,
		FetchedAt: s.now(),
		Source:    currency.SourceLive,
	}
	s.store(rates, rates.FetchedAt.Add(s.ttl))
	if s.shared != nil {
		if err := s.shared.Set(ctx, sharedCacheKey, rates, s.ttl); err != nil {
			s.logger.Warn("Shared FX cache write failed", zap.Error(err))
		}
	}
	return rates
}

func (s *Service) store(r currency.Rates, until time.Time) {
	s.mu.Lock()
	s.rates = &r
	s.validTil = until
	s.mu.Unlock()
}

// Convert converts a PLN amount into target
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, target string) (*ConversionResult, error) {
	rates := s.Rates(ctx)
	converted, err := rates.Convert(amount, target)
	if err != nil {
		return nil, err
	}
	return &ConversionResult{
		Amount:    amount,
		From:      currency.Base,
		To:        target,
		Rate:      rates.Values[target],
		Converted: converted,
		Source:    rates.Source,
	}, nil
}
