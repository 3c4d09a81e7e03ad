package currency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dronehub/backend/internal/domain/currency"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls  atomic.Int32
	values map[string]decimal.Decimal
	err    error
	delay  time.Duration
}

func (p *stubProvider) Fetch(ctx context.Context, targets []string) (map[string]decimal.Decimal, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]decimal.Decimal, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out, nil
}

func liveProvider() *stubProvider {
	return &stubProvider{values: map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("0.2310"),
		"USD": decimal.RequireFromString("0.2500"),
	}}
}

func TestService_LiveRatesCached(t *testing.T) {
	p := liveProvider()
	svc := NewService(Config{Provider: p})
	now := time.Now()
	svc.now = func() time.Time { return now }

	r := svc.Rates(context.Background())
	assert.Equal(t, currency.SourceLive, r.Source)
	assert.True(t, r.Values["PLN"].Equal(decimal.NewFromInt(1)))
	assert.True(t, r.Values["EUR"].Equal(decimal.RequireFromString("0.231")))

	svc.Rates(context.Background())
	assert.Equal(t, int32(1), p.calls.Load())

	now = now.Add(DefaultTTL + time.Second)
	svc.Rates(context.Background())
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestService_FallbackOnFailure(t *testing.T) {
	p := &stubProvider{err: errors.New("connection refused")}
	svc := NewService(Config{Provider: p})

	r := svc.Rates(context.Background())
	assert.Equal(t, currency.SourceFallback, r.Source)
	for _, code := range []string{"PLN", "EUR", "USD"} {
		assert.Contains(t, r.Values, code)
	}

	res, err := svc.Convert(context.Background(), decimal.NewFromInt(100), "EUR")
	require.NoError(t, err)
	assert.Equal(t, currency.SourceFallback, res.Source)
	assert.True(t, res.Converted.Equal(decimal.NewFromInt(23)))
}

func TestService_ConcurrentCallersShareOneFetch(t *testing.T) {
	p := liveProvider()
	p.delay = 50 * time.Millisecond
	svc := NewService(Config{Provider: p})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Rates(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), p.calls.Load())
}

type memoryCache struct {
	data map[string]currency.Rates
}

func (c *memoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	r, ok := c.data[key]
	if !ok {
		return false, nil
	}
	*(dst.(*currency.Rates)) = r
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	c.data[key] = v.(currency.Rates)
	return nil
}

func TestService_SharedCacheServesOtherInstances(t *testing.T) {
	shared := &memoryCache{data: map[string]currency.Rates{}}
	first := liveProvider()
	NewService(Config{Provider: first, Shared: shared}).Rates(context.Background())

	second := liveProvider()
	r := NewService(Config{Provider: second, Shared: shared}).Rates(context.Background())
	assert.Equal(t, currency.SourceLive, r.Source)
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestService_ConvertUnsupported(t *testing.T) {
	svc := NewService(Config{Provider: liveProvider()})
	_, err := svc.Convert(context.Background(), decimal.NewFromInt(10), "GBP")
	assert.ErrorIs(t, err, currency.ErrUnsupportedCurrency)
}
