package tax

import (
	"context"
	"testing"

	"github.com/dronehub/backend/internal/domain/tax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Check(ctx context.Context, n tax.VATNumber) (*tax.Registration, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tax.Registration), args.Error(1)
}

func TestService_Validate_NonEUWithoutNetworkCall(t *testing.T) {
	registry := new(MockRegistry)
	svc := NewService(registry, "", zap.NewNop())

	_, err := svc.Validate(context.Background(), "US123456")
	assert.ErrorIs(t, err, tax.ErrNonEUPrefix)
	registry.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestService_Validate(t *testing.T) {
	name := "Drone Parts GmbH"
	tests := []struct {
		name       string
		raw        string
		reg        *tax.Registration
		wantValid  bool
		wantExempt bool
	}{
		{
			name:       "valid foreign is exempt",
			raw:        "de 123 456 789",
			reg:        &tax.Registration{CountryCode: "DE", Number: "123456789", Valid: true, Name: &name},
			wantValid:  true,
			wantExempt: true,
		},
		{
			name:      "valid domestic is taxed",
			raw:       "PL5260250274",
			reg:       &tax.Registration{CountryCode: "PL", Number: "5260250274", Valid: true},
			wantValid: true,
		},
		{
			name: "invalid is taxed",
			raw:  "FR12345678901",
			reg:  &tax.Registration{CountryCode: "FR", Number: "12345678901"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := new(MockRegistry)
			registry.On("Check", mock.Anything, mock.Anything).Return(tt.reg, nil)
			svc := NewService(registry, "PL", zap.NewNop())

			res, err := svc.Validate(context.Background(), tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Equal(t, tt.wantExempt, res.VATExempt)
		})
	}
}

func TestService_ExemptionFor(t *testing.T) {
	ctx := context.Background()

	t.Run("no number", func(t *testing.T) {
		svc := NewService(new(MockRegistry), "PL", zap.NewNop())
		ex, err := svc.ExemptionFor(ctx, "")
		require.NoError(t, err)
		assert.False(t, ex.Exempt)
	})

	t.Run("VIES down charges VAT", func(t *testing.T) {
		registry := new(MockRegistry)
		registry.On("Check", ctx, tax.VATNumber{CountryCode: "DE", Number: "123456789"}).
			Return(nil, tax.ErrVIESUnavailable.WithMessage("MS_UNAVAILABLE"))
		svc := NewService(registry, "PL", zap.NewNop())

		ex, err := svc.ExemptionFor(ctx, "DE123456789")
		require.NoError(t, err)
		assert.Equal(t, "DE123456789", ex.VATNumber)
		assert.False(t, ex.Exempt)
		assert.False(t, ex.Verified)
	})

	t.Run("malformed number", func(t *testing.T) {
		svc := NewService(new(MockRegistry), "PL", zap.NewNop())
		_, err := svc.ExemptionFor(ctx, "US999")
		assert.ErrorIs(t, err, tax.ErrNonEUPrefix)
	})

	t.Run("domestic number with no echoed country is taxed", func(t *testing.T) {
		registry := new(MockRegistry)
		registry.On("Check", ctx, tax.VATNumber{CountryCode: "PL", Number: "5260250274"}).
			Return(&tax.Registration{Valid: true}, nil)
		svc := NewService(registry, "PL", zap.NewNop())

		ex, err := svc.ExemptionFor(ctx, "PL5260250274")
		require.NoError(t, err)
		assert.False(t, ex.Exempt)
		assert.True(t, ex.Verified)
		assert.Equal(t, "PL5260250274", ex.VATNumber)
	})

	t.Run("valid foreign", func(t *testing.T) {
		registry := new(MockRegistry)
		registry.On("Check", ctx, mock.Anything).
			Return(&tax.Registration{CountryCode: "CZ", Number: "12345678", Valid: true}, nil)
		svc := NewService(registry, "PL", zap.NewNop())

		ex, err := svc.ExemptionFor(ctx, "CZ12345678")
		require.NoError(t, err)
		assert.True(t, ex.Exempt)
		assert.True(t, ex.Verified)
	})
}
