package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_MinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"0", 0},
		{"149.99", 14999},
		{"100", 10000},
		{"0.005", 1},
		{"12.344", 1234},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			m, err := NewPLNFromString(tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.MinorUnits())
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewPLN(decimal.NewFromInt(100))
	b := NewPLN(decimal.RequireFromString("50.50"))

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "150.50 PLN", sum.String())

	assert.Equal(t, "300.00 PLN", a.MulInt(3).String())
	assert.Equal(t, "34.62 PLN", NewPLN(decimal.RequireFromString("150.50")).MulRate(decimal.RequireFromString("0.23")).String())

	_, err = a.Add(NewMoney(decimal.NewFromInt(1), EUR))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_Invalid(t *testing.T) {
	_, err := NewPLNFromString("abc")
	assert.Error(t, err)
}
