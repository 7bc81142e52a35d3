// internal/currency/currency_test.go
package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundCentsHalfToEven(t *testing.T) {
	// Midpoints round toward the even cent in both directions.
	assert.Equal(t, 0.12, RoundCents(0.125))
	assert.Equal(t, 0.38, RoundCents(0.375))
	assert.Equal(t, 0.62, RoundCents(0.625))
	assert.Equal(t, 1.0, RoundCents(1.004))
	assert.Equal(t, 10.5, RoundCents(10.5))
}

func TestToUSD(t *testing.T) {
	usd, err := ToUSD(100, "EUR")
	require.NoError(t, err)
	assert.Equal(t, 109.0, usd)

	usd, err = ToUSD(42.5, "usd")
	require.NoError(t, err)
	assert.Equal(t, 42.5, usd)
}

func TestFromUSD(t *testing.T) {
	amount, err := FromUSD(109, "EUR")
	require.NoError(t, err)
	assert.Equal(t, 100.0, amount)
}

func TestUnsupportedCurrency(t *testing.T) {
	_, err := ToUSD(10, "BTC")

	var unsupported *UnsupportedCurrencyError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "BTC", unsupported.Code)

	_, err = FromUSD(10, "DOGE")
	require.ErrorAs(t, err, &unsupported)
}

func TestNormalizeAndIsSupported(t *testing.T) {
	assert.Equal(t, "NGN", Normalize("  ngn "))
	assert.True(t, IsSupported("eur"))
	assert.False(t, IsSupported("BTC"))
	assert.False(t, IsSupported(""))
}
