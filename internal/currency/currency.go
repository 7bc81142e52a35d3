// internal/currency/currency.go
package currency

import (
	"fmt"
	"math"
	"strings"
)

// Static rate table relative to USD. Rates are refreshed out-of-band;
// the marketplace treats this as an external lookup, not a feed.
var usdRates = map[string]float64{
	"USD": 1.0,
	"EUR": 1.09,
	"GBP": 1.27,
	"CAD": 0.73,
	"AUD": 0.65,
	"JPY": 0.0067,
	"NGN": 0.00065,
	"GHS": 0.064,
	"KES": 0.0077,
	"ZAR": 0.054,
	"UGX": 0.00027,
	"TZS": 0.00039,
	"XOF": 0.0017,
}

type UnsupportedCurrencyError struct {
	Code string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency: %s", e.Code)
}

func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsSupported(code string) bool {
	_, ok := usdRates[Normalize(code)]
	return ok
}

// RoundCents rounds to whole cents using round-half-to-even, so repeated
// conversions do not drift in one direction.
func RoundCents(amount float64) float64 {
	return math.RoundToEven(amount*100) / 100
}

// ToUSD converts an amount in the given currency to USD, rounded to cents.
func ToUSD(amount float64, code string) (float64, error) {
	code = Normalize(code)
	rate, ok := usdRates[code]
	if !ok {
		return 0, &UnsupportedCurrencyError{Code: code}
	}
	return RoundCents(amount * rate), nil
}

// FromUSD converts a USD amount to the given currency, rounded to cents.
func FromUSD(usd float64, code string) (float64, error) {
	code = Normalize(code)
	rate, ok := usdRates[code]
	if !ok {
		return 0, &UnsupportedCurrencyError{Code: code}
	}
	return RoundCents(usd / rate), nil
}
