package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
)

type currency struct {
	code     string
	numeric  int
	exponent int
}

// supportedCurrencies is the provider's allow-list.
var supportedCurrencies = map[string]currency{
	"USD": {code: "USD", numeric: 840, exponent: 2},
	"EUR": {code: "EUR", numeric: 978, exponent: 2},
	"GBP": {code: "GBP", numeric: 826, exponent: 2},
	"CAD": {code: "CAD", numeric: 124, exponent: 2},
	"AUD": {code: "AUD", numeric: 36, exponent: 2},
	"JPY": {code: "JPY", numeric: 392, exponent: 0},
}

func lookupCurrency(code string) (currency, error) {
	c, ok := supportedCurrencies[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return currency{}, errors.NewConfigurationError(
			"currency",
			fmt.Sprintf("currency %q is not supported by the provider", code),
			errors.ErrUnsupportedCurrency,
		)
	}
	return c, nil
}

func currencyByNumeric(numeric int) (currency, bool) {
	for _, c := range supportedCurrencies {
		if c.numeric == numeric {
			return c, true
		}
	}
	return currency{}, false
}

// NumericCurrencyCode returns the ISO 4217 numeric code for an allowed
// currency.
func NumericCurrencyCode(code string) (int, error) {
	c, err := lookupCurrency(code)
	if err != nil {
		return 0, err
	}
	return c.numeric, nil
}

// minorToDecimal renders minor units in the currency's major unit,
// e.g. 1999 with exponent 2 is "19.99".
func minorToDecimal(minor int64, exponent int) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	digits := strconv.FormatInt(minor, 10)
	if exponent == 0 {
		return sign + digits
	}
	if len(digits) <= exponent {
		digits = strings.Repeat("0", exponent-len(digits)+1) + digits
	}
	cut := len(digits) - exponent
	return sign + digits[:cut] + "." + digits[cut:]
}

// decimalToMinor parses a major-unit decimal into minor units. Precision
// beyond the currency exponent is rejected rather than rounded.
func decimalToMinor(s string, exponent int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty decimal amount")
	}

	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > exponent {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, exponent)
	}
	frac += strings.Repeat("0", exponent-len(frac))

	v, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// wireAmount encodes an amount as a JSON number in major units.
func wireAmount(a payment.Amount) (json.Number, int, error) {
	c, err := lookupCurrency(a.Currency)
	if err != nil {
		return "", 0, err
	}
	return json.Number(minorToDecimal(a.Minor, c.exponent)), c.numeric, nil
}

// decimal accepts a JSON number or a quoted number.
type decimal string

func (d *decimal) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		s = n.String()
	}
	*d = decimal(s)
	return nil
}

// amountFromWire converts a provider amount back to minor units. When the
// provider omits or garbles it, fallback is returned.
func amountFromWire(value decimal, numeric int, fallback payment.Amount) payment.Amount {
	if value == "" {
		return fallback
	}
	c, ok := currencyByNumeric(numeric)
	if !ok {
		c, ok = supportedCurrencies[strings.ToUpper(fallback.Currency)]
		if !ok {
			return fallback
		}
	}
	minor, err := decimalToMinor(string(value), c.exponent)
	if err != nil {
		return fallback
	}
	return payment.Amount{Minor: minor, Currency: c.code}
}
