package client

import (
	"encoding/json"
	"testing"

	"github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		minor    int64
		exponent int
		expected string
	}{
		{"dollars with cents", 10050, 2, "100.50"},
		{"cents only", 99, 2, "0.99"},
		{"single cent", 1, 2, "0.01"},
		{"zero", 0, 2, "0.00"},
		{"large amount", 999999, 2, "9999.99"},
		{"negative amount", -1050, 2, "-10.50"},
		{"yen has no minor unit", 1500, 0, "1500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, minorToDecimal(tt.minor, tt.exponent))
		})
	}
}

func TestDecimalToMinor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		exponent int
		expected int64
	}{
		{"whole dollars", "100", 2, 10000},
		{"dollars with cents", "100.50", 2, 10050},
		{"single decimal", "5.5", 2, 550},
		{"trailing zeros beyond exponent", "19.990", 2, 1999},
		{"leading dot", ".25", 2, 25},
		{"with whitespace", "  50.25  ", 2, 5025},
		{"negative amount", "-10.50", 2, -1050},
		{"yen", "1500", 0, 1500},
		{"classic float trap", "0.29", 2, 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decimalToMinor(tt.input, tt.exponent)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecimalToMinor_Errors(t *testing.T) {
	for _, input := range []string{"", "abc", "$100.00", "10.5.5", "1.234", "15.5"} {
		t.Run(input, func(t *testing.T) {
			exponent := 2
			if input == "15.5" {
				exponent = 0
			}
			_, err := decimalToMinor(input, exponent)
			assert.Error(t, err)
		})
	}
}

func TestNumericCurrencyCode(t *testing.T) {
	expected := map[string]int{"USD": 840, "EUR": 978, "GBP": 826, "CAD": 124, "AUD": 36, "JPY": 392, "usd": 840}
	for code, numeric := range expected {
		got, err := NumericCurrencyCode(code)
		require.NoError(t, err, code)
		assert.Equal(t, numeric, got, code)
	}

	_, err := NumericCurrencyCode("CHF")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnsupportedCurrency)

	var cfgErr *errors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestWireAmount(t *testing.T) {
	n, numeric, err := wireAmount(payment.Amount{Minor: 1999, Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, json.Number("19.99"), n)
	assert.Equal(t, 978, numeric)

	raw, err := json.Marshal(struct {
		Amount json.Number `json:"amount"`
	}{n})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":19.99}`, string(raw))
}

func TestAmountFromWire(t *testing.T) {
	fallback := payment.Amount{Minor: 500, Currency: "USD"}

	var parsed struct {
		Amount decimal `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.30"}`), &parsed))
	assert.Equal(t, payment.Amount{Minor: 1230, Currency: "GBP"}, amountFromWire(parsed.Amount, 826, fallback))

	require.NoError(t, json.Unmarshal([]byte(`{"amount":700}`), &parsed))
	assert.Equal(t, payment.Amount{Minor: 700, Currency: "JPY"}, amountFromWire(parsed.Amount, 392, fallback))

	assert.Equal(t, fallback, amountFromWire("", 840, fallback))
	assert.Equal(t, fallback, amountFromWire("1.2345", 840, fallback))
	assert.Equal(t, payment.Amount{Minor: 250, Currency: "USD"}, amountFromWire("2.50", 0, fallback))
}
