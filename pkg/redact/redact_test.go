package redact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSensitiveKey(t *testing.T) {
	for _, key := range []string{"token", "TOKEN", "Secret", "password", "cardNumber", "CARDNUMBER", "card_number", "CVV"} {
		assert.True(t, IsSensitiveKey(key), key)
	}
	for _, key := range []string{"paymentTokenId", "amount", "cardType", "lastFour", ""} {
		assert.False(t, IsSensitiveKey(key), key)
	}
}

func TestValue_NestedStructures(t *testing.T) {
	in := map[string]any{
		"amount": "10.00",
		"paymentInfo": map[string]any{
			"creditCardPaymentInfo": map[string]any{
				"cardNumber": "4111111111111111",
				"CVV":        "123",
				"expMonth":   "12",
			},
		},
		"history": []any{
			map[string]any{"card_number": "5500000000000004"},
			"plain",
		},
		"Password": "hunter2",
	}

	out := Value(in).(map[string]any)

	card := out["paymentInfo"].(map[string]any)["creditCardPaymentInfo"].(map[string]any)
	assert.Equal(t, Marker, card["cardNumber"])
	assert.Equal(t, Marker, card["CVV"])
	assert.Equal(t, "12", card["expMonth"])
	assert.Equal(t, Marker, out["history"].([]any)[0].(map[string]any)["card_number"])
	assert.Equal(t, "plain", out["history"].([]any)[1])
	assert.Equal(t, Marker, out["Password"])
	assert.Equal(t, "10.00", out["amount"])

	// the input is left untouched
	origCard := in["paymentInfo"].(map[string]any)["creditCardPaymentInfo"].(map[string]any)
	assert.Equal(t, "4111111111111111", origCard["cardNumber"])
}

func TestValue_StringMap(t *testing.T) {
	out := Value(map[string]string{"token": "abc", "scope": "backend"}).(map[string]any)

	assert.Equal(t, Marker, out["token"])
	assert.Equal(t, "backend", out["scope"])
}

func TestJSON(t *testing.T) {
	raw := []byte(`{"customer":{"email":"a@b.c"},"cards":[{"cardNumber":"4111111111111111","cvv":"999"}]}`)

	got := JSON(raw)

	assert.NotContains(t, string(got), "4111111111111111")
	assert.NotContains(t, string(got), "999")
	assert.Contains(t, string(got), Marker)
	assert.Contains(t, string(got), "a@b.c")
}

func TestJSON_NotJSON(t *testing.T) {
	got := JSON([]byte("cardNumber=4111111111111111"))

	assert.Equal(t, `"[REDACTED]"`, string(got))
	assert.Empty(t, JSON(nil))
}

func TestStruct(t *testing.T) {
	type card struct {
		Number string `json:"cardNumber"`
		CVV    string `json:"cvv"`
		Holder string `json:"nameOnCard"`
	}

	got := Struct(struct {
		Card card `json:"card"`
	}{Card: card{Number: "4111111111111111", CVV: "123", Holder: "Ada"}})

	var decoded map[string]map[string]string
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, Marker, decoded["card"]["cardNumber"])
	assert.Equal(t, Marker, decoded["card"]["cvv"])
	assert.Equal(t, "Ada", decoded["card"]["nameOnCard"])
}

func TestLast4(t *testing.T) {
	assert.Equal(t, "****7890", Last4("tok_1234567890"))
	assert.Equal(t, "****", Last4("abcd"))
	assert.Equal(t, "****", Last4(""))
}

func TestJSON_TokenIdentifiersKeepSuffix(t *testing.T) {
	out := JSON([]byte(`{"paymentTokenId":"01HF9Q2ZKM7","access_token":"abc123","clientAccnum":"951000"}`))

	assert.JSONEq(t, `{"paymentTokenId":"****ZKM7","access_token":"[REDACTED]","clientAccnum":"951000"}`, string(out))
}
