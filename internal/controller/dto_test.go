package controller

import (
	"testing"
	"time"

	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
	"github.com/stretchr/testify/assert"
)

func TestCreatePaymentTokenRequest_ToDomain(t *testing.T) {
	req := CreatePaymentTokenRequest{
		Card: CardRequest{
			Number:     "4111 1111 1111 1111",
			HolderName: "Ada Lovelace",
			ExpMonth:   12,
			ExpYear:    2030,
			CVV:        "987",
		},
		Customer: CustomerRequest{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Country:   "gb",
		},
	}

	got := req.toDomain()

	assert.Equal(t, "4111111111111111", got.Card.Number)
	assert.Equal(t, "GB", got.Customer.Country)
	assert.Equal(t, 12, got.Card.ExpMonth)
	assert.Equal(t, "987", got.Card.CVV)
}

func TestAmountOf(t *testing.T) {
	assert.Equal(t, payment.Amount{Minor: 1999, Currency: "USD"}, amountOf(1999, "usd"))
}

func TestFromBearerToken(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := FromBearerToken(oauth.BearerToken{Value: "abc", ExpiresAt: exp})

	assert.Equal(t, "abc", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, exp, resp.ExpiresAt)
}

func TestFromPaymentResult(t *testing.T) {
	res := payment.NewPaymentResult("ccbill", "txn_1", payment.StatusCaptured, payment.Amount{Minor: 500, Currency: "EUR"}, nil)

	resp := FromPaymentResult(res)

	assert.Equal(t, "txn_1", resp.ID)
	assert.Equal(t, "ccbill", resp.Provider)
	assert.Equal(t, "captured", resp.Status)
	assert.Equal(t, int64(500), resp.Amount)
	assert.Equal(t, "EUR", resp.Currency)
}

func TestFromRefundResult(t *testing.T) {
	res := payment.NewRefundResult("ccbill", "rf_1", "txn_1", payment.RefundPending, payment.Amount{Minor: 100, Currency: "USD"}, nil)

	resp := FromRefundResult(res)

	assert.Equal(t, "rf_1", resp.ID)
	assert.Equal(t, "txn_1", resp.TransactionID)
	assert.Equal(t, string(payment.RefundPending), resp.Status)
}
