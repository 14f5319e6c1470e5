package testutil

import (
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/config"
)

// Sub-account numbers used by SubaccountsConfig.
const (
	LowRiskAccount     = "951000"
	LowRiskSubaccount  = "0001"
	HighRiskAccount    = "951000"
	HighRiskSubaccount = "0002"
)

func NewTestCard() payment.Card {
	return payment.Card{
		Number:     "4111111111111111",
		HolderName: "Ada Lovelace",
		ExpMonth:   12,
		ExpYear:    2030,
		CVV:        "987",
	}
}

func NewTestCustomer() payment.Customer {
	return payment.Customer{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Country:    "GB",
		PostalCode: "N1 9GU",
		IPAddress:  "203.0.113.10",
	}
}

func NewTestTokenizeRequest() payment.TokenizeRequest {
	return payment.TokenizeRequest{Card: NewTestCard(), Customer: NewTestCustomer()}
}

// SubaccountsConfig has both risk buckets filled.
func SubaccountsConfig() config.SubaccountsConfig {
	return config.SubaccountsConfig{
		LowRiskNonRecurring:  config.SubaccountConfig{AccountNumber: LowRiskAccount, SubAccountNumber: LowRiskSubaccount},
		HighRiskNonRecurring: config.SubaccountConfig{AccountNumber: HighRiskAccount, SubAccountNumber: HighRiskSubaccount},
	}
}
