package client

import (
	"encoding/json"
	"strconv"

	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/routing"
)

// flexString decodes identifiers the provider sends as strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexBool decodes booleans the provider sometimes sends as strings.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = flexBool(t)
	case string:
		parsed, _ := strconv.ParseBool(t)
		*f = flexBool(parsed)
	case float64:
		*f = t != 0
	}
	return nil
}

type customerInfo struct {
	FirstName  string `json:"customerFname,omitempty"`
	LastName   string `json:"customerLname,omitempty"`
	Email      string `json:"email,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"zipcode,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
}

type paymentInfo struct {
	CreditCard payment.Card `json:"creditCardPaymentInfo"`
}

type tokenizeRequest struct {
	ClientAccnum string       `json:"clientAccnum"`
	ClientSubacc string       `json:"clientSubacc"`
	Customer     customerInfo `json:"customerInfo"`
	PaymentInfo  paymentInfo  `json:"paymentInfo"`
}

type tokenizeResponse struct {
	PaymentTokenID flexString `json:"paymentTokenId"`
	ThreeDSecure   flexBool   `json:"threeDSecure"`
	ClientAccnum   flexString `json:"clientAccnum"`
	ClientSubacc   flexString `json:"clientSubacc"`
}

type tokenDetailsResponse struct {
	PaymentTokenID flexString `json:"paymentTokenId"`
	ThreeDSecure   flexBool   `json:"threeDSecure"`
	CardType       string     `json:"cardType"`
	LastFour       flexString `json:"lastFour"`
	ExpMonth       int        `json:"expMonth"`
	ExpYear        int        `json:"expYear"`
}

type chargeRequest struct {
	ClientAccnum string      `json:"clientAccnum"`
	ClientSubacc string      `json:"clientSubacc"`
	InitialPrice json.Number `json:"initialPrice"`
	CurrencyCode int         `json:"currencyCode"`
}

type transactionResponse struct {
	TransactionID flexString `json:"transactionId"`
	Status        string     `json:"status"`
	Approved      *flexBool  `json:"approved"`
	Amount        decimal    `json:"amount"`
	CurrencyCode  int        `json:"currencyCode"`
}

type refundRequest struct {
	Amount       json.Number `json:"amount"`
	CurrencyCode int         `json:"currencyCode"`
	Reason       string      `json:"reason,omitempty"`
}

type refundResponse struct {
	RefundID      flexString `json:"refundId"`
	TransactionID flexString `json:"transactionId"`
	Status        string     `json:"status"`
	Amount        decimal    `json:"amount"`
	CurrencyCode  int        `json:"currencyCode"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	ErrorCode      flexString   `json:"errorCode"`
	GeneralMessage string       `json:"generalMessage"`
	Errors         []fieldError `json:"errors"`
}

func newTokenizeRequest(sub routing.Subaccount, card payment.Card, c payment.Customer) tokenizeRequest {
	return tokenizeRequest{
		ClientAccnum: sub.AccountNumber,
		ClientSubacc: sub.SubAccountNumber,
		Customer: customerInfo{
			FirstName:  c.FirstName,
			LastName:   c.LastName,
			Email:      c.Email,
			Country:    c.Country,
			PostalCode: c.PostalCode,
			IPAddress:  c.IPAddress,
		},
		PaymentInfo: paymentInfo{CreditCard: card},
	}
}
