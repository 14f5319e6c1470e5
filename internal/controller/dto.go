package controller

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
)

// --- Request DTOs ---
// Amounts travel as integers in the currency's minor unit (cents for USD,
// yen for JPY). Floats never touch money.

// CardRequest is raw card data. It is forwarded once and never logged.
type CardRequest struct {
	Number     string `json:"number" validate:"required,credit_card"`
	HolderName string `json:"holder_name" validate:"required,max=128"`
	ExpMonth   int    `json:"exp_month" validate:"required,min=1,max=12"`
	ExpYear    int    `json:"exp_year" validate:"required,min=2000,max=2100"`
	CVV        string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

// CustomerRequest is the billing identity sent with a card.
type CustomerRequest struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Country    string `json:"country" validate:"required,len=2"`
	PostalCode string `json:"postal_code"`
	IPAddress  string `json:"ip_address" validate:"omitempty,ip"`
}

// CreatePaymentTokenRequest vaults a card.
type CreatePaymentTokenRequest struct {
	Card     CardRequest     `json:"card"`
	Customer CustomerRequest `json:"customer"`
}

// CreateChargeRequest charges a vaulted card. Without an intent_id a new
// intent is opened first.
type CreateChargeRequest struct {
	IntentID       string            `json:"intent_id"`
	PaymentTokenID string            `json:"payment_token_id" validate:"required"`
	Amount         int64             `json:"amount" validate:"required,gt=0"`
	Currency       string            `json:"currency" validate:"required,len=3"`
	Metadata       map[string]string `json:"metadata"`
}

// CreateRefundRequest refunds all or part of a transaction.
type CreateRefundRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"required,len=3"`
	Reason        string `json:"reason" validate:"max=255"`
}

// CreateSubscriptionRequest registers a subscription reference.
type CreateSubscriptionRequest struct {
	PaymentTokenID string            `json:"payment_token_id" validate:"required"`
	Plan           string            `json:"plan" validate:"required"`
	Amount         int64             `json:"amount" validate:"required,gt=0"`
	Currency       string            `json:"currency" validate:"required,len=3"`
	Metadata       map[string]string `json:"metadata"`
}

// SwapSubscriptionRequest moves a subscription to another plan.
type SwapSubscriptionRequest struct {
	Plan string `json:"plan" validate:"required"`
}

// --- Response DTOs ---

// WidgetTokenResponse hands a short-lived frontend token to the card widget.
type WidgetTokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PaymentTokenResponse represents a vaulted card.
type PaymentTokenResponse struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Is3DS    bool   `json:"is_3ds"`
}

// TokenDetailsResponse describes a vaulted card.
type TokenDetailsResponse struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Is3DS    bool   `json:"is_3ds"`
	CardType string `json:"card_type,omitempty"`
	Last4    string `json:"last4,omitempty"`
	ExpMonth int    `json:"exp_month,omitempty"`
	ExpYear  int    `json:"exp_year,omitempty"`
}

// PaymentResponse represents a charge or intent.
type PaymentResponse struct {
	ID       string          `json:"id"`
	Provider string          `json:"provider"`
	Status   string          `json:"status"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// RefundResponse represents a refund.
type RefundResponse struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Provider      string          `json:"provider"`
	Status        string          `json:"status"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// SubscriptionResponse represents a subscription reference.
type SubscriptionResponse struct {
	ID             string `json:"id"`
	Provider       string `json:"provider"`
	Status         string `json:"status"`
	Plan           string `json:"plan,omitempty"`
	PaymentTokenID string `json:"payment_token_id,omitempty"`
	Amount         int64  `json:"amount,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	ProviderCode string `json:"provider_code,omitempty"`
}

// --- Conversion helpers ---

func (r CreatePaymentTokenRequest) toDomain() payment.TokenizeRequest {
	return payment.TokenizeRequest{
		Card: payment.Card{
			Number:     strings.ReplaceAll(r.Card.Number, " ", ""),
			HolderName: r.Card.HolderName,
			ExpMonth:   r.Card.ExpMonth,
			ExpYear:    r.Card.ExpYear,
			CVV:        r.Card.CVV,
		},
		Customer: payment.Customer{
			FirstName:  r.Customer.FirstName,
			LastName:   r.Customer.LastName,
			Email:      r.Customer.Email,
			Country:    strings.ToUpper(r.Customer.Country),
			PostalCode: r.Customer.PostalCode,
			IPAddress:  r.Customer.IPAddress,
		},
	}
}

func amountOf(minor int64, currency string) payment.Amount {
	return payment.Amount{Minor: minor, Currency: strings.ToUpper(currency)}
}

// FromBearerToken converts a frontend token for the widget.
func FromBearerToken(t oauth.BearerToken) *WidgetTokenResponse {
	return &WidgetTokenResponse{
		AccessToken: t.Value,
		TokenType:   "Bearer",
		ExpiresAt:   t.ExpiresAt,
	}
}

// FromPaymentToken converts a vaulted card to API response.
func FromPaymentToken(t *payment.PaymentToken) *PaymentTokenResponse {
	return &PaymentTokenResponse{ID: t.ID, Provider: t.Provider, Is3DS: t.Is3DS}
}

// FromTokenDetails converts token details to API response.
func FromTokenDetails(d *payment.TokenDetails) *TokenDetailsResponse {
	return &TokenDetailsResponse{
		ID:       d.ID,
		Provider: d.Provider,
		Is3DS:    d.Is3DS,
		CardType: d.CardType,
		Last4:    d.Last4,
		ExpMonth: d.ExpMonth,
		ExpYear:  d.ExpYear,
	}
}

// FromPaymentResult converts a payment result to API response.
func FromPaymentResult(p *payment.PaymentResult) *PaymentResponse {
	return &PaymentResponse{
		ID:       p.ProviderID,
		Provider: p.Provider,
		Status:   string(p.Status),
		Amount:   p.Amount.Minor,
		Currency: p.Amount.Currency,
		Raw:      p.Raw,
	}
}

// FromRefundResult converts a refund result to API response.
func FromRefundResult(r *payment.RefundResult) *RefundResponse {
	return &RefundResponse{
		ID:            r.ProviderID,
		TransactionID: r.TransactionID,
		Provider:      r.Provider,
		Status:        string(r.Status),
		Amount:        r.Amount.Minor,
		Currency:      r.Amount.Currency,
		Raw:           r.Raw,
	}
}

// FromSubscriptionResult converts a subscription result to API response.
func FromSubscriptionResult(s *payment.SubscriptionResult) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:             s.ProviderID,
		Provider:       s.Provider,
		Status:         string(s.Status),
		Plan:           s.Plan,
		PaymentTokenID: s.PaymentTokenID,
		Amount:         s.Amount.Minor,
		Currency:       s.Amount.Currency,
	}
}
