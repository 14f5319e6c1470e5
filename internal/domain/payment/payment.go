package payment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cassiomorais/cardgateway/internal/domain/errors"
)

// Type classifies why money is moving. It drives sub-account selection.
type Type string

const (
	OneTime   Type = "one_time"
	Recurring Type = "recurring"
)

// PaymentStatus is the closed set of states a charge can be reported in.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCaptured  PaymentStatus = "captured"
	StatusFailed    PaymentStatus = "failed"
	StatusRefunded  PaymentStatus = "refunded"
	StatusCancelled PaymentStatus = "cancelled"
)

// RefundStatus is the closed set of states a refund can be reported in.
type RefundStatus string

const (
	RefundPending    RefundStatus = "pending"
	RefundProcessing RefundStatus = "processing"
	RefundSucceeded  RefundStatus = "succeeded"
	RefundFailed     RefundStatus = "failed"
)

// SubscriptionStatus is the state echoed for locally tracked subscriptions.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Metadata keys read when choosing the charge sub-account.
const (
	MetaPaymentType = "payment_type"
	MetaIsRecurring = "is_recurring"
	MetaCreatorID   = "creator_id"
)

// Amount represents a monetary amount in the smallest currency unit (e.g. cents).
type Amount struct {
	Minor    int64
	Currency string
}

// String returns the amount in minor units with its currency code.
func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.Minor, a.Currency)
}

// Validate checks that the amount is valid.
func (a Amount) Validate() error {
	if a.Minor <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if a.Currency == "" {
		return errors.NewValidationError("currency", "cannot be empty")
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}

// PaymentResult is the normalized outcome of a payment operation.
type PaymentResult struct {
	Provider   string
	ProviderID string
	Status     PaymentStatus
	Amount     Amount
	Raw        json.RawMessage
}

// NewPaymentResult builds a complete PaymentResult.
func NewPaymentResult(provider, providerID string, status PaymentStatus, amount Amount, raw json.RawMessage) *PaymentResult {
	return &PaymentResult{
		Provider:   provider,
		ProviderID: providerID,
		Status:     status,
		Amount:     amount,
		Raw:        raw,
	}
}

// RefundResult is the normalized outcome of a refund.
type RefundResult struct {
	Provider      string
	ProviderID    string
	TransactionID string
	Status        RefundStatus
	Amount        Amount
	Raw           json.RawMessage
}

// NewRefundResult builds a complete RefundResult.
func NewRefundResult(provider, providerID, transactionID string, status RefundStatus, amount Amount, raw json.RawMessage) *RefundResult {
	return &RefundResult{
		Provider:      provider,
		ProviderID:    providerID,
		TransactionID: transactionID,
		Status:        status,
		Amount:        amount,
		Raw:           raw,
	}
}

// SubscriptionResult describes a subscription reference minted by the
// adapter. The provider does not track recurrence.
type SubscriptionResult struct {
	Provider       string
	ProviderID     string
	Status         SubscriptionStatus
	Plan           string
	PaymentTokenID string
	Amount         Amount
	Raw            json.RawMessage
}

// PaymentToken is a vaulted card reference.
type PaymentToken struct {
	Provider string
	ID       string
	Is3DS    bool
	Raw      json.RawMessage
}

// TokenDetails is what the provider reports about a vaulted card.
type TokenDetails struct {
	Provider string
	ID       string
	Is3DS    bool
	CardType string
	Last4    string
	ExpMonth int
	ExpYear  int
	Raw      json.RawMessage
}

// Card holds raw card data. It is sent to the provider once and never stored.
type Card struct {
	Number     string `json:"cardNumber"`
	HolderName string `json:"nameOnCard"`
	ExpMonth   int    `json:"expMonth"`
	ExpYear    int    `json:"expYear"`
	CVV        string `json:"cvv"`
}

// Customer is the billing identity submitted with a tokenization.
type Customer struct {
	FirstName  string
	LastName   string
	Email      string
	Country    string
	PostalCode string
	IPAddress  string
}

// TokenizeRequest asks for a card to be vaulted.
type TokenizeRequest struct {
	Card     Card
	Customer Customer
}

// IntentRequest opens a payment intent against a vaulted card.
type IntentRequest struct {
	PaymentTokenID string
	Amount         Amount
	Metadata       map[string]string
}

// ChargeRequest confirms an intent by charging the vaulted card.
type ChargeRequest struct {
	IntentID       string
	PaymentTokenID string
	Amount         Amount
	Metadata       map[string]string
}

// Classification extracts the routing inputs carried in the metadata.
// Missing or unparsable values leave the zero value, which routes to the
// conservative bucket.
func (r ChargeRequest) Classification() (paymentType Type, isRecurring bool, creatorID string) {
	paymentType = Type(strings.ToLower(strings.TrimSpace(r.Metadata[MetaPaymentType])))
	isRecurring, _ = strconv.ParseBool(r.Metadata[MetaIsRecurring])
	creatorID = strings.TrimSpace(r.Metadata[MetaCreatorID])
	return paymentType, isRecurring, creatorID
}

// RefundRequest refunds all or part of a captured transaction.
type RefundRequest struct {
	TransactionID string
	Amount        Amount
	Reason        string
}

// SubscriptionRequest creates a locally tracked subscription.
type SubscriptionRequest struct {
	PaymentTokenID string
	Plan           string
	Amount         Amount
	Metadata       map[string]string
}
