package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	domainErrors "github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/routing"
)

// Operation names, used in errors, logs and metrics.
const (
	OpCreatePaymentToken3DS  = "create_payment_token_3ds"
	OpCreatePaymentToken     = "create_payment_token"
	OpChargePaymentToken     = "charge_payment_token"
	OpRefundPayment          = "refund_payment"
	OpGetPaymentTokenDetails = "get_payment_token_details"
	OpGetTransactionStatus   = "get_transaction_status"
)

// TokenizeParams describes a card to vault.
type TokenizeParams struct {
	Subaccount routing.Subaccount
	Card       payment.Card
	Customer   payment.Customer
}

// ChargeParams describes a charge against a vaulted card.
type ChargeParams struct {
	PaymentTokenID string
	Subaccount     routing.Subaccount
	Amount         payment.Amount
}

// RefundParams describes a refund of a settled transaction.
type RefundParams struct {
	TransactionID string
	Amount        payment.Amount
	Reason        string
}

// PaymentTokenResponse is a successful tokenization.
type PaymentTokenResponse struct {
	ID           string
	ThreeDSecure bool
	Raw          json.RawMessage
}

// TokenDetailsResponse is what the provider reports about a vaulted card.
type TokenDetailsResponse struct {
	ID           string
	ThreeDSecure bool
	CardType     string
	Last4        string
	ExpMonth     int
	ExpYear      int
	Raw          json.RawMessage
}

// TransactionResponse is a charge or a transaction lookup.
type TransactionResponse struct {
	ID     string
	Status string
	// Approved is set when the provider reports an explicit approval flag.
	Approved *bool
	Amount   payment.Amount
	Raw      json.RawMessage
}

// RefundResponse is an accepted refund.
type RefundResponse struct {
	ID            string
	TransactionID string
	Status        string
	Amount        payment.Amount
	Raw           json.RawMessage
}

// CreatePaymentToken3DS vaults a card with 3-D Secure required. The bearer
// must be a frontend token.
func (c *Client) CreatePaymentToken3DS(ctx context.Context, bearer oauth.BearerToken, p TokenizeParams) (*PaymentTokenResponse, error) {
	return c.tokenize(ctx, OpCreatePaymentToken3DS, "/payment-tokens/threeds-required", bearer, p)
}

// CreatePaymentToken vaults a card without 3-D Secure. The bearer must be a
// frontend token.
func (c *Client) CreatePaymentToken(ctx context.Context, bearer oauth.BearerToken, p TokenizeParams) (*PaymentTokenResponse, error) {
	return c.tokenize(ctx, OpCreatePaymentToken, "/payment-tokens/merchant-only", bearer, p)
}

func (c *Client) tokenize(ctx context.Context, op, path string, bearer oauth.BearerToken, p TokenizeParams) (*PaymentTokenResponse, error) {
	body, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   path,
		bearer: &bearer,
		body:   newTokenizeRequest(p.Subaccount, p.Card, p.Customer),
	})
	if err != nil {
		return nil, err
	}

	var tr tokenizeResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if tr.PaymentTokenID == "" {
		return nil, fmt.Errorf("%s: %w: response carried no payment token id", op, domainErrors.ErrTokenizationFailed)
	}

	return &PaymentTokenResponse{
		ID:           string(tr.PaymentTokenID),
		ThreeDSecure: bool(tr.ThreeDSecure),
		Raw:          body,
	}, nil
}

// ChargePaymentToken charges a vaulted card against a sub-account.
func (c *Client) ChargePaymentToken(ctx context.Context, p ChargeParams) (*TransactionResponse, error) {
	price, numeric, err := wireAmount(p.Amount)
	if err != nil {
		return nil, err
	}

	body, err := c.execute(ctx, call{
		op:         OpChargePaymentToken,
		method:     http.MethodPost,
		path:       "/transactions/payment-tokens/{paymentTokenId}",
		pathParams: map[string]string{"paymentTokenId": p.PaymentTokenID},
		body: chargeRequest{
			ClientAccnum: p.Subaccount.AccountNumber,
			ClientSubacc: p.Subaccount.SubAccountNumber,
			InitialPrice: price,
			CurrencyCode: numeric,
		},
	})
	if err != nil {
		return nil, err
	}
	return decodeTransaction(OpChargePaymentToken, body, p.Amount)
}

// RefundPayment refunds all or part of a transaction.
func (c *Client) RefundPayment(ctx context.Context, p RefundParams) (*RefundResponse, error) {
	amount, numeric, err := wireAmount(p.Amount)
	if err != nil {
		return nil, err
	}

	body, err := c.execute(ctx, call{
		op:         OpRefundPayment,
		method:     http.MethodPost,
		path:       "/transactions/{transactionId}/refunds",
		pathParams: map[string]string{"transactionId": p.TransactionID},
		body: refundRequest{
			Amount:       amount,
			CurrencyCode: numeric,
			Reason:       p.Reason,
		},
	})
	if err != nil {
		return nil, err
	}

	var rr refundResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", OpRefundPayment, err)
	}
	txnID := string(rr.TransactionID)
	if txnID == "" {
		txnID = p.TransactionID
	}
	return &RefundResponse{
		ID:            string(rr.RefundID),
		TransactionID: txnID,
		Status:        rr.Status,
		Amount:        amountFromWire(rr.Amount, rr.CurrencyCode, p.Amount),
		Raw:           body,
	}, nil
}

// GetPaymentTokenDetails looks up a vaulted card.
func (c *Client) GetPaymentTokenDetails(ctx context.Context, tokenID string) (*TokenDetailsResponse, error) {
	body, err := c.execute(ctx, call{
		op:         OpGetPaymentTokenDetails,
		method:     http.MethodGet,
		path:       "/payment-tokens/{paymentTokenId}",
		pathParams: map[string]string{"paymentTokenId": tokenID},
	})
	if err != nil {
		return nil, err
	}

	var dr tokenDetailsResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", OpGetPaymentTokenDetails, err)
	}
	id := string(dr.PaymentTokenID)
	if id == "" {
		id = tokenID
	}
	return &TokenDetailsResponse{
		ID:           id,
		ThreeDSecure: bool(dr.ThreeDSecure),
		CardType:     dr.CardType,
		Last4:        string(dr.LastFour),
		ExpMonth:     dr.ExpMonth,
		ExpYear:      dr.ExpYear,
		Raw:          body,
	}, nil
}

// GetTransactionStatus looks up a transaction.
func (c *Client) GetTransactionStatus(ctx context.Context, transactionID string) (*TransactionResponse, error) {
	body, err := c.execute(ctx, call{
		op:         OpGetTransactionStatus,
		method:     http.MethodGet,
		path:       "/transactions/{transactionId}",
		pathParams: map[string]string{"transactionId": transactionID},
	})
	if err != nil {
		return nil, err
	}

	txn, err := decodeTransaction(OpGetTransactionStatus, body, payment.Amount{})
	if err != nil {
		return nil, err
	}
	if txn.ID == "" {
		txn.ID = transactionID
	}
	return txn, nil
}

func decodeTransaction(op string, body []byte, fallback payment.Amount) (*TransactionResponse, error) {
	var tr transactionResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	var approved *bool
	if tr.Approved != nil {
		v := bool(*tr.Approved)
		approved = &v
	}
	return &TransactionResponse{
		ID:       string(tr.TransactionID),
		Status:   tr.Status,
		Approved: approved,
		Amount:   amountFromWire(tr.Amount, tr.CurrencyCode, fallback),
		Raw:      body,
	}, nil
}
