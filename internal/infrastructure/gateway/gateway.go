// Package gateway adapts the card provider to the payment contracts the rest
// of the application depends on.
package gateway

import (
	"context"
	"encoding/json"
	"strings"

	domainErrors "github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/client"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/routing"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/observability"
	"github.com/cassiomorais/cardgateway/pkg/redact"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultProviderName tags results when no name is configured.
const DefaultProviderName = "ccbill"

// FrontendTokens issues tokens for card tokenization.
type FrontendTokens interface {
	FrontendToken(ctx context.Context) (oauth.BearerToken, error)
}

// ProviderAPI is the subset of the provider's REST API the gateway uses.
type ProviderAPI interface {
	CreatePaymentToken3DS(ctx context.Context, bearer oauth.BearerToken, p client.TokenizeParams) (*client.PaymentTokenResponse, error)
	CreatePaymentToken(ctx context.Context, bearer oauth.BearerToken, p client.TokenizeParams) (*client.PaymentTokenResponse, error)
	ChargePaymentToken(ctx context.Context, p client.ChargeParams) (*client.TransactionResponse, error)
	RefundPayment(ctx context.Context, p client.RefundParams) (*client.RefundResponse, error)
	GetPaymentTokenDetails(ctx context.Context, tokenID string) (*client.TokenDetailsResponse, error)
	GetTransactionStatus(ctx context.Context, transactionID string) (*client.TransactionResponse, error)
}

// Gateway implements payment.Gateway and payment.SubscriptionGateway. It
// holds no mutable state of its own.
type Gateway struct {
	provider string
	tokens   FrontendTokens
	api      ProviderAPI
	router   *routing.Router
	logger   zerolog.Logger
	metrics  *observability.Metrics
	newID    func() string
}

var (
	_ payment.Gateway             = (*Gateway)(nil)
	_ payment.SubscriptionGateway = (*Gateway)(nil)
)

// New creates a Gateway.
func New(provider string, tokens FrontendTokens, api ProviderAPI, router *routing.Router, logger zerolog.Logger, metrics *observability.Metrics) *Gateway {
	if provider == "" {
		provider = DefaultProviderName
	}
	if metrics == nil {
		metrics = observability.NewTestMetrics()
	}
	return &Gateway{
		provider: provider,
		tokens:   tokens,
		api:      api,
		router:   router,
		logger:   logger.With().Str("component", "gateway").Str("provider", provider).Logger(),
		metrics:  metrics,
		newID:    uuid.NewString,
	}
}

// Provider returns the name results are tagged with.
func (g *Gateway) Provider() string {
	return g.provider
}

func (g *Gateway) begin(ctx context.Context, op string) (context.Context, zerolog.Logger) {
	ctx, corrID := observability.EnsureCorrelationID(ctx)
	return ctx, g.logger.With().Str("correlation_id", corrID).Str("operation", op).Logger()
}

// CreatePaymentToken vaults a card, preferring 3-D Secure.
func (g *Gateway) CreatePaymentToken(ctx context.Context, req payment.TokenizeRequest) (*payment.PaymentToken, error) {
	ctx, log := g.begin(ctx, "create_payment_token")

	if strings.TrimSpace(req.Card.Number) == "" {
		return nil, domainErrors.NewValidationError("card.number", "cannot be empty")
	}

	sub, err := g.router.VaultingSubaccount()
	if err != nil {
		return nil, err
	}
	bearer, err := g.tokens.FrontendToken(ctx)
	if err != nil {
		return nil, err
	}

	outcome := g.vault(ctx, bearer, client.TokenizeParams{
		Subaccount: sub,
		Card:       req.Card,
		Customer:   req.Customer,
	}, log)
	g.metrics.VaultingOutcomes.WithLabelValues(outcome.state.String()).Inc()

	switch outcome.state {
	case vaultedThreeDS, vaultedWithoutAuth:
		is3DS := outcome.state == vaultedThreeDS
		log.Info().
			Str("payment_token", redact.Last4(outcome.token.ID)).
			Bool("three_ds", is3DS).
			Msg("Card vaulted")
		return &payment.PaymentToken{
			Provider: g.provider,
			ID:       outcome.token.ID,
			Is3DS:    is3DS,
			Raw:      outcome.token.Raw,
		}, nil
	default:
		log.Error().Err(outcome.err).Str("outcome", outcome.state.String()).Msg("Card vaulting failed")
		return nil, outcome.err
	}
}

// GetPaymentTokenDetails looks up a vaulted card.
func (g *Gateway) GetPaymentTokenDetails(ctx context.Context, tokenID string) (*payment.TokenDetails, error) {
	ctx, _ = g.begin(ctx, "get_payment_token_details")

	if strings.TrimSpace(tokenID) == "" {
		return nil, domainErrors.NewValidationError("payment_token_id", "cannot be empty")
	}

	d, err := g.api.GetPaymentTokenDetails(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return &payment.TokenDetails{
		Provider: g.provider,
		ID:       d.ID,
		Is3DS:    d.ThreeDSecure,
		CardType: d.CardType,
		Last4:    d.Last4,
		ExpMonth: d.ExpMonth,
		ExpYear:  d.ExpYear,
		Raw:      d.Raw,
	}, nil
}

// CreateIntent opens a local intent. The provider has no intent object, so
// nothing is sent until the intent is confirmed.
func (g *Gateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.PaymentResult, error) {
	_, log := g.begin(ctx, "create_intent")

	if err := validateCharge(req.PaymentTokenID, req.Amount); err != nil {
		return nil, err
	}

	id := "intent_" + g.newID()
	log.Info().Str("intent_id", id).Str("amount", req.Amount.String()).Msg("Intent created")
	return payment.NewPaymentResult(g.provider, id, payment.StatusPending, req.Amount, localRaw(map[string]any{
		"intentId": id,
		"status":   payment.StatusPending,
	})), nil
}

// ConfirmIntent charges the vaulted card against the sub-account picked
// from the request metadata.
func (g *Gateway) ConfirmIntent(ctx context.Context, req payment.ChargeRequest) (*payment.PaymentResult, error) {
	ctx, log := g.begin(ctx, "confirm_intent")

	if err := validateCharge(req.PaymentTokenID, req.Amount); err != nil {
		return nil, err
	}

	paymentType, isRecurring, creatorID := req.Classification()
	tier := routing.ChargeTier(paymentType, isRecurring, creatorID)
	sub, err := g.router.ChargeSubaccount(paymentType, isRecurring, creatorID)
	if err != nil {
		return nil, err
	}

	txn, err := g.api.ChargePaymentToken(ctx, client.ChargeParams{
		PaymentTokenID: req.PaymentTokenID,
		Subaccount:     sub,
		Amount:         req.Amount,
	})
	if err != nil {
		g.metrics.ChargesTotal.WithLabelValues(string(tier), "error").Inc()
		return nil, err
	}

	status := transactionStatus(txn)
	g.metrics.ChargesTotal.WithLabelValues(string(tier), string(status)).Inc()
	log.Info().
		Str("intent_id", req.IntentID).
		Str("transaction_id", txn.ID).
		Str("payment_token", redact.Last4(req.PaymentTokenID)).
		Str("tier", string(tier)).
		Str("status", string(status)).
		Msg("Charge completed")

	return payment.NewPaymentResult(g.provider, txn.ID, status, txn.Amount, txn.Raw), nil
}

// CancelIntent cancels a local intent. Nothing was charged, so nothing is
// sent to the provider.
func (g *Gateway) CancelIntent(ctx context.Context, intentID string) (*payment.PaymentResult, error) {
	_, log := g.begin(ctx, "cancel_intent")

	if strings.TrimSpace(intentID) == "" {
		return nil, domainErrors.NewValidationError("intent_id", "cannot be empty")
	}

	log.Info().Str("intent_id", intentID).Msg("Intent cancelled")
	return payment.NewPaymentResult(g.provider, intentID, payment.StatusCancelled, payment.Amount{}, localRaw(map[string]any{
		"intentId": intentID,
		"status":   payment.StatusCancelled,
	})), nil
}

// CapturePayment reports a transaction's current state. Charges settle
// immediately at the provider, so there is no separate capture call.
func (g *Gateway) CapturePayment(ctx context.Context, transactionID string) (*payment.PaymentResult, error) {
	ctx, _ = g.begin(ctx, "capture_payment")

	if strings.TrimSpace(transactionID) == "" {
		return nil, domainErrors.NewValidationError("transaction_id", "cannot be empty")
	}

	txn, err := g.api.GetTransactionStatus(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return payment.NewPaymentResult(g.provider, txn.ID, transactionStatus(txn), txn.Amount, txn.Raw), nil
}

// RefundPayment refunds all or part of a transaction.
func (g *Gateway) RefundPayment(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	ctx, log := g.begin(ctx, "refund_payment")

	if strings.TrimSpace(req.TransactionID) == "" {
		return nil, domainErrors.NewValidationError("transaction_id", "cannot be empty")
	}
	if err := req.Amount.Validate(); err != nil {
		return nil, err
	}

	ref, err := g.api.RefundPayment(ctx, client.RefundParams{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Reason:        req.Reason,
	})
	if err != nil {
		return nil, err
	}

	status := refundStatus(ref.Status)
	g.metrics.RefundsTotal.WithLabelValues(string(status)).Inc()
	log.Info().
		Str("transaction_id", ref.TransactionID).
		Str("refund_id", ref.ID).
		Str("status", string(status)).
		Msg("Refund submitted")

	return payment.NewRefundResult(g.provider, ref.ID, ref.TransactionID, status, ref.Amount, ref.Raw), nil
}

func validateCharge(tokenID string, amount payment.Amount) error {
	if strings.TrimSpace(tokenID) == "" {
		return domainErrors.NewValidationError("payment_token_id", "cannot be empty")
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	_, err := client.NumericCurrencyCode(amount.Currency)
	return err
}

func localRaw(doc map[string]any) json.RawMessage {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return raw
}
