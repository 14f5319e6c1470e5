package gateway

import (
	"context"
	"strings"

	domainErrors "github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/pkg/redact"
)

// The provider keeps no recurrence state. Subscriptions are references the
// caller stores; each renewal is a ConfirmIntent with the stored token.

// CreateSubscription checks that the payment token exists and mints a
// subscription reference.
func (g *Gateway) CreateSubscription(ctx context.Context, req payment.SubscriptionRequest) (*payment.SubscriptionResult, error) {
	ctx, log := g.begin(ctx, "create_subscription")

	if strings.TrimSpace(req.Plan) == "" {
		return nil, domainErrors.NewValidationError("plan", "cannot be empty")
	}
	if err := validateCharge(req.PaymentTokenID, req.Amount); err != nil {
		return nil, err
	}
	if _, err := g.api.GetPaymentTokenDetails(ctx, req.PaymentTokenID); err != nil {
		return nil, err
	}

	id := "sub_" + g.newID()
	log.Info().
		Str("subscription_id", id).
		Str("plan", req.Plan).
		Str("payment_token", redact.Last4(req.PaymentTokenID)).
		Msg("Subscription created")

	return g.subscriptionResult(id, payment.SubscriptionActive, req.Plan, req.PaymentTokenID, req.Amount), nil
}

// SwapSubscription moves a subscription to another plan.
func (g *Gateway) SwapSubscription(ctx context.Context, subscriptionID, plan string) (*payment.SubscriptionResult, error) {
	_, log := g.begin(ctx, "swap_subscription")

	if err := validateSubscriptionID(subscriptionID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(plan) == "" {
		return nil, domainErrors.NewValidationError("plan", "cannot be empty")
	}

	log.Info().Str("subscription_id", subscriptionID).Str("plan", plan).Msg("Subscription plan swapped")
	return g.subscriptionResult(subscriptionID, payment.SubscriptionActive, plan, "", payment.Amount{}), nil
}

// CancelSubscription marks a subscription cancelled.
func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string) (*payment.SubscriptionResult, error) {
	_, log := g.begin(ctx, "cancel_subscription")

	if err := validateSubscriptionID(subscriptionID); err != nil {
		return nil, err
	}

	log.Info().Str("subscription_id", subscriptionID).Msg("Subscription cancelled")
	return g.subscriptionResult(subscriptionID, payment.SubscriptionCancelled, "", "", payment.Amount{}), nil
}

// ResumeSubscription reactivates a cancelled subscription.
func (g *Gateway) ResumeSubscription(ctx context.Context, subscriptionID string) (*payment.SubscriptionResult, error) {
	_, log := g.begin(ctx, "resume_subscription")

	if err := validateSubscriptionID(subscriptionID); err != nil {
		return nil, err
	}

	log.Info().Str("subscription_id", subscriptionID).Msg("Subscription resumed")
	return g.subscriptionResult(subscriptionID, payment.SubscriptionActive, "", "", payment.Amount{}), nil
}

func (g *Gateway) subscriptionResult(id string, status payment.SubscriptionStatus, plan, tokenID string, amount payment.Amount) *payment.SubscriptionResult {
	return &payment.SubscriptionResult{
		Provider:       g.provider,
		ProviderID:     id,
		Status:         status,
		Plan:           plan,
		PaymentTokenID: tokenID,
		Amount:         amount,
		Raw: localRaw(map[string]any{
			"subscriptionId": id,
			"status":         status,
			"plan":           plan,
		}),
	}
}

func validateSubscriptionID(id string) error {
	if !strings.HasPrefix(id, "sub_") || len(id) <= len("sub_") {
		return domainErrors.NewValidationError("subscription_id", "must be a subscription reference")
	}
	return nil
}
