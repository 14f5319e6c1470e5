// Package routing picks the merchant sub-account a tokenization or charge is
// booked against.
package routing

import (
	"fmt"
	"strings"

	"github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/config"
)

// Tier names a risk bucket.
type Tier string

const (
	LowRiskNonRecurring  Tier = "low_risk_non_recurring"
	HighRiskNonRecurring Tier = "high_risk_non_recurring"
)

// Subaccount identifies a merchant account and sub-account at the provider.
type Subaccount struct {
	AccountNumber    string
	SubAccountNumber string
}

func (s Subaccount) empty() bool {
	return strings.TrimSpace(s.AccountNumber) == "" || strings.TrimSpace(s.SubAccountNumber) == ""
}

func (s Subaccount) String() string {
	return s.AccountNumber + "/" + s.SubAccountNumber
}

// Router resolves sub-accounts from a fixed bucket table. It holds no
// mutable state and is safe for concurrent use.
type Router struct {
	buckets map[Tier]Subaccount
}

// NewRouter copies buckets so later changes to the map do not leak in.
func NewRouter(buckets map[Tier]Subaccount) *Router {
	b := make(map[Tier]Subaccount, len(buckets))
	for k, v := range buckets {
		b[k] = v
	}
	return &Router{buckets: b}
}

// NewRouterFromConfig builds a Router from the gateway sub-account settings.
func NewRouterFromConfig(cfg config.SubaccountsConfig) *Router {
	return NewRouter(map[Tier]Subaccount{
		LowRiskNonRecurring: {
			AccountNumber:    cfg.LowRiskNonRecurring.AccountNumber,
			SubAccountNumber: cfg.LowRiskNonRecurring.SubAccountNumber,
		},
		HighRiskNonRecurring: {
			AccountNumber:    cfg.HighRiskNonRecurring.AccountNumber,
			SubAccountNumber: cfg.HighRiskNonRecurring.SubAccountNumber,
		},
	})
}

// VaultingSubaccount is the bucket card tokenization runs against.
func (r *Router) VaultingSubaccount() (Subaccount, error) {
	return r.resolve(LowRiskNonRecurring)
}

// ChargeSubaccount picks the bucket for a charge.
func (r *Router) ChargeSubaccount(paymentType payment.Type, isRecurring bool, creatorID string) (Subaccount, error) {
	return r.resolve(ChargeTier(paymentType, isRecurring, creatorID))
}

// ChargeTier is the pure decision behind ChargeSubaccount.
func ChargeTier(paymentType payment.Type, isRecurring bool, creatorID string) Tier {
	switch {
	case paymentType == payment.OneTime:
		// Placeholder: one-time payments are not yet risk-scored and all
		// land in the low-risk bucket.
		return LowRiskNonRecurring
	case paymentType == payment.Recurring && isRecurring && creatorID == "":
		return LowRiskNonRecurring
	case paymentType == payment.Recurring && isRecurring:
		return HighRiskNonRecurring
	default:
		return HighRiskNonRecurring
	}
}

func (r *Router) resolve(tier Tier) (Subaccount, error) {
	sub, ok := r.buckets[tier]
	if !ok || sub.empty() {
		return Subaccount{}, errors.NewConfigurationError(
			"gateway.subaccounts."+string(tier),
			fmt.Sprintf("sub-account for tier %s is not configured", tier),
			errors.ErrMissingSubaccount,
		)
	}
	return sub, nil
}
