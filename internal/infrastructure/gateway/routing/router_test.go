package routing

import (
	"errors"
	"testing"

	domainErrors "github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	low  = Subaccount{AccountNumber: "951000", SubAccountNumber: "0001"}
	high = Subaccount{AccountNumber: "951000", SubAccountNumber: "0002"}
)

func fullRouter() *Router {
	return NewRouter(map[Tier]Subaccount{
		LowRiskNonRecurring:  low,
		HighRiskNonRecurring: high,
	})
}

func TestRouter_ChargeSubaccount(t *testing.T) {
	tests := []struct {
		name        string
		paymentType payment.Type
		isRecurring bool
		creatorID   string
		want        Subaccount
	}{
		{"one-time", payment.OneTime, false, "", low},
		{"one-time with creator", payment.OneTime, false, "creator-1", low},
		{"recurring platform subscription", payment.Recurring, true, "", low},
		{"recurring creator subscription", payment.Recurring, true, "creator-1", high},
		{"recurring type without flag", payment.Recurring, false, "", high},
		{"unknown type", payment.Type("donation"), true, "", high},
		{"empty type", "", false, "", high},
	}

	r := fullRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ChargeSubaccount(tt.paymentType, tt.isRecurring, tt.creatorID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouter_VaultingSubaccount(t *testing.T) {
	got, err := fullRouter().VaultingSubaccount()
	require.NoError(t, err)
	assert.Equal(t, low, got)
}

func TestRouter_MissingBucketNeverFallsBack(t *testing.T) {
	r := NewRouter(map[Tier]Subaccount{LowRiskNonRecurring: low})

	_, err := r.ChargeSubaccount(payment.Recurring, true, "creator-1")
	require.Error(t, err)

	var cfgErr *domainErrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "gateway.subaccounts.high_risk_non_recurring", cfgErr.Key)
	assert.ErrorIs(t, err, domainErrors.ErrMissingSubaccount)
}

func TestRouter_EmptyBucketIsMissing(t *testing.T) {
	r := NewRouter(map[Tier]Subaccount{
		LowRiskNonRecurring:  {AccountNumber: "951000", SubAccountNumber: " "},
		HighRiskNonRecurring: high,
	})

	_, err := r.VaultingSubaccount()
	assert.ErrorIs(t, err, domainErrors.ErrMissingSubaccount)
}

func TestRouter_CopiesBuckets(t *testing.T) {
	buckets := map[Tier]Subaccount{LowRiskNonRecurring: low, HighRiskNonRecurring: high}
	r := NewRouter(buckets)
	delete(buckets, LowRiskNonRecurring)

	got, err := r.VaultingSubaccount()
	require.NoError(t, err)
	assert.Equal(t, low, got)
}

func TestNewRouterFromConfig(t *testing.T) {
	r := NewRouterFromConfig(config.SubaccountsConfig{
		LowRiskNonRecurring:  config.SubaccountConfig{AccountNumber: "951000", SubAccountNumber: "0001"},
		HighRiskNonRecurring: config.SubaccountConfig{AccountNumber: "951000", SubAccountNumber: "0002"},
	})

	got, err := r.ChargeSubaccount(payment.Recurring, true, "creator-9")
	require.NoError(t, err)
	assert.Equal(t, "951000/0002", got.String())
}
