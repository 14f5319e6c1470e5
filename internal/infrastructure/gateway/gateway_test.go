package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/config"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/client"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/routing"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/observability"
	"github.com/cassiomorais/cardgateway/internal/testutil"
	"github.com/cassiomorais/cardgateway/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	threeDSPath      = "/payment-tokens/threeds-required"
	merchantOnlyPath = "/payment-tokens/merchant-only"
)

func newTestGateway(t *testing.T, subs config.SubaccountsConfig) (*Gateway, *testutil.FakeProvider) {
	t.Helper()
	fp := testutil.NewFakeProvider(t)
	logger := zerolog.Nop()
	metrics := observability.NewTestMetrics()

	tokens := oauth.NewManager(oauth.Config{
		TokenURL: fp.TokenURL(),
		Backend:  oauth.Credentials{AppID: "backend-app", Secret: "backend-secret"},
		Frontend: oauth.Credentials{AppID: "frontend-app", Secret: "frontend-secret"},
		Retry:    retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond},
	}, nil, logger, metrics)

	cfg := client.DefaultConfig(fp.URL)
	cfg.Retry.InitialDelay = time.Millisecond
	api := client.New(cfg, tokens, logger, metrics)

	gw := New("", tokens, api, routing.NewRouterFromConfig(subs), logger, metrics)
	gw.newID = func() string { return "fixed" }
	return gw, fp
}

func usd(minor int64) payment.Amount {
	return payment.Amount{Minor: minor, Currency: "USD"}
}

func TestGateway_CreatePaymentToken_ThreeDS(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	fp.On(http.MethodPost, threeDSPath, testutil.OK(`{"paymentTokenId":"tok_3ds_0042","threeDSecure":true}`))

	tok, err := gw.CreatePaymentToken(context.Background(), testutil.NewTestTokenizeRequest())
	require.NoError(t, err)

	assert.Equal(t, "ccbill", tok.Provider)
	assert.Equal(t, "tok_3ds_0042", tok.ID)
	assert.True(t, tok.Is3DS)
	assert.Equal(t, 0, fp.Count(http.MethodPost, merchantOnlyPath))

	reqs := fp.Requests(http.MethodPost, threeDSPath)
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer frontend-app-token-1", reqs[0].Header.Get("Authorization"))
	assert.Equal(t, 1, fp.Exchanges("frontend-app"))
	assert.Equal(t, 0, fp.Exchanges("backend-app"))
}

func TestGateway_CreatePaymentToken_UsesLowRiskSubaccount(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	fp.On(http.MethodPost, threeDSPath, testutil.OK(`{"paymentTokenId":"tok_1","threeDSecure":true}`))

	_, err := gw.CreatePaymentToken(context.Background(), testutil.NewTestTokenizeRequest())
	require.NoError(t, err)

	body := fp.Requests(http.MethodPost, threeDSPath)[0].JSON()
	assert.Equal(t, testutil.LowRiskAccount, body["clientAccnum"])
	assert.Equal(t, testutil.LowRiskSubaccount, body["clientSubacc"])
}

func TestGateway_CreatePaymentToken_FallsBackWhenThreeDSNotSupported(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	fp.On(http.MethodPost, threeDSPath, testutil.ProviderError(http.StatusBadRequest, "THREEDS_NOT_SUPPORTED", "issuer does not support 3DS"))
	fp.On(http.MethodPost, merchantOnlyPath, testutil.OK(`{"paymentTokenId":"tok_plain_7777","threeDSecure":false}`))

	tok, err := gw.CreatePaymentToken(context.Background(), testutil.NewTestTokenizeRequest())
	require.NoError(t, err)

	assert.Equal(t, "tok_plain_7777", tok.ID)
	assert.False(t, tok.Is3DS)

	first := fp.Requests(http.MethodPost, threeDSPath)
	second := fp.Requests(http.MethodPost, merchantOnlyPath)
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	// Same bearer and same payload on both legs.
	assert.Equal(t, first[0].Header.Get("Authorization"), second[0].Header.Get("Authorization"))
	assert.JSONEq(t, string(first[0].Body), string(second[0].Body))
	assert.Equal(t, 1, fp.Exchanges("frontend-app"))
}

func TestGateway_CreatePaymentToken_AuthenticationFailedIsFinal(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	fp.On(http.MethodPost, threeDSPath, testutil.ProviderError(http.StatusBadRequest, "threeds_authentication_failed", "cardholder failed challenge"))

	tok, err := gw.CreatePaymentToken(context.Background(), testutil.NewTestTokenizeRequest())
	require.Error(t, err)
	assert.Nil(t, tok)

	assert.ErrorIs(t, err, domainErrors.ErrVaultingRejected)
	assert.ErrorIs(t, err, domainErrors.ErrThreeDSAuthenticationFailed)
	var vaultErr *domainErrors.VaultingError
	require.ErrorAs(t, err, &vaultErr)
	assert.Equal(t, "threeds_authentication_failed", vaultErr.Code)
	assert.Contains(t, string(vaultErr.Payload), "cardholder failed challenge")

	assert.Equal(t, 1, fp.Count(http.MethodPost, threeDSPath))
	assert.Equal(t, 0, fp.Count(http.MethodPost, merchantOnlyPath))
}

func TestGateway_CreatePaymentToken_FallbackFailure(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	fp.On(http.MethodPost, threeDSPath, testutil.ProviderError(http.StatusBadRequest, "THREEDS_NOT_SUPPORTED", "no 3DS"))
	fp.On(http.MethodPost, merchantOnlyPath, testutil.ProviderError(http.StatusUnprocessableEntity, "422", "card declined"))

	_, err := gw.CreatePaymentToken(context.Background(), testutil.NewTestTokenizeRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrTokenizationFailed)
	assert.ErrorIs(t, err, domainErrors.ErrProviderRejected)
	assert.Equal(t, 1, fp.Count(http.MethodPost, merchantOnlyPath))
}

func TestGateway_CreatePaymentToken_MissingVaultingSubaccount(t *testing.T) {
	gw, fp := newTestGateway(t, config.SubaccountsConfig{})

	_, err := gw.CreatePaymentToken(context.Background(), testutil.NewTestTokenizeRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrMissingSubaccount)
	assert.Equal(t, 0, fp.APICalls())
	assert.Equal(t, 0, fp.Exchanges("frontend-app"))
}

func TestGateway_CreatePaymentToken_RequiresCardNumber(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	req := testutil.NewTestTokenizeRequest()
	req.Card.Number = " "

	_, err := gw.CreatePaymentToken(context.Background(), req)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidInput)
	assert.Equal(t, 0, fp.APICalls())
}

func TestGateway_ConfirmIntent_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		body string
		want payment.PaymentStatus
	}{
		{"approved", `{"transactionId":"txn_1","status":"approved","approved":true,"amount":"10.00","currencyCode":840}`, payment.StatusCaptured},
		{"declined", `{"transactionId":"txn_1","status":"declined","approved":false}`, payment.StatusFailed},
		{"unknown status", `{"transactionId":"txn_1","status":"under_review"}`, payment.StatusPending},
		{"flag only, approved", `{"transactionId":"txn_1","approved":"1"}`, payment.StatusCaptured},
		{"flag only, declined", `{"transactionId":"txn_1","approved":false}`, payment.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
			fp.On(http.MethodPost, "/transactions/payment-tokens/tok_1", testutil.OK(tt.body))

			res, err := gw.ConfirmIntent(context.Background(), payment.ChargeRequest{
				IntentID:       "intent_1",
				PaymentTokenID: "tok_1",
				Amount:         usd(1000),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, "txn_1", res.ProviderID)
			assert.Equal(t, usd(1000), res.Amount)
			assert.JSONEq(t, tt.body, string(res.Raw))
		})
	}
}

func TestGateway_ConfirmIntent_RoutesBySubaccountTier(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
		wantSub  string
	}{
		{"no metadata", nil, testutil.LowRiskSubaccount},
		{"one-time", map[string]string{payment.MetaPaymentType: "one_time"}, testutil.LowRiskSubaccount},
		{
			name: "creator subscription",
			metadata: map[string]string{
				payment.MetaPaymentType: "recurring",
				payment.MetaIsRecurring: "true",
				payment.MetaCreatorID:   "creator-9",
			},
			wantSub: testutil.HighRiskSubaccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
			path := "/transactions/payment-tokens/tok_1"
			fp.On(http.MethodPost, path, testutil.OK(`{"transactionId":"txn_1","status":"approved"}`))

			_, err := gw.ConfirmIntent(context.Background(), payment.ChargeRequest{
				PaymentTokenID: "tok_1",
				Amount:         usd(1999),
				Metadata:       tt.metadata,
			})
			require.NoError(t, err)

			reqs := fp.Requests(http.MethodPost, path)
			require.Len(t, reqs, 1)
			body := reqs[0].JSON()
			assert.Equal(t, tt.wantSub, body["clientSubacc"])
			assert.Equal(t, 19.99, body["initialPrice"])
			assert.Equal(t, float64(840), body["currencyCode"])
			assert.Equal(t, "Bearer backend-app-token-1", reqs[0].Header.Get("Authorization"))
		})
	}
}

func TestGateway_ConfirmIntent_MissingBucketIsConfigurationError(t *testing.T) {
	subs := testutil.SubaccountsConfig()
	subs.HighRiskNonRecurring = config.SubaccountConfig{}
	gw, fp := newTestGateway(t, subs)

	_, err := gw.ConfirmIntent(context.Background(), payment.ChargeRequest{
		PaymentTokenID: "tok_1",
		Amount:         usd(500),
		Metadata:       map[string]string{payment.MetaPaymentType: "recurring", payment.MetaCreatorID: "creator-1"},
	})
	require.Error(t, err)
	var cfgErr *domainErrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, domainErrors.ErrMissingSubaccount)
	assert.Equal(t, 0, fp.APICalls())
	assert.Equal(t, 0, fp.Exchanges("backend-app"))
}

func TestGateway_UnsupportedCurrencyMakesNoCalls(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	ctx := context.Background()
	chf := payment.Amount{Minor: 1000, Currency: "CHF"}

	_, err := gw.CreateIntent(ctx, payment.IntentRequest{PaymentTokenID: "tok_1", Amount: chf})
	assert.ErrorIs(t, err, domainErrors.ErrUnsupportedCurrency)

	_, err = gw.ConfirmIntent(ctx, payment.ChargeRequest{PaymentTokenID: "tok_1", Amount: chf})
	assert.ErrorIs(t, err, domainErrors.ErrUnsupportedCurrency)

	_, err = gw.RefundPayment(ctx, payment.RefundRequest{TransactionID: "txn_1", Amount: chf})
	assert.ErrorIs(t, err, domainErrors.ErrUnsupportedCurrency)

	assert.Equal(t, 0, fp.APICalls())
	assert.Equal(t, 0, fp.Exchanges("backend-app"))
}

func TestGateway_IntentsAreLocal(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	ctx := context.Background()

	created, err := gw.CreateIntent(ctx, payment.IntentRequest{PaymentTokenID: "tok_1", Amount: usd(700)})
	require.NoError(t, err)
	assert.Equal(t, "intent_fixed", created.ProviderID)
	assert.Equal(t, payment.StatusPending, created.Status)
	assert.Equal(t, usd(700), created.Amount)

	cancelled, err := gw.CancelIntent(ctx, created.ProviderID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCancelled, cancelled.Status)
	assert.Equal(t, "intent_fixed", cancelled.ProviderID)

	_, err = gw.CancelIntent(ctx, "")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidInput)

	assert.Equal(t, 0, fp.APICalls())
}

func TestGateway_CapturePayment(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	fp.On(http.MethodGet, "/transactions/txn_5", testutil.OK(`{"transactionId":"txn_5","status":"refunded","amount":"5.00","currencyCode":978}`))

	res, err := gw.CapturePayment(context.Background(), "txn_5")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, res.Status)
	assert.Equal(t, payment.Amount{Minor: 500, Currency: "EUR"}, res.Amount)
}

func TestGateway_RefundPayment(t *testing.T) {
	tests := []struct {
		status string
		want   payment.RefundStatus
	}{
		{"completed", payment.RefundSucceeded},
		{"processing", payment.RefundProcessing},
		{"rejected", payment.RefundFailed},
		{"", payment.RefundPending},
	}

	for _, tt := range tests {
		t.Run("status "+tt.status, func(t *testing.T) {
			gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
			path := "/transactions/txn_9/refunds"
			fp.On(http.MethodPost, path, testutil.OK(`{"refundId":"rf_1","transactionId":"txn_9","status":"`+tt.status+`","amount":"2.50","currencyCode":840}`))

			res, err := gw.RefundPayment(context.Background(), payment.RefundRequest{
				TransactionID: "txn_9",
				Amount:        usd(250),
				Reason:        "customer request",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, "rf_1", res.ProviderID)
			assert.Equal(t, "txn_9", res.TransactionID)
			assert.Equal(t, usd(250), res.Amount)

			body := fp.Requests(http.MethodPost, path)[0].JSON()
			assert.Equal(t, "customer request", body["reason"])
		})
	}
}

func TestGateway_GetPaymentTokenDetails(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	fp.On(http.MethodGet, "/payment-tokens/tok_1", testutil.OK(`{"paymentTokenId":"tok_1","threeDSecure":true,"cardType":"VISA","lastFour":"1111","expMonth":12,"expYear":2030}`))

	d, err := gw.GetPaymentTokenDetails(context.Background(), "tok_1")
	require.NoError(t, err)
	assert.True(t, d.Is3DS)
	assert.Equal(t, "VISA", d.CardType)
	assert.Equal(t, "1111", d.Last4)
	assert.Equal(t, 2030, d.ExpYear)
}

func TestGateway_Subscriptions(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	fp.On(http.MethodGet, "/payment-tokens/tok_1", testutil.OK(`{"paymentTokenId":"tok_1","threeDSecure":true}`))
	ctx := context.Background()

	sub, err := gw.CreateSubscription(ctx, payment.SubscriptionRequest{
		PaymentTokenID: "tok_1",
		Plan:           "gold",
		Amount:         usd(999),
	})
	require.NoError(t, err)
	assert.Equal(t, "sub_fixed", sub.ProviderID)
	assert.Equal(t, payment.SubscriptionActive, sub.Status)
	assert.Equal(t, "gold", sub.Plan)
	assert.Equal(t, 1, fp.Count(http.MethodGet, "/payment-tokens/tok_1"))

	swapped, err := gw.SwapSubscription(ctx, sub.ProviderID, "platinum")
	require.NoError(t, err)
	assert.Equal(t, "platinum", swapped.Plan)

	cancelled, err := gw.CancelSubscription(ctx, sub.ProviderID)
	require.NoError(t, err)
	assert.Equal(t, payment.SubscriptionCancelled, cancelled.Status)

	resumed, err := gw.ResumeSubscription(ctx, sub.ProviderID)
	require.NoError(t, err)
	assert.Equal(t, payment.SubscriptionActive, resumed.Status)

	_, err = gw.CancelSubscription(ctx, "txn_1")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidInput)
	_, err = gw.SwapSubscription(ctx, sub.ProviderID, "")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidInput)
}

func TestGateway_CreateSubscription_UnknownToken(t *testing.T) {
	gw, fp := newTestGateway(t, testutil.SubaccountsConfig())
	fp.On(http.MethodGet, "/payment-tokens/tok_gone", testutil.ProviderError(http.StatusNotFound, "404", "payment token not found"))

	_, err := gw.CreateSubscription(context.Background(), payment.SubscriptionRequest{
		PaymentTokenID: "tok_gone",
		Plan:           "gold",
		Amount:         usd(999),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrProviderRejected)
	assert.Equal(t, 1, fp.Count(http.MethodGet, "/payment-tokens/tok_gone"))
}

func TestGateway_ProviderName(t *testing.T) {
	gw := New("ccbill-eu", nil, nil, routing.NewRouter(nil), zerolog.Nop(), nil)
	assert.Equal(t, "ccbill-eu", gw.Provider())
	assert.Equal(t, DefaultProviderName, New("", nil, nil, routing.NewRouter(nil), zerolog.Nop(), nil).Provider())
}
