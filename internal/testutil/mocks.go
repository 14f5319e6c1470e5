package testutil

import (
	"context"
	"sync"

	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
)

// --- Gateway Mock ---

// MockGateway is a mock implementation of payment.Gateway and
// payment.SubscriptionGateway. Unset funcs return a plausible success.
type MockGateway struct {
	mu    sync.Mutex
	calls []string

	CreateIntentFunc           func(ctx context.Context, req payment.IntentRequest) (*payment.PaymentResult, error)
	ConfirmIntentFunc          func(ctx context.Context, req payment.ChargeRequest) (*payment.PaymentResult, error)
	CancelIntentFunc           func(ctx context.Context, intentID string) (*payment.PaymentResult, error)
	CapturePaymentFunc         func(ctx context.Context, transactionID string) (*payment.PaymentResult, error)
	RefundPaymentFunc          func(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error)
	CreatePaymentTokenFunc     func(ctx context.Context, req payment.TokenizeRequest) (*payment.PaymentToken, error)
	GetPaymentTokenDetailsFunc func(ctx context.Context, tokenID string) (*payment.TokenDetails, error)
	CreateSubscriptionFunc     func(ctx context.Context, req payment.SubscriptionRequest) (*payment.SubscriptionResult, error)
	SwapSubscriptionFunc       func(ctx context.Context, subscriptionID, plan string) (*payment.SubscriptionResult, error)
	CancelSubscriptionFunc     func(ctx context.Context, subscriptionID string) (*payment.SubscriptionResult, error)
	ResumeSubscriptionFunc     func(ctx context.Context, subscriptionID string) (*payment.SubscriptionResult, error)
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Calls lists invoked method names in order.
func (m *MockGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockGateway) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *MockGateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.PaymentResult, error) {
	m.record("CreateIntent")
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, req)
	}
	return payment.NewPaymentResult("mock", "intent_mock", payment.StatusPending, req.Amount, nil), nil
}

func (m *MockGateway) ConfirmIntent(ctx context.Context, req payment.ChargeRequest) (*payment.PaymentResult, error) {
	m.record("ConfirmIntent")
	if m.ConfirmIntentFunc != nil {
		return m.ConfirmIntentFunc(ctx, req)
	}
	return payment.NewPaymentResult("mock", "txn_mock", payment.StatusCaptured, req.Amount, nil), nil
}

func (m *MockGateway) CancelIntent(ctx context.Context, intentID string) (*payment.PaymentResult, error) {
	m.record("CancelIntent")
	if m.CancelIntentFunc != nil {
		return m.CancelIntentFunc(ctx, intentID)
	}
	return payment.NewPaymentResult("mock", intentID, payment.StatusCancelled, payment.Amount{}, nil), nil
}

func (m *MockGateway) CapturePayment(ctx context.Context, transactionID string) (*payment.PaymentResult, error) {
	m.record("CapturePayment")
	if m.CapturePaymentFunc != nil {
		return m.CapturePaymentFunc(ctx, transactionID)
	}
	return payment.NewPaymentResult("mock", transactionID, payment.StatusCaptured, payment.Amount{}, nil), nil
}

func (m *MockGateway) RefundPayment(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	m.record("RefundPayment")
	if m.RefundPaymentFunc != nil {
		return m.RefundPaymentFunc(ctx, req)
	}
	return payment.NewRefundResult("mock", "rf_mock", req.TransactionID, payment.RefundSucceeded, req.Amount, nil), nil
}

func (m *MockGateway) CreatePaymentToken(ctx context.Context, req payment.TokenizeRequest) (*payment.PaymentToken, error) {
	m.record("CreatePaymentToken")
	if m.CreatePaymentTokenFunc != nil {
		return m.CreatePaymentTokenFunc(ctx, req)
	}
	return &payment.PaymentToken{Provider: "mock", ID: "tok_mock", Is3DS: true}, nil
}

func (m *MockGateway) GetPaymentTokenDetails(ctx context.Context, tokenID string) (*payment.TokenDetails, error) {
	m.record("GetPaymentTokenDetails")
	if m.GetPaymentTokenDetailsFunc != nil {
		return m.GetPaymentTokenDetailsFunc(ctx, tokenID)
	}
	return &payment.TokenDetails{Provider: "mock", ID: tokenID, CardType: "VISA", Last4: "1111"}, nil
}

func (m *MockGateway) CreateSubscription(ctx context.Context, req payment.SubscriptionRequest) (*payment.SubscriptionResult, error) {
	m.record("CreateSubscription")
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, req)
	}
	return &payment.SubscriptionResult{Provider: "mock", ProviderID: "sub_mock", Status: payment.SubscriptionActive, Plan: req.Plan}, nil
}

func (m *MockGateway) SwapSubscription(ctx context.Context, subscriptionID, plan string) (*payment.SubscriptionResult, error) {
	m.record("SwapSubscription")
	if m.SwapSubscriptionFunc != nil {
		return m.SwapSubscriptionFunc(ctx, subscriptionID, plan)
	}
	return &payment.SubscriptionResult{Provider: "mock", ProviderID: subscriptionID, Status: payment.SubscriptionActive, Plan: plan}, nil
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionID string) (*payment.SubscriptionResult, error) {
	m.record("CancelSubscription")
	if m.CancelSubscriptionFunc != nil {
		return m.CancelSubscriptionFunc(ctx, subscriptionID)
	}
	return &payment.SubscriptionResult{Provider: "mock", ProviderID: subscriptionID, Status: payment.SubscriptionCancelled}, nil
}

func (m *MockGateway) ResumeSubscription(ctx context.Context, subscriptionID string) (*payment.SubscriptionResult, error) {
	m.record("ResumeSubscription")
	if m.ResumeSubscriptionFunc != nil {
		return m.ResumeSubscriptionFunc(ctx, subscriptionID)
	}
	return &payment.SubscriptionResult{Provider: "mock", ProviderID: subscriptionID, Status: payment.SubscriptionActive}, nil
}

// --- Frontend Token Mock ---

// MockFrontendTokens hands out a fixed frontend token.
type MockFrontendTokens struct {
	Token oauth.BearerToken
	Err   error
}

func (m *MockFrontendTokens) FrontendToken(context.Context) (oauth.BearerToken, error) {
	return m.Token, m.Err
}
