package payment

import "context"

// Gateway is the payment contract business logic depends on.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*PaymentResult, error)
	ConfirmIntent(ctx context.Context, req ChargeRequest) (*PaymentResult, error)
	CancelIntent(ctx context.Context, intentID string) (*PaymentResult, error)
	CapturePayment(ctx context.Context, transactionID string) (*PaymentResult, error)
	RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error)
	CreatePaymentToken(ctx context.Context, req TokenizeRequest) (*PaymentToken, error)
	GetPaymentTokenDetails(ctx context.Context, tokenID string) (*TokenDetails, error)
}

// SubscriptionGateway manages subscription references. Recurring charges
// are made by the caller through Gateway.ConfirmIntent on its own schedule.
type SubscriptionGateway interface {
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionResult, error)
	SwapSubscription(ctx context.Context, subscriptionID, plan string) (*SubscriptionResult, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*SubscriptionResult, error)
	ResumeSubscription(ctx context.Context, subscriptionID string) (*SubscriptionResult, error)
}
