package gateway

import (
	"strings"

	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/client"
)

// paymentStatus maps provider vocabulary onto the closed payment status set.
// Unknown values are reported as pending, never as captured.
func paymentStatus(raw string) payment.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeeded", "completed", "approved":
		return payment.StatusCaptured
	case "pending", "processing":
		return payment.StatusPending
	case "failed", "declined", "rejected":
		return payment.StatusFailed
	case "refunded":
		return payment.StatusRefunded
	case "cancelled", "canceled":
		return payment.StatusCancelled
	default:
		return payment.StatusPending
	}
}

// transactionStatus falls back to the approval flag when the provider
// omits a status.
func transactionStatus(txn *client.TransactionResponse) payment.PaymentStatus {
	if strings.TrimSpace(txn.Status) == "" && txn.Approved != nil {
		if *txn.Approved {
			return payment.StatusCaptured
		}
		return payment.StatusFailed
	}
	return paymentStatus(txn.Status)
}

func refundStatus(raw string) payment.RefundStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeeded", "completed", "approved", "refunded":
		return payment.RefundSucceeded
	case "pending":
		return payment.RefundPending
	case "processing":
		return payment.RefundProcessing
	case "failed", "declined", "rejected":
		return payment.RefundFailed
	default:
		return payment.RefundPending
	}
}
