package controller

import (
	"context"
	"net/http"

	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
	"github.com/go-chi/chi/v5"
)

// WidgetTokens issues frontend tokens for the card widget.
type WidgetTokens interface {
	FrontendToken(ctx context.Context) (oauth.BearerToken, error)
}

// PaymentController handles card and payment HTTP requests.
type PaymentController struct {
	gateway payment.Gateway
	tokens  WidgetTokens
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(gateway payment.Gateway, tokens WidgetTokens) *PaymentController {
	return &PaymentController{gateway: gateway, tokens: tokens}
}

// IssueWidgetToken handles POST /api/v1/widget-tokens
func (h *PaymentController) IssueWidgetToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.tokens.FrontendToken(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromBearerToken(tok))
}

// CreatePaymentToken handles POST /api/v1/payment-tokens
func (h *PaymentController) CreatePaymentToken(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentTokenRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tok, err := h.gateway.CreatePaymentToken(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromPaymentToken(tok))
}

// GetPaymentToken handles GET /api/v1/payment-tokens/{id}
func (h *PaymentController) GetPaymentToken(w http.ResponseWriter, r *http.Request) {
	d, err := h.gateway.GetPaymentTokenDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromTokenDetails(d))
}

// CreateCharge handles POST /api/v1/charges
func (h *PaymentController) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var req CreateChargeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount := amountOf(req.Amount, req.Currency)

	intentID := req.IntentID
	if intentID == "" {
		intent, err := h.gateway.CreateIntent(r.Context(), payment.IntentRequest{
			PaymentTokenID: req.PaymentTokenID,
			Amount:         amount,
			Metadata:       req.Metadata,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		intentID = intent.ProviderID
	}

	res, err := h.gateway.ConfirmIntent(r.Context(), payment.ChargeRequest{
		IntentID:       intentID,
		PaymentTokenID: req.PaymentTokenID,
		Amount:         amount,
		Metadata:       req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Status == payment.StatusFailed {
		status = http.StatusPaymentRequired
	}
	writeJSON(w, status, FromPaymentResult(res))
}

// CancelIntent handles POST /api/v1/intents/{id}/cancel
func (h *PaymentController) CancelIntent(w http.ResponseWriter, r *http.Request) {
	res, err := h.gateway.CancelIntent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromPaymentResult(res))
}

// GetTransaction handles GET /api/v1/transactions/{id}
func (h *PaymentController) GetTransaction(w http.ResponseWriter, r *http.Request) {
	res, err := h.gateway.CapturePayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromPaymentResult(res))
}

// CreateRefund handles POST /api/v1/refunds
func (h *PaymentController) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req CreateRefundRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.gateway.RefundPayment(r.Context(), payment.RefundRequest{
		TransactionID: req.TransactionID,
		Amount:        amountOf(req.Amount, req.Currency),
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromRefundResult(res))
}
