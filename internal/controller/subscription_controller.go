package controller

import (
	"net/http"

	"github.com/cassiomorais/cardgateway/internal/domain/payment"
	"github.com/go-chi/chi/v5"
)

// SubscriptionController handles subscription reference requests.
type SubscriptionController struct {
	subscriptions payment.SubscriptionGateway
}

func NewSubscriptionController(subscriptions payment.SubscriptionGateway) *SubscriptionController {
	return &SubscriptionController{subscriptions: subscriptions}
}

// Create handles POST /api/v1/subscriptions
func (h *SubscriptionController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.subscriptions.CreateSubscription(r.Context(), payment.SubscriptionRequest{
		PaymentTokenID: req.PaymentTokenID,
		Plan:           req.Plan,
		Amount:         amountOf(req.Amount, req.Currency),
		Metadata:       req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromSubscriptionResult(res))
}

// Swap handles POST /api/v1/subscriptions/{id}/swap
func (h *SubscriptionController) Swap(w http.ResponseWriter, r *http.Request) {
	var req SwapSubscriptionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.subscriptions.SwapSubscription(r.Context(), chi.URLParam(r, "id"), req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromSubscriptionResult(res))
}

// Cancel handles POST /api/v1/subscriptions/{id}/cancel
func (h *SubscriptionController) Cancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.subscriptions.CancelSubscription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromSubscriptionResult(res))
}

// Resume handles POST /api/v1/subscriptions/{id}/resume
func (h *SubscriptionController) Resume(w http.ResponseWriter, r *http.Request) {
	res, err := h.subscriptions.ResumeSubscription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromSubscriptionResult(res))
}
