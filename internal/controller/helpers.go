package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: the wrapping errors come before the provider rejection
// they carry.
var errorMappings = []errorMapping{
	{domainErrors.ErrUnsupportedCurrency, http.StatusUnprocessableEntity, "unsupported_currency"},
	{domainErrors.ErrVaultingRejected, http.StatusPaymentRequired, "vaulting_rejected"},
	{domainErrors.ErrTokenizationFailed, http.StatusUnprocessableEntity, "tokenization_failed"},
	{domainErrors.ErrProviderUnavailable, http.StatusServiceUnavailable, "provider_unavailable"},
	{domainErrors.ErrRetriesExhausted, http.StatusBadGateway, "provider_error"},
	{domainErrors.ErrOAuth, http.StatusBadGateway, "provider_auth_failed"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	var vaultErr *domainErrors.VaultingError
	if errors.As(err, &vaultErr) {
		resp.ProviderCode = vaultErr.Code
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	var cfgErr *domainErrors.ConfigurationError
	if errors.As(err, &cfgErr) {
		log.Error().Err(err).Str("key", cfgErr.Key).Msg("gateway misconfigured")
		resp.Code = "configuration_error"
		resp.Error = "payment gateway is misconfigured"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	var apiErr *domainErrors.APIError
	if errors.As(err, &apiErr) {
		resp.ProviderCode = apiErr.Code
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			resp.Code = "not_found"
			writeJSON(w, http.StatusNotFound, resp)
		case apiErr.IsClientError():
			resp.Code = "provider_rejected"
			writeJSON(w, http.StatusUnprocessableEntity, resp)
		default:
			resp.Code = "provider_error"
			writeJSON(w, http.StatusBadGateway, resp)
		}
		return
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
