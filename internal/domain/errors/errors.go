package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Configuration errors
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrMissingSubaccount   = errors.New("sub-account not configured")
	ErrInvalidConfig       = errors.New("invalid gateway configuration")

	// Token errors
	ErrOAuth = errors.New("oauth token request failed")

	// Provider errors
	ErrProviderRejected    = errors.New("request rejected by provider")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrRetriesExhausted    = errors.New("retries exhausted")

	// 3-D Secure and vaulting errors
	ErrThreeDSNotSupported         = errors.New("3-D Secure not supported by issuer")
	ErrThreeDSAuthenticationFailed = errors.New("3-D Secure authentication failed")
	ErrVaultingRejected            = errors.New("card vaulting rejected")
	ErrTokenizationFailed          = errors.New("card tokenization failed")

	// Validation errors
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidInput  = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ConfigurationError is a deployment defect: a missing sub-account, an
// unsupported currency, an absent credential. It is never retried.
type ConfigurationError struct {
	Key     string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Key, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidConfig
}

// NewConfigurationError creates a configuration error wrapping sentinel.
func NewConfigurationError(key, message string, sentinel error) *ConfigurationError {
	return &ConfigurationError{Key: key, Message: message, Err: sentinel}
}

// OAuthError is returned when the token endpoint does not issue a token.
type OAuthError struct {
	Scope       string
	StatusCode  int
	Code        string
	Description string
	Payload     []byte
	// Structured is set when the provider answered with its own error
	// document; such answers are not transient.
	Structured bool
	Err        error
}

func (e *OAuthError) Error() string {
	msg := fmt.Sprintf("oauth %s token: status=%d code=%s", e.Scope, e.StatusCode, e.Code)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OAuthError) Is(target error) bool {
	return target == ErrOAuth
}

func (e *OAuthError) Unwrap() error {
	return e.Err
}

// APIError is any non-success answer from the provider's REST API.
type APIError struct {
	Operation  string
	StatusCode int
	Code       string
	Message    string
	Payload    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: provider error status=%d code=%s: %s", e.Operation, e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrProviderRejected
}

// IsClientError reports whether the request itself was at fault. Such errors
// produce the same answer on every attempt.
func (e *APIError) IsClientError() bool {
	if strings.HasPrefix(e.Code, "4") {
		return true
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ThreeDSNotSupportedError means the issuer cannot run 3-D Secure for the card.
type ThreeDSNotSupportedError struct {
	*APIError
}

func (e *ThreeDSNotSupportedError) Is(target error) bool {
	return target == ErrThreeDSNotSupported
}

func (e *ThreeDSNotSupportedError) Unwrap() error {
	return e.APIError
}

// ThreeDSAuthenticationFailedError means the cardholder failed 3-D Secure.
type ThreeDSAuthenticationFailedError struct {
	*APIError
}

func (e *ThreeDSAuthenticationFailedError) Is(target error) bool {
	return target == ErrThreeDSAuthenticationFailed
}

func (e *ThreeDSAuthenticationFailedError) Unwrap() error {
	return e.APIError
}

// VaultingError is raised when a card must not be vaulted.
type VaultingError struct {
	Code    string
	Payload []byte
	Err     error
}

func (e *VaultingError) Error() string {
	return fmt.Sprintf("card vaulting rejected (code=%s): %v", e.Code, e.Err)
}

func (e *VaultingError) Is(target error) bool {
	return target == ErrVaultingRejected
}

func (e *VaultingError) Unwrap() error {
	return e.Err
}
