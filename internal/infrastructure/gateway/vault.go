package gateway

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/cardgateway/internal/domain/errors"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/client"
	"github.com/cassiomorais/cardgateway/internal/infrastructure/gateway/oauth"
	"github.com/rs/zerolog"
)

type vaultState int

const (
	vaultFailed vaultState = iota
	vaultedThreeDS
	vaultedWithoutAuth
	vaultRejected
)

func (s vaultState) String() string {
	switch s {
	case vaultedThreeDS:
		return "vaulted_3ds"
	case vaultedWithoutAuth:
		return "vaulted_without_3ds"
	case vaultRejected:
		return "rejected"
	default:
		return "failed"
	}
}

// vaultOutcome is the terminal state of one tokenization. token is set only
// for the two vaulted states.
type vaultOutcome struct {
	state vaultState
	token *client.PaymentTokenResponse
	err   error
}

// vault runs 3-D Secure tokenization and degrades to a non-3DS tokenization
// only when the issuer does not support 3-D Secure. A failed authentication
// is final.
func (g *Gateway) vault(ctx context.Context, bearer oauth.BearerToken, params client.TokenizeParams, log zerolog.Logger) vaultOutcome {
	tok, err := g.api.CreatePaymentToken3DS(ctx, bearer, params)
	switch {
	case err == nil:
		return vaultOutcome{state: vaultedThreeDS, token: tok}

	case errors.Is(err, domainErrors.ErrThreeDSAuthenticationFailed):
		vaultErr := &domainErrors.VaultingError{Err: err}
		var apiErr *domainErrors.APIError
		if errors.As(err, &apiErr) {
			vaultErr.Code = apiErr.Code
			vaultErr.Payload = apiErr.Payload
		}
		log.Warn().Str("code", vaultErr.Code).Msg("3-D Secure authentication failed, card not vaulted")
		return vaultOutcome{state: vaultRejected, err: vaultErr}

	case errors.Is(err, domainErrors.ErrThreeDSNotSupported):
		log.Info().Msg("3-D Secure not supported by issuer, vaulting without authentication")
		tok, err = g.api.CreatePaymentToken(ctx, bearer, params)
		if err != nil {
			if !errors.Is(err, domainErrors.ErrTokenizationFailed) {
				err = fmt.Errorf("%w: %w", domainErrors.ErrTokenizationFailed, err)
			}
			return vaultOutcome{state: vaultFailed, err: err}
		}
		return vaultOutcome{state: vaultedWithoutAuth, token: tok}

	default:
		return vaultOutcome{state: vaultFailed, err: err}
	}
}
