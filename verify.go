package oidcx

import (
	"fmt"
	"slices"
	"time"
)

// VerifyOption adjusts a single Verify call.
type VerifyOption func(*verifyParams)

type verifyParams struct {
	nonce string
	skew  time.Duration
	now   func() time.Time
}

// WithNonce supplies the nonce the caller sent with the authentication
// request. A token carrying a nonce claim fails verification unless the
// identical value is supplied here.
func WithNonce(nonce string) VerifyOption {
	return func(p *verifyParams) {
		p.nonce = nonce
	}
}

// WithAcceptableSkew tolerates the given clock skew when checking expiry.
func WithAcceptableSkew(skew time.Duration) VerifyOption {
	return func(p *verifyParams) {
		if skew > 0 {
			p.skew = skew
		}
	}
}

// WithClock overrides the time source used for the expiry gate.
func WithClock(now func() time.Time) VerifyOption {
	return func(p *verifyParams) {
		if now != nil {
			p.now = now
		}
	}
}

// Verify checks the token's claims against the caller's expectations. It
// runs four gates in order, stopping at the first failure: expiry, issuer,
// audience, nonce. A nil return means every gate passed.
//
// Verify trusts the claims it was given; it does not check the signature.
// Decode the token first, then Verify it.
func (t *IDToken) Verify(issuer, audience string, opts ...VerifyOption) error {
	params := verifyParams{now: time.Now}
	for _, opt := range opts {
		opt(&params)
	}

	if err := t.checkRequired(); err != nil {
		return err
	}

	if !params.now().Before(t.Expiration.Add(params.skew)) {
		return newError(ErrCodeExpired, fmt.Errorf("token expired at %s", t.Expiration.Format(time.RFC3339)))
	}
	if issuer == "" || issuer != t.Issuer {
		return newError(ErrCodeInvalidIssuer, fmt.Errorf("expected issuer %q, token has %q", issuer, t.Issuer))
	}
	if audience == "" || !slices.Contains(t.Audience, audience) {
		return newError(ErrCodeInvalidAudience, fmt.Errorf("expected audience %q, token has %v", audience, t.Audience))
	}
	if t.Nonce != params.nonce {
		return newError(ErrCodeInvalidNonce, fmt.Errorf("nonce mismatch"))
	}
	return nil
}
