package oidcx

import (
	"encoding/json"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// SignOption adjusts a single Sign call.
type SignOption func(*signParams)

type signParams struct {
	accessToken string
	code        string
	kid         string
	headers     jws.Headers
}

// WithAccessToken binds the access token issued alongside this ID token: its
// half-digest is stored as the at_hash claim. The credential itself is never
// serialized.
func WithAccessToken(accessToken string) SignOption {
	return func(p *signParams) {
		p.accessToken = accessToken
	}
}

// WithAuthorizationCode binds the authorization code issued alongside this
// ID token as the c_hash claim, in the same way as WithAccessToken.
func WithAuthorizationCode(code string) SignOption {
	return func(p *signParams) {
		p.code = code
	}
}

// WithKeyID sets the kid protected header.
func WithKeyID(kid string) SignOption {
	return func(p *signParams) {
		p.kid = kid
	}
}

// WithProtectedHeaders injects extra protected header fields before signing.
func WithProtectedHeaders(headers jws.Headers) SignOption {
	return func(p *signParams) {
		p.headers = headers
	}
}

// Sign serializes the token's claims and signs them with the given key,
// producing a compact JWS. All required claims must be present; binding
// hashes are computed here from the credentials supplied as options, using
// the digest matching alg.
func (t *IDToken) Sign(alg jwa.SignatureAlgorithm, key any, opts ...SignOption) ([]byte, error) {
	var params signParams
	for _, opt := range opts {
		opt(&params)
	}

	claims, err := t.ClaimsMap()
	if err != nil {
		return nil, err
	}

	if params.accessToken != "" {
		atHash, err := halfHash(alg, params.accessToken)
		if err != nil {
			return nil, err
		}
		claims["at_hash"] = atHash
		t.AccessTokenHash = atHash
	}
	if params.code != "" {
		cHash, err := halfHash(alg, params.code)
		if err != nil {
			return nil, err
		}
		claims["c_hash"] = cHash
		t.CodeHash = cHash
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return nil, err
	}

	headers := params.headers
	if headers == nil {
		headers = jws.NewHeaders()
	}
	if params.kid != "" {
		if err := headers.Set(jws.KeyIDKey, params.kid); err != nil {
			return nil, err
		}
	}
	if err := headers.Set(jws.TypeKey, "JWT"); err != nil {
		return nil, err
	}

	signed, err := jws.Sign(payload, jws.WithKey(alg, key, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return nil, err
	}
	t.alg = alg
	return signed, nil
}
