package oidcx

import (
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// RequiredClaims lists, in documentation order, the claims every ID token
// must carry.
var RequiredClaims = []string{"iss", "sub", "aud", "exp", "iat"}

// OptionalClaims lists, in documentation order, the claims an ID token may
// carry.
var OptionalClaims = []string{"acr", "auth_time", "nonce", "sub_jwk", "at_hash", "c_hash"}

// IDToken is a decoded OpenID Connect ID token: a signed assertion binding a
// subject to an issuer and audience for a validity window.
//
// Raw credentials (access token, authorization code) are never part of the
// token itself; they are supplied to Sign, which stores only their binding
// hashes.
type IDToken struct {
	Issuer     string
	Subject    string
	Audience   []string
	Expiration time.Time
	IssuedAt   time.Time

	AuthContextClass string
	AuthTime         time.Time
	Nonce            string
	SubjectKey       jwk.Key
	AccessTokenHash  string
	CodeHash         string

	// alg is the signature algorithm observed at decode or sign time; the
	// binding-hash checks need it to pick the digest size.
	alg jwa.SignatureAlgorithm
}

// SignatureAlgorithm reports the algorithm the token was signed or decoded
// with, or the empty value for a token that has not been through either.
func (t *IDToken) SignatureAlgorithm() jwa.SignatureAlgorithm {
	return t.alg
}

// ClaimsMap serializes the token to a plain claim map: every present
// required claim plus every present optional claim, with timestamps as
// integer epoch seconds (fractional seconds are truncated).
func (t *IDToken) ClaimsMap() (map[string]any, error) {
	if err := t.checkRequired(); err != nil {
		return nil, err
	}

	m := map[string]any{
		"iss": t.Issuer,
		"sub": t.Subject,
		"exp": t.Expiration.Unix(),
		"iat": t.IssuedAt.Unix(),
	}
	if len(t.Audience) == 1 {
		m["aud"] = t.Audience[0]
	} else {
		m["aud"] = append([]string(nil), t.Audience...)
	}

	if t.AuthContextClass != "" {
		m["acr"] = t.AuthContextClass
	}
	if !t.AuthTime.IsZero() {
		m["auth_time"] = t.AuthTime.Unix()
	}
	if t.Nonce != "" {
		m["nonce"] = t.Nonce
	}
	if t.SubjectKey != nil {
		m["sub_jwk"] = t.SubjectKey
	}
	if t.AccessTokenHash != "" {
		m["at_hash"] = t.AccessTokenHash
	}
	if t.CodeHash != "" {
		m["c_hash"] = t.CodeHash
	}
	return m, nil
}

// checkRequired enforces the required-claim invariant: present and non-empty.
func (t *IDToken) checkRequired() error {
	switch {
	case t.Issuer == "":
		return &RequiredClaimError{Claim: "iss"}
	case t.Subject == "":
		return &RequiredClaimError{Claim: "sub"}
	case len(t.Audience) == 0, slices.Contains(t.Audience, ""):
		return &RequiredClaimError{Claim: "aud"}
	case t.Expiration.IsZero():
		return &RequiredClaimError{Claim: "exp"}
	case t.IssuedAt.IsZero():
		return &RequiredClaimError{Claim: "iat"}
	}
	return nil
}

// payloadClaims is the wire shape of an ID token payload. Timestamps are
// decoded as JSON numbers and truncated to whole seconds.
type payloadClaims struct {
	Issuer     string          `json:"iss"`
	Subject    string          `json:"sub"`
	Audience   audienceValue   `json:"aud"`
	Expiration float64         `json:"exp"`
	IssuedAt   float64         `json:"iat"`
	ACR        string          `json:"acr"`
	AuthTime   float64         `json:"auth_time"`
	Nonce      string          `json:"nonce"`
	SubJWK     json.RawMessage `json:"sub_jwk"`
	AtHash     string          `json:"at_hash"`
	CHash      string          `json:"c_hash"`
}

// audienceValue accepts both the single-string and array forms of "aud".
type audienceValue []string

func (a *audienceValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = audienceValue{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("aud must be a string or an array of strings")
	}
	*a = audienceValue(many)
	return nil
}

// tokenFromPayload builds an IDToken from a verified (or, for the
// self-issued path, about-to-be-verified) payload.
func tokenFromPayload(payload []byte, alg jwa.SignatureAlgorithm) (*IDToken, error) {
	var claims payloadClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}

	t := &IDToken{
		Issuer:           claims.Issuer,
		Subject:          claims.Subject,
		Audience:         []string(claims.Audience),
		AuthContextClass: claims.ACR,
		Nonce:            claims.Nonce,
		AccessTokenHash:  claims.AtHash,
		CodeHash:         claims.CHash,
		alg:              alg,
	}
	if claims.Expiration != 0 {
		t.Expiration = time.Unix(int64(claims.Expiration), 0).UTC()
	}
	if claims.IssuedAt != 0 {
		t.IssuedAt = time.Unix(int64(claims.IssuedAt), 0).UTC()
	}
	if claims.AuthTime != 0 {
		t.AuthTime = time.Unix(int64(claims.AuthTime), 0).UTC()
	}
	if len(claims.SubJWK) > 0 {
		key, err := jwk.ParseKey(claims.SubJWK)
		if err != nil {
			return nil, newError(ErrCodeInvalidToken, err)
		}
		t.SubjectKey = key
	}
	return t, nil
}
