package oidcx

import (
	"encoding/json"
	"errors"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// DecodeTrusted verifies the compact token's signature against a key the
// caller already trusts and returns the decoded token.
//
// Signature failures from the jws primitive are returned unchanged so
// callers can tell "not authentic" apart from this package's own *Error
// trust failures. DecodeTrusted checks authenticity only; run Verify on the
// result to check the claims against caller expectations.
func DecodeTrusted(token []byte, key jwk.Key) (*IDToken, error) {
	alg, err := headerAlgorithm(token)
	if err != nil {
		return nil, err
	}

	payload, err := jws.Verify(token, jws.WithKey(alg, key))
	if err != nil {
		return nil, err
	}
	return tokenFromPayload(payload, alg)
}

// DecodeSelfIssued verifies a self-issued token using the public key the
// token itself embeds in the sub_jwk claim, then checks that the token's
// subject is the identifier derived from that key.
func DecodeSelfIssued(token []byte) (*IDToken, error) {
	msg, err := jws.Parse(token)
	if err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}
	alg, err := messageAlgorithm(msg)
	if err != nil {
		return nil, err
	}

	// The payload is untrusted at this point; it is read only to pull out
	// the embedded key the signature will be verified against.
	var envelope struct {
		SubJWK json.RawMessage `json:"sub_jwk"`
	}
	if err := json.Unmarshal(msg.Payload(), &envelope); err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}
	if len(envelope.SubJWK) == 0 {
		return nil, newError(ErrCodeMissingKeyClaim, errors.New("self-issued token has no sub_jwk claim"))
	}
	embedded, err := jwk.ParseKey(envelope.SubJWK)
	if err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}

	payload, err := jws.Verify(token, jws.WithKey(alg, embedded))
	if err != nil {
		return nil, err
	}

	decoded, err := tokenFromPayload(payload, alg)
	if err != nil {
		return nil, err
	}
	derived, err := SelfIssuedSubject(embedded)
	if err != nil {
		return nil, err
	}
	if decoded.Subject != derived {
		return nil, newError(ErrCodeSubjectMismatch, errors.New("subject does not match the embedded key"))
	}
	return decoded, nil
}

// decodeKeySet is the remote-verifier variant: the signature must verify
// against one of the keys in the set.
func decodeKeySet(token []byte, keys jwk.Set) (*IDToken, error) {
	alg, err := headerAlgorithm(token)
	if err != nil {
		return nil, err
	}

	payload, err := jws.Verify(token, jws.WithKeySet(keys,
		jws.WithInferAlgorithmFromKey(true),
		jws.WithRequireKid(false),
	))
	if err != nil {
		return nil, err
	}
	return tokenFromPayload(payload, alg)
}

// headerAlgorithm decomposes the compact token far enough to read the
// declared signature algorithm from its protected header.
func headerAlgorithm(token []byte) (jwa.SignatureAlgorithm, error) {
	msg, err := jws.Parse(token)
	if err != nil {
		return "", newError(ErrCodeInvalidToken, err)
	}
	return messageAlgorithm(msg)
}

func messageAlgorithm(msg *jws.Message) (jwa.SignatureAlgorithm, error) {
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return "", newError(ErrCodeInvalidToken, errors.New("token has no signature"))
	}
	alg := sigs[0].ProtectedHeaders().Algorithm()
	if alg == "" {
		return "", newError(ErrCodeUnsupportedAlgorithm, errors.New("token header declares no algorithm"))
	}
	return alg, nil
}
