package oidcx

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// SelfIssuedIssuer is the well-known issuer identifier for tokens a subject
// mints about itself, with trust rooted in the key embedded in the token.
const SelfIssuedIssuer = "https://self-issued.me"

// SelfIssuedSubject derives the subject identifier for a self-issued token
// from a public key: for an RSA key, the base64url encoding of
// SHA-256(modulus || exponent) over the raw big-endian component bytes.
//
// EC keys return ErrECDSASelfIssued; the derivation is not defined for them.
// Any other key kind is rejected as an invalid token.
func SelfIssuedSubject(key jwk.Key) (string, error) {
	pub, err := key.PublicKey()
	if err != nil {
		return "", newError(ErrCodeInvalidToken, err)
	}

	switch k := pub.(type) {
	case jwk.RSAPublicKey:
		sum := sha256.Sum256(append(append([]byte(nil), k.N()...), k.E()...))
		return base64.RawURLEncoding.EncodeToString(sum[:]), nil
	case jwk.ECDSAPublicKey:
		return "", ErrECDSASelfIssued
	default:
		return "", newError(ErrCodeInvalidToken, fmt.Errorf("unrecognized key algorithm %q", pub.KeyType()))
	}
}

// SelfIssued constructs an ID token asserting the key holder's own identity:
// the issuer is fixed to SelfIssuedIssuer, the subject is derived from the
// key, and the public JWK is embedded as sub_jwk for verifiers to use.
func SelfIssued(key jwk.Key, audience []string, expiration, issuedAt time.Time) (*IDToken, error) {
	pub, err := key.PublicKey()
	if err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}
	subject, err := SelfIssuedSubject(pub)
	if err != nil {
		return nil, err
	}

	return &IDToken{
		Issuer:     SelfIssuedIssuer,
		Subject:    subject,
		Audience:   append([]string(nil), audience...),
		Expiration: expiration,
		IssuedAt:   issuedAt,
		SubjectKey: pub,
	}, nil
}
