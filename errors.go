package oidcx

import (
	"errors"
	"fmt"
)

// ErrorCode represents trust-level validation error categories.
type ErrorCode string

const (
	ErrCodeInvalidToken         ErrorCode = "invalid_token"
	ErrCodeExpired              ErrorCode = "token_expired"
	ErrCodeInvalidIssuer        ErrorCode = "invalid_issuer"
	ErrCodeInvalidAudience      ErrorCode = "invalid_audience"
	ErrCodeInvalidNonce         ErrorCode = "invalid_nonce"
	ErrCodeMissingKeyClaim      ErrorCode = "missing_key_claim"
	ErrCodeSubjectMismatch      ErrorCode = "subject_mismatch"
	ErrCodeUnsupportedAlgorithm ErrorCode = "unsupported_algorithm"
	ErrCodeMissingBinding       ErrorCode = "missing_binding"
	ErrCodeBindingMismatch      ErrorCode = "binding_mismatch"
	ErrCodeIssuerNotRegistered  ErrorCode = "issuer_not_registered"
	ErrCodeJWKSUnavailable      ErrorCode = "jwks_unavailable"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeInvalidToken:         "Invalid token",
	ErrCodeExpired:              "Token expired",
	ErrCodeInvalidIssuer:        "Invalid issuer",
	ErrCodeInvalidAudience:      "Invalid audience",
	ErrCodeInvalidNonce:         "Invalid nonce",
	ErrCodeMissingKeyClaim:      "Missing sub_jwk",
	ErrCodeSubjectMismatch:      "Invalid subject",
	ErrCodeUnsupportedAlgorithm: "Unsupported algorithm",
	ErrCodeMissingBinding:       "Missing binding hash",
	ErrCodeBindingMismatch:      "Binding hash mismatch",
	ErrCodeIssuerNotRegistered:  "Issuer not registered",
	ErrCodeJWKSUnavailable:      "JWKS unavailable",
}

// Error wraps trust-level validation failures with a stable code and message.
//
// Signature verification failures are a separate category: they come back
// from the jws primitive unchanged and are never re-wrapped as *Error.
// Callers branch with errors.As: a *Error means the token is authentic but
// untrustworthy per its claims; anything else from decode means it was never
// authentic to begin with.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// RequiredClaimError reports a required claim that is absent or empty at the
// point a complete token is needed (signing, serialization, verification).
type RequiredClaimError struct {
	Claim string
}

// Error implements the error interface.
func (e *RequiredClaimError) Error() string {
	return fmt.Sprintf("required claim %q is missing", e.Claim)
}

// ErrECDSASelfIssued is returned by SelfIssuedSubject for elliptic-curve
// keys: the derivation is defined only for RSA keys. It wraps
// errors.ErrUnsupported so callers can treat it as a capability gap rather
// than bad input.
var ErrECDSASelfIssued = fmt.Errorf("self-issued subject derivation for EC keys: %w", errors.ErrUnsupported)
