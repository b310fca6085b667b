package oidcx

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"

	"github.com/lestrrat-go/jwx/v2/jwa"
)

// digestFor picks the digest matching the bit-strength of the signature
// algorithm: a 256-bit-class signature pairs with SHA-256, 384 with SHA-384,
// 512 with SHA-512.
func digestFor(alg jwa.SignatureAlgorithm) (hash.Hash, error) {
	switch alg {
	case jwa.RS256, jwa.PS256, jwa.ES256, jwa.ES256K, jwa.HS256:
		return sha256.New(), nil
	case jwa.RS384, jwa.PS384, jwa.ES384, jwa.HS384:
		return sha512.New384(), nil
	case jwa.RS512, jwa.PS512, jwa.ES512, jwa.HS512:
		return sha512.New(), nil
	}
	return nil, newError(ErrCodeUnsupportedAlgorithm, fmt.Errorf("no digest for %q", alg))
}

// halfHash computes the binding hash for a companion credential: the
// base64url encoding, without padding, of the left half of the digest of the
// credential's ASCII octets. This is the at_hash/c_hash derivation.
func halfHash(alg jwa.SignatureAlgorithm, credential string) (string, error) {
	h, err := digestFor(alg)
	if err != nil {
		return "", err
	}
	_, _ = h.Write([]byte(credential))
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum[:h.Size()/2]), nil
}
