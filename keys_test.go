package oidcx

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

func testRSAKey(t *testing.T) (priv jwk.Key, pub jwk.Key) {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	priv, err = jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("private key jwk: %v", err)
	}
	pub, err = priv.PublicKey()
	if err != nil {
		t.Fatalf("public key jwk: %v", err)
	}
	return priv, pub
}

func testECKey(t *testing.T) jwk.Key {
	t.Helper()
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ec key: %v", err)
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("ec key jwk: %v", err)
	}
	return key
}

func baseToken(now time.Time) *IDToken {
	return &IDToken{
		Issuer:     "https://op.example.com",
		Subject:    "user-1",
		Audience:   []string{"client-1"},
		Expiration: now.Add(time.Hour),
		IssuedAt:   now,
	}
}
