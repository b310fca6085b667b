package oidcx

import (
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
)

func TestProviderIssue(t *testing.T) {
	priv, pub := testRSAKey(t)
	issuedAt := time.Unix(1756200000, 0)

	provider, err := NewProvider(ProviderConfig{
		Issuer:    "https://op.example.com",
		Key:       priv,
		Algorithm: jwa.RS256,
		KeyID:     "key-1",
		TTL:       10 * time.Minute,
		Clock:     func() time.Time { return issuedAt },
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	signed, issued, err := provider.Issue("user-1", "client-1",
		WithIssueNonce("n1"),
		WithBoundAccessToken("access_token"),
	)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.Expiration.Unix() != issuedAt.Add(10*time.Minute).Unix() {
		t.Fatalf("unexpected expiration: %v", issued.Expiration)
	}

	decoded, err := DecodeTrusted(signed, pub)
	if err != nil {
		t.Fatalf("DecodeTrusted: %v", err)
	}
	if decoded.Issuer != "https://op.example.com" || decoded.Subject != "user-1" {
		t.Fatalf("unexpected claims: %+v", decoded)
	}
	if decoded.Nonce != "n1" {
		t.Fatalf("unexpected nonce: %s", decoded.Nonce)
	}
	if decoded.AccessTokenHash == "" {
		t.Fatal("at_hash missing")
	}
	if err := decoded.VerifyAccessTokenHash("access_token"); err != nil {
		t.Fatalf("VerifyAccessTokenHash: %v", err)
	}

	clock := func() time.Time { return issuedAt.Add(time.Minute) }
	if err := decoded.Verify("https://op.example.com", "client-1", WithNonce("n1"), WithClock(clock)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestProviderIssueTTLOverride(t *testing.T) {
	priv, _ := testRSAKey(t)
	issuedAt := time.Unix(1756200000, 0)

	provider, err := NewProvider(ProviderConfig{
		Issuer:    "https://op.example.com",
		Key:       priv,
		Algorithm: jwa.RS256,
		Clock:     func() time.Time { return issuedAt },
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	_, issued, err := provider.Issue("user-1", "client-1", WithTTL(5*time.Minute))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.Expiration.Unix() != issuedAt.Add(5*time.Minute).Unix() {
		t.Fatalf("unexpected expiration: %v", issued.Expiration)
	}
}

func TestProviderIssueSelfIssued(t *testing.T) {
	priv, pub := testRSAKey(t)

	provider, err := NewProvider(ProviderConfig{
		Issuer:    "https://op.example.com",
		Key:       priv,
		Algorithm: jwa.RS256,
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	signed, issued, err := provider.IssueSelfIssued("client-1",
		WithIssueNonce("n1"),
		WithBoundAccessToken("access_token"),
		WithBoundCode("authorization_code"),
	)
	if err != nil {
		t.Fatalf("IssueSelfIssued: %v", err)
	}
	if issued.Issuer != SelfIssuedIssuer {
		t.Fatalf("unexpected issuer: %s", issued.Issuer)
	}

	decoded, err := DecodeSelfIssued(signed)
	if err != nil {
		t.Fatalf("DecodeSelfIssued: %v", err)
	}
	want, err := SelfIssuedSubject(pub)
	if err != nil {
		t.Fatalf("SelfIssuedSubject: %v", err)
	}
	if decoded.Subject != want {
		t.Fatalf("unexpected subject: %s", decoded.Subject)
	}
	if decoded.Nonce != "n1" {
		t.Fatalf("unexpected nonce: %s", decoded.Nonce)
	}

	// Bound credentials must survive the self-issued path too.
	if decoded.AccessTokenHash == "" {
		t.Fatal("at_hash missing from self-issued token")
	}
	if err := decoded.VerifyAccessTokenHash("access_token"); err != nil {
		t.Fatalf("VerifyAccessTokenHash: %v", err)
	}
	if err := decoded.VerifyCodeHash("authorization_code"); err != nil {
		t.Fatalf("VerifyCodeHash: %v", err)
	}
}

func TestProviderConfigValidation(t *testing.T) {
	priv, _ := testRSAKey(t)

	if _, err := NewProvider(ProviderConfig{Key: priv, Algorithm: jwa.RS256}); err == nil {
		t.Fatal("expected error for missing issuer")
	}
	if _, err := NewProvider(ProviderConfig{Issuer: "https://op.example.com", Algorithm: jwa.RS256}); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := NewProvider(ProviderConfig{Issuer: "https://op.example.com", Key: priv}); err == nil {
		t.Fatal("expected error for missing algorithm")
	}

	provider, err := NewProvider(ProviderConfig{Issuer: "https://op.example.com", Key: priv, Algorithm: jwa.RS256})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if _, _, err := provider.Issue("", "client-1"); err == nil {
		t.Fatal("expected error for missing subject")
	}
	if _, _, err := provider.Issue("user-1", ""); err == nil {
		t.Fatal("expected error for missing audience")
	}
}

func TestProviderIssueECKey(t *testing.T) {
	priv := testECKey(t)

	provider, err := NewProvider(ProviderConfig{
		Issuer:    "https://op.example.com",
		Key:       priv,
		Algorithm: jwa.ES256,
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	signed, _, err := provider.Issue("user-1", "client-1", WithBoundAccessToken("access_token"))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	pub, err := priv.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	decoded, err := DecodeTrusted(signed, pub)
	if err != nil {
		t.Fatalf("DecodeTrusted: %v", err)
	}
	if err := decoded.VerifyAccessTokenHash("access_token"); err != nil {
		t.Fatalf("VerifyAccessTokenHash: %v", err)
	}

	err = decoded.VerifyAccessTokenHash("other_token")
	var oidcErr *Error
	if !errors.As(err, &oidcErr) || oidcErr.Code != ErrCodeBindingMismatch {
		t.Fatalf("expected binding mismatch, got %v", err)
	}
}
