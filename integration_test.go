package oidcx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func TestOIDCProviderIntegration(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("RUN_INTEGRATION_TESTS not set to true")
	}

	jwksURL := strings.TrimSpace(os.Getenv("OIDC_JWKS_URL"))
	issuer := strings.TrimSpace(os.Getenv("OIDC_ISSUER"))
	audience := strings.TrimSpace(os.Getenv("OIDC_AUDIENCE"))
	if jwksURL == "" || issuer == "" || audience == "" {
		t.Fatal("OIDC_JWKS_URL, OIDC_ISSUER, and OIDC_AUDIENCE environment variables required")
	}

	resp, err := http.Get(jwksURL)
	if err != nil {
		t.Fatalf("fetch JWKS: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("JWKS endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var jwks map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		t.Fatalf("decode JWKS: %v", err)
	}
	keys, ok := jwks["keys"].([]any)
	if !ok || len(keys) == 0 {
		t.Fatalf("JWKS has no keys: %v", jwks)
	}

	cfg := ValidatorConfig{
		Issuers: []IssuerConfig{{
			Name:        "provider",
			JWKSURL:     jwksURL,
			Issuer:      issuer,
			Audience:    audience,
			ClockSkew:   time.Minute,
			MinRefresh:  time.Minute,
			HTTPTimeout: 5 * time.Second,
		}},
	}

	validator, err := NewValidator(cfg)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	if token := strings.TrimSpace(os.Getenv("OIDC_ID_TOKEN")); token != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		decoded, err := validator.Validate(ctx, token, "provider")
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if decoded.Subject == "" {
			t.Fatal("decoded.Subject empty")
		}
	}
}
