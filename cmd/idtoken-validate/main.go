package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	oidcx "github.com/bionicotaku/lingo-utils-oidcx"
)

func main() {
	envPath := defaultEnvPath()
	if err := loadEnvFile(envPath); err != nil {
		log.Printf("warning: load %s: %v", envPath, err)
	}

	var (
		defaultJWKSURL  = os.Getenv("OIDC_JWKS_URL")
		defaultIssuer   = os.Getenv("OIDC_ISSUER")
		defaultAudience = os.Getenv("OIDC_AUDIENCE")
		defaultNonce    = os.Getenv("OIDC_NONCE")
		defaultToken    = os.Getenv("OIDC_ID_TOKEN")
	)

	jwksURL := flag.String("jwks-url", defaultJWKSURL, "Issuer JWKS URL; empty selects Google mode (env OIDC_JWKS_URL)")
	issuer := flag.String("issuer", defaultIssuer, "Expected issuer (env OIDC_ISSUER)")
	audience := flag.String("audience", defaultAudience, "Expected audience (env OIDC_AUDIENCE)")
	nonce := flag.String("nonce", defaultNonce, "Expected nonce, if the authentication request carried one (env OIDC_NONCE)")
	token := flag.String("token", defaultToken, "ID token to validate (env OIDC_ID_TOKEN)")
	accessToken := flag.String("access-token", "", "Access token to check against the at_hash claim")
	timeout := flag.Duration("timeout", 10*time.Second, "Timeout for JWKS fetch and validation")
	flag.Parse()

	if *audience == "" {
		flag.Usage()
		log.Fatal("audience is required (via flag, .env, or environment variables)")
	}
	if *token == "" {
		flag.Usage()
		log.Fatal("token is required (via flag, .env, or environment variables)")
	}

	cfg := oidcx.ValidatorConfig{
		Issuers: []oidcx.IssuerConfig{
			{
				Name:        "issuer",
				JWKSURL:     *jwksURL,
				Issuer:      *issuer,
				Audience:    *audience,
				HTTPTimeout: 5 * time.Second,
				ClockSkew:   30 * time.Second,
				MinRefresh:  time.Minute,
			},
		},
	}

	validator, err := oidcx.NewValidator(cfg)
	if err != nil {
		log.Fatalf("create validator: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *jwksURL != "" {
		if err := validator.Warmup(ctx, "issuer"); err != nil {
			log.Printf("warmup warning: %v", err)
		}
	}

	var opts []oidcx.ValidateOption
	if *nonce != "" {
		opts = append(opts, oidcx.WithExpectedNonce(*nonce))
	}

	decoded, err := validator.Validate(ctx, *token, "issuer", opts...)
	if err != nil {
		log.Fatalf("validation failed: %v", err)
	}

	if *accessToken != "" {
		if err := decoded.VerifyAccessTokenHash(*accessToken); err != nil {
			log.Fatalf("access token binding failed: %v", err)
		}
		log.Println("access token binding verified")
	}

	printToken(decoded)
}

func printToken(token *oidcx.IDToken) {
	fmt.Println("== ID Token Verified ==")
	fmt.Printf("subject      : %s\n", token.Subject)
	fmt.Printf("issuer       : %s\n", token.Issuer)
	fmt.Printf("audience     : %s\n", strings.Join(token.Audience, ", "))
	if !token.Expiration.IsZero() {
		fmt.Printf("expires_at   : %s\n", token.Expiration.Format(time.RFC3339))
	}
	if !token.IssuedAt.IsZero() {
		fmt.Printf("issued_at    : %s\n", token.IssuedAt.Format(time.RFC3339))
	}
	if token.Nonce != "" {
		fmt.Printf("nonce        : %s\n", token.Nonce)
	}
	if token.AuthContextClass != "" {
		fmt.Printf("acr          : %s\n", token.AuthContextClass)
	}
	if token.AccessTokenHash != "" {
		fmt.Printf("at_hash      : %s\n", token.AccessTokenHash)
	}
	if token.CodeHash != "" {
		fmt.Printf("c_hash       : %s\n", token.CodeHash)
	}
}

func defaultEnvPath() string {
	if path := os.Getenv("OIDCX_ENV_FILE"); path != "" {
		return path
	}
	return ".env"
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			log.Printf("warning: invalid line %d in %s", lineNum, filepath.Base(path))
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			log.Printf("warning: set env %s: %v", key, err)
		}
	}
	return scanner.Err()
}
