package main

import (
	"crypto/rand"
	"crypto/rsa"
	"flag"
	"fmt"
	"log"
	"time"

	oidcx "github.com/bionicotaku/lingo-utils-oidcx"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

func main() {
	audience := flag.String("audience", "https://rp.example.com", "Audience for the self-issued token")
	ttl := flag.Duration("ttl", time.Hour, "Validity window")
	bits := flag.Int("bits", 2048, "RSA key size")
	flag.Parse()

	raw, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		log.Fatalf("wrap key: %v", err)
	}

	now := time.Now()
	token, err := oidcx.SelfIssued(key, []string{*audience}, now.Add(*ttl), now)
	if err != nil {
		log.Fatalf("build self-issued token: %v", err)
	}

	signed, err := token.Sign(jwa.RS256, key)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}

	decoded, err := oidcx.DecodeSelfIssued(signed)
	if err != nil {
		log.Fatalf("decode: %v", err)
	}
	if err := decoded.Verify(oidcx.SelfIssuedIssuer, *audience); err != nil {
		log.Fatalf("verify: %v", err)
	}

	fmt.Println("== Self-Issued ID Token ==")
	fmt.Printf("subject   : %s\n", decoded.Subject)
	fmt.Printf("issuer    : %s\n", decoded.Issuer)
	fmt.Printf("audience  : %s\n", *audience)
	fmt.Printf("expires_at: %s\n", decoded.Expiration.Format(time.RFC3339))
	fmt.Printf("token     : %s\n", signed)
}
