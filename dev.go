package oidcx

import "time"

// DevBypassToken holds attributes used to fabricate an identity in dev mode,
// skipping signature verification entirely.
type DevBypassToken struct {
	Subject  string
	Issuer   string
	Audience []string
}

// ToCallerIdentity converts the dev bypass configuration into a caller
// identity with a long validity window.
func (d DevBypassToken) ToCallerIdentity() CallerIdentity {
	now := time.Now()
	token := &IDToken{
		Issuer:     d.Issuer,
		Subject:    d.Subject,
		Audience:   append([]string(nil), d.Audience...),
		Expiration: now.Add(24 * time.Hour),
		IssuedAt:   now,
	}
	return CallerIdentity{
		Token:     token,
		DevBypass: true,
	}
}

// DefaultDevBypassToken returns a baseline identity suitable for local
// development.
func DefaultDevBypassToken(audience string) DevBypassToken {
	aud := audience
	if aud == "" {
		aud = "https://dev.local"
	}
	return DevBypassToken{
		Subject:  "dev-bypass",
		Issuer:   "oidcx.dev",
		Audience: []string{aud},
	}
}
