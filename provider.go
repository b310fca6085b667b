package oidcx

import (
	"errors"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// ProviderConfig defines how a provider signs the ID tokens it issues.
type ProviderConfig struct {
	// Issuer is the identifier this provider asserts in every token.
	Issuer string
	// Key is the private signing key.
	Key jwk.Key
	// Algorithm selects the signature algorithm; it also determines the
	// digest used for binding hashes.
	Algorithm jwa.SignatureAlgorithm
	// KeyID is set as the kid header when non-empty.
	KeyID string
	// TTL is the default validity window; one hour when unset.
	TTL time.Duration
	// Clock overrides the time source, mainly for tests.
	Clock func() time.Time
}

// Provider issues signed ID tokens for authenticated subjects.
type Provider struct {
	cfg ProviderConfig
}

// IssueOption adjusts a single Issue call.
type IssueOption func(*issueParams)

type issueParams struct {
	nonce       string
	acr         string
	authTime    time.Time
	accessToken string
	code        string
	ttl         time.Duration
}

// WithIssueNonce echoes the nonce from the authentication request into the
// issued token.
func WithIssueNonce(nonce string) IssueOption {
	return func(p *issueParams) {
		p.nonce = nonce
	}
}

// WithAuthContext records the authentication context class the login
// satisfied.
func WithAuthContext(acr string) IssueOption {
	return func(p *issueParams) {
		p.acr = acr
	}
}

// WithAuthTime records when the end user actually authenticated.
func WithAuthTime(at time.Time) IssueOption {
	return func(p *issueParams) {
		p.authTime = at
	}
}

// WithBoundAccessToken binds the access token issued alongside this ID
// token; only its hash ends up in the token.
func WithBoundAccessToken(accessToken string) IssueOption {
	return func(p *issueParams) {
		p.accessToken = accessToken
	}
}

// WithBoundCode binds the authorization code issued alongside this ID token.
func WithBoundCode(code string) IssueOption {
	return func(p *issueParams) {
		p.code = code
	}
}

// WithTTL overrides the provider's default validity window for one token.
func WithTTL(ttl time.Duration) IssueOption {
	return func(p *issueParams) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// NewProvider constructs a Provider from the supplied configuration.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	switch {
	case strings.TrimSpace(cfg.Issuer) == "":
		return nil, errors.New("issuer is required")
	case cfg.Key == nil:
		return nil, errors.New("signing key is required")
	case cfg.Algorithm == "":
		return nil, errors.New("signature algorithm is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Provider{cfg: cfg}, nil
}

// Issue signs an ID token asserting that subject authenticated with this
// provider for the given audience. It returns the compact token together
// with the claims that went into it.
func (p *Provider) Issue(subject, audience string, opts ...IssueOption) ([]byte, *IDToken, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, nil, errors.New("subject is required")
	}
	if strings.TrimSpace(audience) == "" {
		return nil, nil, errors.New("audience is required")
	}

	params := issueParams{ttl: p.cfg.TTL}
	for _, opt := range opts {
		opt(&params)
	}

	now := p.cfg.Clock()
	token := &IDToken{
		Issuer:           p.cfg.Issuer,
		Subject:          subject,
		Audience:         []string{audience},
		Expiration:       now.Add(params.ttl),
		IssuedAt:         now,
		AuthContextClass: params.acr,
		AuthTime:         params.authTime,
		Nonce:            params.nonce,
	}

	signed, err := token.Sign(p.cfg.Algorithm, p.cfg.Key, params.signOptions(p.cfg.KeyID)...)
	if err != nil {
		return nil, nil, err
	}
	return signed, token, nil
}

// IssueSelfIssued signs a token asserting the holder's own identity with the
// provider's key pair, ignoring the configured issuer.
func (p *Provider) IssueSelfIssued(audience string, opts ...IssueOption) ([]byte, *IDToken, error) {
	if strings.TrimSpace(audience) == "" {
		return nil, nil, errors.New("audience is required")
	}

	params := issueParams{ttl: p.cfg.TTL}
	for _, opt := range opts {
		opt(&params)
	}

	now := p.cfg.Clock()
	token, err := SelfIssued(p.cfg.Key, []string{audience}, now.Add(params.ttl), now)
	if err != nil {
		return nil, nil, err
	}
	token.Nonce = params.nonce
	token.AuthContextClass = params.acr
	token.AuthTime = params.authTime

	signed, err := token.Sign(p.cfg.Algorithm, p.cfg.Key, params.signOptions(p.cfg.KeyID)...)
	if err != nil {
		return nil, nil, err
	}
	return signed, token, nil
}

// signOptions translates the per-call issue parameters into sign options.
func (p issueParams) signOptions(kid string) []SignOption {
	opts := make([]SignOption, 0, 3)
	if kid != "" {
		opts = append(opts, WithKeyID(kid))
	}
	if p.accessToken != "" {
		opts = append(opts, WithAccessToken(p.accessToken))
	}
	if p.code != "" {
		opts = append(opts, WithAuthorizationCode(p.code))
	}
	return opts
}
