package oidcx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"google.golang.org/api/idtoken"
)

var googleValidate = idtoken.Validate

// Validator verifies ID tokens minted by configured issuers: it fetches and
// caches each issuer's JWKS, checks the signature, and runs the claim gates
// against the configured expectations.
type Validator struct {
	mu            sync.RWMutex
	issuers       map[string]*issuerState
	defaultIssuer string
}

type issuerState struct {
	cfg             IssuerConfig
	cache           *jwk.Cache
	allowedSubjects map[string]struct{}
	google          bool
}

// NewValidator builds a validator from the given configuration.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	index, err := cfg.issuerIndex()
	if err != nil {
		return nil, err
	}

	defaultIssuer := ""
	if len(cfg.Issuers) == 1 {
		defaultIssuer = cfg.Issuers[0].Name
	}

	v := &Validator{
		issuers:       make(map[string]*issuerState, len(index)),
		defaultIssuer: defaultIssuer,
	}
	for name, issuerCfg := range index {
		state := &issuerState{
			cfg:             issuerCfg,
			allowedSubjects: toSet(issuerCfg.AllowedSubjects),
			google:          issuerCfg.JWKSURL == "",
		}
		if !state.google {
			cache := jwk.NewCache(context.Background())
			httpClient := &http.Client{
				Timeout: issuerCfg.HTTPTimeout,
				Transport: &http.Transport{
					Proxy: http.ProxyFromEnvironment,
				},
			}
			if err := cache.Register(
				issuerCfg.JWKSURL,
				jwk.WithMinRefreshInterval(issuerCfg.MinRefresh),
				jwk.WithHTTPClient(httpClient),
			); err != nil {
				return nil, fmt.Errorf("register jwks for %q: %w", name, err)
			}
			state.cache = cache
		}
		v.issuers[name] = state
	}

	return v, nil
}

// Warmup refreshes JWKS for the specified issuer.
func (v *Validator) Warmup(ctx context.Context, issuerName string) error {
	state, ok := v.lookupIssuer(issuerName)
	if !ok {
		return newError(ErrCodeIssuerNotRegistered, fmt.Errorf("issuer %q not found", issuerName))
	}
	if state.google {
		return nil
	}
	refreshCtx := ctx
	if state.cfg.HTTPTimeout > 0 {
		var cancel context.CancelFunc
		refreshCtx, cancel = context.WithTimeout(ctx, state.cfg.HTTPTimeout)
		defer cancel()
	}
	if _, err := state.cache.Refresh(refreshCtx, state.cfg.JWKSURL); err != nil {
		return newError(ErrCodeJWKSUnavailable, err)
	}
	return nil
}

// ValidateOption adjusts a single Validate call.
type ValidateOption func(*validateParams)

type validateParams struct {
	nonce string
}

// WithExpectedNonce supplies the nonce the relying party sent with the
// authentication request this token answers.
func WithExpectedNonce(nonce string) ValidateOption {
	return func(p *validateParams) {
		p.nonce = nonce
	}
}

// Validate decodes and verifies the token using the issuer identified by
// issuerName, returning the decoded ID token on success.
func (v *Validator) Validate(ctx context.Context, token, issuerName string, opts ...ValidateOption) (*IDToken, error) {
	if issuerName == "" {
		issuerName = v.defaultIssuer
	}
	if issuerName == "" {
		return nil, newError(ErrCodeIssuerNotRegistered, errors.New("issuer not specified"))
	}

	if token == "" {
		return nil, newError(ErrCodeInvalidToken, errors.New("token is empty"))
	}
	state, ok := v.lookupIssuer(issuerName)
	if !ok {
		return nil, newError(ErrCodeIssuerNotRegistered, fmt.Errorf("issuer %q not found", issuerName))
	}

	var params validateParams
	for _, opt := range opts {
		opt(&params)
	}

	if state.google {
		return v.validateGoogle(ctx, token, state, params)
	}
	return v.validateJWKS(ctx, token, state, params)
}

func (v *Validator) validateJWKS(ctx context.Context, token string, state *issuerState, params validateParams) (*IDToken, error) {
	keySet, err := state.cache.Get(ctx, state.cfg.JWKSURL)
	if err != nil {
		return nil, newError(ErrCodeJWKSUnavailable, err)
	}

	decoded, err := decodeKeySet([]byte(token), keySet)
	if err != nil {
		return nil, err
	}

	verifyOpts := []VerifyOption{WithAcceptableSkew(state.cfg.ClockSkew)}
	if params.nonce != "" {
		verifyOpts = append(verifyOpts, WithNonce(params.nonce))
	}
	if err := decoded.Verify(state.cfg.Issuer, state.cfg.Audience, verifyOpts...); err != nil {
		return nil, err
	}

	if !state.subjectAllowed(decoded.Subject) {
		return nil, newError(ErrCodeSubjectMismatch, fmt.Errorf("subject %q not allowed", decoded.Subject))
	}
	return decoded, nil
}

func (v *Validator) validateGoogle(ctx context.Context, token string, state *issuerState, params validateParams) (*IDToken, error) {
	validateCtx := ctx
	if state.cfg.HTTPTimeout > 0 {
		var cancel context.CancelFunc
		validateCtx, cancel = context.WithTimeout(ctx, state.cfg.HTTPTimeout)
		defer cancel()
	}

	payload, err := googleValidate(validateCtx, token, state.cfg.Audience)
	if err != nil {
		return nil, mapGoogleError(err)
	}
	if state.cfg.Issuer != "" && !strings.EqualFold(payload.Issuer, state.cfg.Issuer) {
		return nil, newError(ErrCodeInvalidIssuer, fmt.Errorf("issuer mismatch: got %s, want %s", payload.Issuer, state.cfg.Issuer))
	}

	decoded := tokenFromGooglePayload(payload)
	if decoded.Nonce != params.nonce {
		return nil, newError(ErrCodeInvalidNonce, errors.New("nonce mismatch"))
	}

	if !state.subjectAllowed(decoded.Subject) {
		return nil, newError(ErrCodeSubjectMismatch, fmt.Errorf("subject %q not allowed", decoded.Subject))
	}
	return decoded, nil
}

// tokenFromGooglePayload maps a validated Google payload onto the claim
// model, carrying the optional claims along. Google signs its ID tokens with
// RS256, which fixes the digest used for the binding-hash checks.
func tokenFromGooglePayload(payload *idtoken.Payload) *IDToken {
	decoded := &IDToken{
		Issuer:     payload.Issuer,
		Subject:    payload.Subject,
		Audience:   []string{payload.Audience},
		Expiration: time.Unix(payload.Expires, 0).UTC(),
		IssuedAt:   time.Unix(payload.IssuedAt, 0).UTC(),
		alg:        jwa.RS256,
	}
	if nonce, ok := payload.Claims["nonce"].(string); ok {
		decoded.Nonce = nonce
	}
	if acr, ok := payload.Claims["acr"].(string); ok {
		decoded.AuthContextClass = acr
	}
	if authTime, ok := payload.Claims["auth_time"].(float64); ok && authTime != 0 {
		decoded.AuthTime = time.Unix(int64(authTime), 0).UTC()
	}
	if atHash, ok := payload.Claims["at_hash"].(string); ok {
		decoded.AccessTokenHash = atHash
	}
	if cHash, ok := payload.Claims["c_hash"].(string); ok {
		decoded.CodeHash = cHash
	}
	return decoded
}

func (v *Validator) lookupIssuer(name string) (*issuerState, bool) {
	if name == "" {
		name = v.defaultIssuer
	}
	if name == "" {
		return nil, false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	state, ok := v.issuers[name]
	return state, ok
}

func (s *issuerState) subjectAllowed(subject string) bool {
	if len(s.allowedSubjects) == 0 {
		return true
	}
	_, ok := s.allowedSubjects[strings.ToLower(subject)]
	return ok
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

func mapGoogleError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "audience provided does not match"):
		return newError(ErrCodeInvalidAudience, err)
	case strings.Contains(msg, "token expired"):
		return newError(ErrCodeExpired, err)
	case strings.Contains(msg, "could not find matching cert"):
		return newError(ErrCodeInvalidToken, err)
	case strings.Contains(msg, "invalid token"):
		return newError(ErrCodeInvalidToken, err)
	case strings.Contains(msg, "unable to decode JWT"):
		return newError(ErrCodeInvalidToken, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(ErrCodeJWKSUnavailable, err)
	}
	return newError(ErrCodeInvalidToken, err)
}
