package oidcx

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// VerifyAccessTokenHash checks that the token's at_hash claim binds the
// presented access token. The digest is chosen from the algorithm the token
// was signed with, so the token must have come through Sign or a decode
// entry point.
func (t *IDToken) VerifyAccessTokenHash(accessToken string) error {
	return t.verifyBinding("at_hash", t.AccessTokenHash, accessToken)
}

// VerifyCodeHash checks that the token's c_hash claim binds the presented
// authorization code.
func (t *IDToken) VerifyCodeHash(code string) error {
	return t.verifyBinding("c_hash", t.CodeHash, code)
}

func (t *IDToken) verifyBinding(claim, have, credential string) error {
	if have == "" {
		return newError(ErrCodeMissingBinding, fmt.Errorf("token has no %s claim", claim))
	}
	computed, err := halfHash(t.alg, credential)
	if err != nil {
		return err
	}
	if have != computed {
		return newError(ErrCodeBindingMismatch, fmt.Errorf("%s does not match the presented credential", claim))
	}
	return nil
}

// VerifyOAuth2 checks that this ID token was issued alongside the access
// token in an OAuth2 token response.
func (t *IDToken) VerifyOAuth2(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return newError(ErrCodeMissingBinding, errors.New("token response has no access token"))
	}
	return t.VerifyAccessTokenHash(tok.AccessToken)
}

// IDTokenFromOAuth2 extracts the raw id_token field from an OAuth2 token
// response, ready for one of the decode entry points.
func IDTokenFromOAuth2(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token response")
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("token response has no id_token")
	}
	return raw, nil
}
