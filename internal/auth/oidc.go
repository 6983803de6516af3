package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/marcogenualdo/authgate/internal/config"
	"github.com/marcogenualdo/authgate/internal/httpx"
)

// Provider wraps discovery, the authorization-code exchange, and ID token
// verification for a single OIDC issuer. All provider and library failures
// are mapped into the error taxonomy here; nothing foreign escapes.
type Provider struct {
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

func NewProvider(ctx context.Context, cfg config.OIDCConfig, redirectURL string) (*Provider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  redirectURL,
		Scopes:       cfg.Scopes,
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	return &Provider{
		oauth2Config: oauth2Config,
		verifier:     verifier,
	}, nil
}

// AuthCodeURL builds the authorization URL, binding the CSRF state token and
// the nonce into the request.
func (p *Provider) AuthCodeURL(state, nonce string) string {
	return p.oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange redeems the authorization code for tokens using the server-held
// client secret. Failure here (network, provider rejection) does not reflect
// user input, so it is an internal fault. An empty return means the provider
// answered without an ID token; the caller decides what that means.
func (p *Provider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return "", httpx.OIDCExchange(err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	return rawIDToken, nil
}

// VerifyIDToken checks the ID token's signature and audience, compares its
// nonce against the one persisted when the flow started, and extracts the
// email claim. Any verification failure means the cryptographic chain does
// not check out, which a well-behaved provider never produces. It is treated
// as tampering: logged, never exposed.
func (p *Provider) VerifyIDToken(ctx context.Context, rawIDToken, nonce string) (string, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", httpx.TamperedOIDCLogin(err)
	}

	if idToken.Nonce != nonce {
		return "", httpx.TamperedOIDCLogin(errors.New("nonce does not match login process"))
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", httpx.TamperedOIDCLogin(err)
	}
	return claims.Email, nil
}
