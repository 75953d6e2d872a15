package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-catalogue-editor/internal/config"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/token"
	"golang.org/x/oauth2"
)

// OIDCProvider is the identity provider side of the authorization code login.
type OIDCProvider interface {
	AuthCodeURL(ctx context.Context, state, nonce, codeChallenge string) (string, error)
	// Exchange redeems the code and returns the verified identity and the ID token nonce.
	Exchange(ctx context.Context, code, codeVerifier string) (LoginResult, error)
}

type LoginResult struct {
	Identity token.Identity
	Grant    token.Grant
	Nonce    string
}

type OidcConfig struct {
	OidcProvider *oidc.Provider
	OAuth2Config *oauth2.Config
	OidcVerifier *oidc.IDTokenVerifier
}

// discoveryProvider resolves the issuer's discovery document on first use and caches it.
type discoveryProvider struct {
	cfg         config.OIDCConfig
	redirectURL string

	mu     sync.Mutex
	cached *OidcConfig
}

func newDiscoveryProvider(cfg config.OIDCConfig, redirectURL string) *discoveryProvider {
	return &discoveryProvider{cfg: cfg, redirectURL: redirectURL}
}

func (p *discoveryProvider) oidcConfig(ctx context.Context) (OidcConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		return *p.cached, nil
	}

	issuer := p.cfg.GetIssuer()
	if issuer == "" || p.cfg.GetClientID() == "" {
		return OidcConfig{}, fmt.Errorf("%w: AUTH_KEYCLOAK_ISSUER and AUTH_KEYCLOAK_CLIENT_ID must be set", apperrors.ErrNotConfigured)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return OidcConfig{}, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	c := OidcConfig{
		OidcProvider: provider,
		OAuth2Config: &oauth2.Config{
			ClientID:     p.cfg.GetClientID(),
			ClientSecret: p.cfg.GetClientSecret(),
			Endpoint:     provider.Endpoint(),
			RedirectURL:  p.redirectURL,
			Scopes:       p.cfg.GetScopes(),
		},
		OidcVerifier: provider.Verifier(&oidc.Config{ClientID: p.cfg.GetClientID()}),
	}
	p.cached = &c
	return c, nil
}

func (p *discoveryProvider) AuthCodeURL(ctx context.Context, state, nonce, codeChallenge string) (string, error) {
	c, err := p.oidcConfig(ctx)
	if err != nil {
		return "", err
	}
	return c.OAuth2Config.AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

func (p *discoveryProvider) Exchange(ctx context.Context, code, codeVerifier string) (LoginResult, error) {
	c, err := p.oidcConfig(ctx)
	if err != nil {
		return LoginResult{}, err
	}

	oauth2Token, err := c.OAuth2Config.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return LoginResult{}, fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return LoginResult{}, errors.New("no ID token in response")
	}
	idToken, err := c.OidcVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: ID token verification failed: %w", apperrors.ErrInvalidToken, err)
	}

	var claims struct {
		Nonce   string `json:"nonce"`
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return LoginResult{}, fmt.Errorf("failed to extract claims: %w", err)
	}

	expiresIn := int(oauth2Token.ExpiresIn)
	if expiresIn <= 0 && !oauth2Token.Expiry.IsZero() {
		expiresIn = int(time.Until(oauth2Token.Expiry).Seconds())
	}

	return LoginResult{
		Identity: token.Identity{
			Subject: claims.Sub,
			Email:   claims.Email,
			Name:    claims.Name,
			Picture: claims.Picture,
		},
		Grant: token.Grant{
			AccessToken:  oauth2Token.AccessToken,
			RefreshToken: oauth2Token.RefreshToken,
			IDToken:      rawIDToken,
			ExpiresIn:    expiresIn,
		},
		Nonce: claims.Nonce,
	}, nil
}
