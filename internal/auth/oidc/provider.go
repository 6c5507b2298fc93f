// Package oidc wraps OpenID Connect login for FamilyVault: discovery, the
// authorization-code exchange, and ID-token verification. Any spec-compliant
// identity provider works; differences are absorbed by configuration.
package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/familyvault/familyvault/internal/config"
	"golang.org/x/oauth2"
)

// OIDCProvider bundles the discovered provider, its token verifier, and the
// oauth2 client configuration.
type OIDCProvider struct {
	verifier *oidc.IDTokenVerifier
	config   *oauth2.Config
	provider *oidc.Provider
}

// NewOIDCProvider runs discovery with a background context.
func NewOIDCProvider(cfg *config.OIDCConfig) (*OIDCProvider, error) {
	return NewOIDCProviderWithContext(context.Background(), cfg)
}

// NewOIDCProviderWithContext runs discovery against the configured issuer.
// The context bounds the discovery HTTP request.
func NewOIDCProviderWithContext(ctx context.Context, cfg *config.OIDCConfig) (*OIDCProvider, error) {
	switch {
	case !cfg.Enabled:
		return nil, errors.New("OIDC is not enabled")
	case cfg.IssuerURL == "":
		return nil, errors.New("OIDC issuer URL is required")
	case cfg.ClientID == "":
		return nil, errors.New("OIDC client ID is required")
	case cfg.ClientSecret == "":
		return nil, errors.New("OIDC client secret is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCProvider{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       cfg.Scopes,
		},
	}, nil
}

// GetAuthURL returns the authorization URL carrying the given state.
func (p *OIDCProvider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// GetEndSessionEndpoint returns the provider's end_session_endpoint, or ""
// when the discovery document does not advertise one.
func (p *OIDCProvider) GetEndSessionEndpoint() string {
	var doc struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := p.provider.Claims(&doc); err != nil {
		return ""
	}
	return doc.EndSessionEndpoint
}

// ExchangeCode trades an authorization code for the provider's token set.
func (p *OIDCProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}

// VerifyIDToken checks the raw ID token's signature, issuer, and audience.
func (p *OIDCProvider) VerifyIDToken(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	return idToken, nil
}

// ExtractUserInfo pulls the identity claims used to find or create the user.
// sub and email are mandatory; a missing name falls back to the email.
func (p *OIDCProvider) ExtractUserInfo(idToken *oidc.IDToken) (sub, email, name string, err error) {
	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", "", "", fmt.Errorf("failed to parse ID token claims: %w", err)
	}

	if claims.Sub == "" {
		return "", "", "", errors.New("ID token missing 'sub' claim")
	}
	if claims.Email == "" {
		return "", "", "", errors.New("ID token missing 'email' claim")
	}
	if claims.Name == "" {
		claims.Name = claims.Email
	}

	return claims.Sub, claims.Email, claims.Name, nil
}
