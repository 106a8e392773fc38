package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"portfolio-accounts/internal/domain"
)

const (
	googleName   = "google"
	googleIssuer = "https://accounts.google.com"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Issuer defaults to Google's.
	Issuer string
}

// Google signs users in with OpenID Connect and trusts only verified ID
// token claims.
type Google struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogle runs OIDC discovery against the issuer.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = googleIssuer
	}
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("google oidc discovery: %w", err)
	}
	return newGoogle(cfg, p.Endpoint(), p.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

func newGoogle(cfg GoogleConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: verifier,
	}
}

func (g *Google) Name() string { return googleName }

func (g *Google) AuthCodeURL(state, codeChallenge string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (g *Google) Exchange(ctx context.Context, code, codeVerifier string) (*domain.ExternalIdentity, error) {
	tok, err := g.oauth.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, errors.New("google did not return id_token")
	}
	idt, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("google id_token verification: %w", err)
	}
	var c googleClaims
	if err := idt.Claims(&c); err != nil {
		return nil, fmt.Errorf("google id_token claims: %w", err)
	}
	return c.identity()
}

func (c googleClaims) identity() (*domain.ExternalIdentity, error) {
	if c.Email != "" && !c.EmailVerified {
		return nil, fmt.Errorf("%w: google email not verified", domain.ErrInvalidIdentity)
	}
	name := c.Name
	if name == "" {
		name = localPart(c.Email)
	}
	return &domain.ExternalIdentity{
		Provider:    googleName,
		SubjectID:   c.Subject,
		Email:       c.Email,
		DisplayName: name,
		AvatarURL:   c.Picture,
	}, nil
}
