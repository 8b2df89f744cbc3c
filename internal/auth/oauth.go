// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// # Provider Contract

// OAuthProvider runs the authorization-code flow of one identity provider.
// Implementations return profile facts only; account upsert and session
// creation happen in [Service].
type OAuthProvider interface {
	// Name returns the provider identifier used in routes and the registry.
	Name() Provider

	// AuthCodeURL returns the consent URL. The caller owns state and the PKCE verifier.
	AuthCodeURL(state, verifier string) string

	// Exchange trades the authorization code for the provider's user profile.
	Exchange(ctx context.Context, code, verifier string) (RawProfile, error)
}

// Registry holds the configured providers.
type Registry struct {
	providers map[Provider]OAuthProvider
}

// NewRegistry registers providers by name. Later duplicates replace earlier ones.
func NewRegistry(list ...OAuthProvider) *Registry {
	providers := make(map[Provider]OAuthProvider, len(list))
	for _, p := range list {
		providers[p.Name()] = p
	}
	return &Registry{providers: providers}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name Provider) (OAuthProvider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names lists the registered providers in a stable order.
func (r *Registry) Names() []Provider {
	names := make([]Provider, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// # Google

const googleIssuer = "https://accounts.google.com"

// GoogleProvider signs users in with Google and reads identity from the
// verified OIDC id_token.
type GoogleProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewGoogleProvider discovers Google's OIDC metadata and builds the provider.
// ctx must outlive the provider: the verifier fetches signing keys with it.
func NewGoogleProvider(ctx context.Context, clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("auth: google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to init google oidc provider: %w", err)
	}

	return &GoogleProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Name implements [OAuthProvider].
func (p *GoogleProvider) Name() Provider { return ProviderGoogle }

// AuthCodeURL implements [OAuthProvider].
func (p *GoogleProvider) AuthCodeURL(state, verifier string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// Exchange implements [OAuthProvider].
func (p *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (RawProfile, error) {
	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google id_token verification failed: %w", err)
	}

	var profile GoogleProfile
	if err := idToken.Claims(&profile); err != nil {
		return nil, fmt.Errorf("google id_token claims parse failed: %w", err)
	}
	if profile.Subject == "" || profile.Email == "" {
		return nil, errors.New("google id_token missing required claims")
	}

	return profile, nil
}

// # Twitter / X

// TwitterEndpoints are the OAuth 2.0 and profile URLs of the X API.
type TwitterEndpoints struct {
	AuthURL    string
	TokenURL   string
	ProfileURL string
}

// DefaultTwitterEndpoints are the production X API endpoints.
var DefaultTwitterEndpoints = TwitterEndpoints{
	AuthURL:    "https://twitter.com/i/oauth2/authorize",
	TokenURL:   "https://api.twitter.com/2/oauth2/token",
	ProfileURL: "https://api.twitter.com/2/users/me",
}

// TwitterProvider signs users in with X (OAuth 2.0 with PKCE) and reads the
// profile from the users/me endpoint.
type TwitterProvider struct {
	oauthConfig *oauth2.Config
	profileURL  string
}

// NewTwitterProvider builds the provider against the given endpoints.
func NewTwitterProvider(clientID, clientSecret, redirectURL string, endpoints TwitterEndpoints) (*TwitterProvider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("auth: twitter oauth config missing required fields")
	}

	return &TwitterProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoints.AuthURL,
				TokenURL:  endpoints.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: []string{"users.read", "tweet.read"},
		},
		profileURL: endpoints.ProfileURL,
	}, nil
}

// Name implements [OAuthProvider].
func (p *TwitterProvider) Name() Provider { return ProviderTwitter }

// AuthCodeURL implements [OAuthProvider].
func (p *TwitterProvider) AuthCodeURL(state, verifier string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange implements [OAuthProvider].
func (p *TwitterProvider) Exchange(ctx context.Context, code, verifier string) (RawProfile, error) {
	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("twitter token exchange failed: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("twitter profile request failed: %w", err)
	}

	response, err := p.oauthConfig.Client(ctx, token).Do(request)
	if err != nil {
		return nil, fmt.Errorf("twitter profile request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter profile request failed: status %d", response.StatusCode)
	}

	var profile TwitterProfile
	if err := json.NewDecoder(io.LimitReader(response.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("twitter profile decode failed: %w", err)
	}
	if profile.Data.Username == "" {
		return nil, errors.New("twitter profile missing username")
	}

	return profile, nil
}
