// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"errors"
	"fmt"
	"strings"
)

// twitterEmailDomain completes the synthetic address of Twitter/X accounts,
// which expose no email.
const twitterEmailDomain = "@twitter.user"

// RawProfile is a provider's user record before normalization.
// Only the variants declared in this package implement it.
type RawProfile interface {
	provider() Provider
}

// GoogleProfile holds the verified claims of a Google id_token.
type GoogleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (GoogleProfile) provider() Provider { return ProviderGoogle }

// TwitterProfile is the body of GET /2/users/me.
type TwitterProfile struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

func (TwitterProfile) provider() Provider { return ProviderTwitter }

// NormalizedProfile is the canonical shape sent to the backend upsert.
type NormalizedProfile struct {
	Provider Provider
	// ProviderUserID is the provider's own account ID, kept for logging only.
	ProviderUserID string
	Email          string
	Name           string
}

/*
Normalize maps a provider profile onto {email, name}.

Google supplies both directly, but only a verified address is accepted: the
backend upsert matches accounts by email. Twitter/X supplies no email, so one
is synthesized from the username exactly as the provider returns it ("jdoe"
becomes "jdoe@twitter.user").

Returns:
  - NormalizedProfile
  - error: If the profile lacks the fields needed to identify the user
*/
func Normalize(raw RawProfile) (NormalizedProfile, error) {
	switch profile := raw.(type) {
	case GoogleProfile:
		email := strings.TrimSpace(profile.Email)
		if email == "" {
			return NormalizedProfile{}, errors.New("google profile has no email")
		}
		if !profile.EmailVerified {
			return NormalizedProfile{}, errors.New("google email is not verified")
		}
		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name = localPart(email)
		}
		return NormalizedProfile{Provider: ProviderGoogle, ProviderUserID: profile.Subject, Email: email, Name: name}, nil

	case TwitterProfile:
		username := strings.TrimSpace(profile.Data.Username)
		if username == "" {
			return NormalizedProfile{}, errors.New("twitter profile has no username")
		}
		name := strings.TrimSpace(profile.Data.Name)
		if name == "" {
			name = username
		}
		return NormalizedProfile{
			Provider:       ProviderTwitter,
			ProviderUserID: profile.Data.ID,
			Email:          username + twitterEmailDomain,
			Name:           name,
		}, nil

	default:
		return NormalizedProfile{}, fmt.Errorf("unsupported profile %T", raw)
	}
}
