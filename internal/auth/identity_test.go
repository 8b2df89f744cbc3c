// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/finscope/internal/auth"
	"github.com/taibuivan/finscope/internal/platform/apperr"
)

/*
TestDecodeCredentialToken verifies claim extraction from backend tokens.
*/
func TestDecodeCredentialToken(t *testing.T) {
	t.Run("valid_token", func(t *testing.T) {
		token := credentialToken(t, jwt.MapClaims{"sub": "42", "email": "a@b.com", "name": "Ada"})

		identity, err := auth.DecodeCredentialToken(token)
		require.NoError(t, err)
		assert.Equal(t, auth.Identity{
			SubjectID:   "42",
			Email:       "a@b.com",
			DisplayName: "Ada",
			Provider:    auth.ProviderCredentials,
		}, identity)
	})

	t.Run("name_falls_back_to_local_part", func(t *testing.T) {
		token := credentialToken(t, jwt.MapClaims{"sub": "42", "email": "ada@b.com"})

		identity, err := auth.DecodeCredentialToken(token)
		require.NoError(t, err)
		assert.Equal(t, "ada", identity.DisplayName)
	})

	t.Run("signature_is_not_checked", func(t *testing.T) {
		token := credentialToken(t, jwt.MapClaims{"sub": "7", "email": "x@y.z"})
		tampered := token[:len(token)-2] + "xx"

		identity, err := auth.DecodeCredentialToken(tampered)
		require.NoError(t, err)
		assert.Equal(t, "7", identity.SubjectID)
	})

	failures := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"opaque_string", "T1"},
		{"missing_email", credentialToken(t, jwt.MapClaims{"sub": "42"})},
		{"missing_sub", credentialToken(t, jwt.MapClaims{"email": "a@b.com"})},
		{"numeric_sub", credentialToken(t, jwt.MapClaims{"sub": 42, "email": "a@b.com"})},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.DecodeCredentialToken(tt.token)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeInvalidToken))
		})
	}
}

/*
TestParseProvider covers the closed provider set.
*/
func TestParseProvider(t *testing.T) {
	tests := []struct {
		raw   string
		want  auth.Provider
		ok    bool
		oauth bool
	}{
		{"google", auth.ProviderGoogle, true, true},
		{"twitter", auth.ProviderTwitter, true, true},
		{"credentials", auth.ProviderCredentials, true, false},
		{"github", "", false, false},
		{"", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := auth.ParseProvider(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.oauth, got.IsOAuth())
		})
	}
}

/*
TestNormalize verifies the canonical profile of each provider variant.
*/
func TestNormalize(t *testing.T) {
	t.Run("google", func(t *testing.T) {
		profile, err := auth.Normalize(auth.GoogleProfile{Subject: "g-1", Email: "ada@gmail.com", EmailVerified: true, Name: "Ada"})
		require.NoError(t, err)
		assert.Equal(t, auth.ProviderGoogle, profile.Provider)
		assert.Equal(t, "ada@gmail.com", profile.Email)
		assert.Equal(t, "Ada", profile.Name)
	})

	t.Run("google_without_email", func(t *testing.T) {
		_, err := auth.Normalize(auth.GoogleProfile{Subject: "g-1", EmailVerified: true})
		assert.Error(t, err)
	})

	t.Run("unverified_email", func(t *testing.T) {
		profile, err := auth.Normalize(auth.GoogleProfile{Subject: "g-1", Email: "victim@corp.com", EmailVerified: false})
		assert.Error(t, err)
		assert.Empty(t, profile.Email)
	})

	t.Run("twitter_synthesizes_email", func(t *testing.T) {
		profile, err := auth.Normalize(twitterProfile("99", "jdoe", "John Doe"))
		require.NoError(t, err)
		assert.Equal(t, auth.ProviderTwitter, profile.Provider)
		assert.Equal(t, "jdoe@twitter.user", profile.Email)
		assert.Equal(t, "John Doe", profile.Name)
		assert.Equal(t, "99", profile.ProviderUserID)
	})

	t.Run("twitter_username_is_kept_verbatim", func(t *testing.T) {
		profile, err := auth.Normalize(twitterProfile("99", "JDoe", ""))
		require.NoError(t, err)
		assert.Equal(t, "JDoe@twitter.user", profile.Email)
		assert.Equal(t, "JDoe", profile.Name)
	})

	t.Run("twitter_without_username", func(t *testing.T) {
		_, err := auth.Normalize(twitterProfile("99", "", "John"))
		assert.Error(t, err)
	})

	t.Run("unknown_variant", func(t *testing.T) {
		_, err := auth.Normalize(nil)
		assert.Error(t, err)
	})
}
