// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/taibuivan/finscope/internal/platform/constants"
	"github.com/taibuivan/finscope/internal/platform/sec"
)

// oauthStateCookieName binds an OAuth attempt to the browser that started it.
const oauthStateCookieName = "finscope_oauth_state"

// CookieSigner seals session IDs into cookie values. [*sec.SessionSigner] satisfies it.
type CookieSigner interface {
	Sign(sessionID string, expiresAt time.Time) (string, error)
	Verify(raw string) (string, error)
}

var _ CookieSigner = (*sec.SessionSigner)(nil)

// CookieManager issues and reads the signed session cookie.
type CookieManager struct {
	signer CookieSigner
	secure bool
}

// NewCookieManager creates a CookieManager. secure should be true everywhere
// except plain-HTTP development.
func NewCookieManager(signer CookieSigner, secure bool) *CookieManager {
	return &CookieManager{signer: signer, secure: secure}
}

// Issue sets the session cookie for a freshly created session.
func (cookies *CookieManager) Issue(writer http.ResponseWriter, session *Session) error {
	value, err := cookies.signer.Sign(session.ID, session.ExpiresAt)
	if err != nil {
		return err
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   cookies.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie.
func (cookies *CookieManager) Clear(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cookies.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the session ID carried by a valid cookie.
// ok is false when the cookie is absent; err is set when it is present but invalid.
func (cookies *CookieManager) Read(request *http.Request) (sessionID string, ok bool, err error) {
	cookie, cookieErr := request.Cookie(constants.SessionCookieName)
	if cookieErr != nil || cookie.Value == "" {
		return "", false, nil
	}

	sessionID, err = cookies.signer.Verify(cookie.Value)
	if err != nil {
		return "", true, err
	}
	return sessionID, true, nil
}

// setOAuthState remembers the state value in the browser for the callback.
func (cookies *CookieManager) setOAuthState(writer http.ResponseWriter, state string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/auth/oauth",
		MaxAge:   int(OAuthStateTTL / time.Second),
		HttpOnly: true,
		Secure:   cookies.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeOAuthState reads and clears the state cookie.
func (cookies *CookieManager) takeOAuthState(writer http.ResponseWriter, request *http.Request) string {
	http.SetCookie(writer, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/auth/oauth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cookies.secure,
		SameSite: http.SameSiteLaxMode,
	})

	cookie, err := request.Cookie(oauthStateCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
