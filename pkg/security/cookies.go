package security

import (
	"net/http"
)

// SessionCookie builds the session cookie. The attribute set is fixed:
// Secure, HttpOnly and SameSite=Strict, nothing else. No Max-Age or Expires:
// the session's lifetime is bounded by its database row, not by the cookie.
func SessionCookie(name, sessionID string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    sessionID,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
