package security

import (
	"crypto/rand"
	"encoding/base64"
)

// NewSessionID returns an opaque session identifier of 32 URL-safe symbols.
// The identifier is a pure capability reference: it carries no claims, and
// validity lives in the database row it points at.
func NewSessionID() string {
	return randomToken(24)
}

// NewNonce returns a single-use random value to bind into the ID token.
func NewNonce() string {
	return randomToken(32)
}

// randomToken encodes n bytes from crypto/rand, which never fails, as
// unpadded base64url (4 symbols per 3 bytes).
func randomToken(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
