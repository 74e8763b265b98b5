package xems

import (
	"crypto/rand"
	"encoding/base64"
)

const tokenBytes = 24 // 24 bytes of CSPRNG output, comfortably over the 16-byte floor

// newToken mints an unguessable, opaquely-formatted token.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
