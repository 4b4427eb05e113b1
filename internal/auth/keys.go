package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// keyLength matches the HS256 block size recommendation.
const keyLength = 32

// DeriveKey expands the configured master secret into a key dedicated to
// one purpose (e.g. "session"). Rotating SESSION_SECRET rotates every
// derived key at once, and a key leaked from one purpose cannot sign for
// another.
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}
	if purpose == "" {
		return nil, errors.New("auth: key purpose is required")
	}

	r := hkdf.New(sha256.New, secret, nil, []byte("portfolio/"+purpose))
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("auth: deriving %s key: %w", purpose, err)
	}
	return key, nil
}
