package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
)

// SecureToken returns n random bytes, hex encoded.
func SecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate token")
	}
	return hex.EncodeToString(b), nil
}
