package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// SecretBytes is the entropy of a redemption secret (128 bits).
const SecretBytes = 16

// GenerateCode returns n random bytes as upper-case hex.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateSecret returns a fresh unguessable redemption secret.
func GenerateSecret() (string, error) {
	return GenerateCode(SecretBytes)
}
