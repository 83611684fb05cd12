// Package tokens generates and hashes the opaque secrets handed to clients:
// authorization codes, access and refresh tokens and McpToken secrets.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Lengths of the generated secrets.
const (
	CodeLength   = 32
	TokenLength  = 64
	SecretLength = 64
)

// GenerateSecureToken returns n characters drawn uniformly from [A-Za-z0-9].
func GenerateSecureToken(n int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}

// HashToken returns the lowercase hex SHA-256 of token. Only hashes are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Prefix returns the first characters of a hash for log correlation.
func Prefix(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}
