package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewTokenID returns a random v4 UUID for the jti claim.
func NewTokenID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// HashToken returns the hex SHA-256 of token. Allow-lists store only the hash.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
