// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashJSON returns the sha256 of the JSON encoding of v. encoding/json sorts map keys,
// so equal maps hash equally.
func HashJSON(v interface{}) ([32]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return [32]byte{}, fmt.Errorf("failed to encode for hashing: %w", err)
	}
	return sha256.Sum256(b), nil
}

func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func ValidateHash(data []byte, expectedHash string) bool {
	return HashHex(data) == expectedHash
}
