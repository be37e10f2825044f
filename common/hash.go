package common

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mr-tron/base58"
)

// shortIDBytes is how much of a digest ShortID keeps.
const shortIDBytes = 8

// Hash returns the lowercase hex SHA-256 digest of data. Block ids and body hashes
// are both computed with it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortID renders a hex digest as a short base58 string for log lines.
// Input that is not hex is returned as is.
func ShortID(id string) string {
	raw, err := hex.DecodeString(id)
	if err != nil || len(raw) == 0 {
		return id
	}
	if len(raw) > shortIDBytes {
		raw = raw[:shortIDBytes]
	}
	return base58.Encode(raw)
}

// IsHashHex reports whether s looks like a digest produced by Hash.
func IsHashHex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
