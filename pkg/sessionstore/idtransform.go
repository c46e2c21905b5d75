package sessionstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashID returns an id transform that stores sessions under the hex
// HMAC-SHA256 of their id, so raw session ids never reach the backend.
func HashID(secret string) func(string) string {
	key := []byte(secret)
	return func(id string) string {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(id))
		return hex.EncodeToString(mac.Sum(nil))
	}
}

// PrefixID returns an id transform that namespaces ids with prefix.
func PrefixID(prefix string) func(string) string {
	return func(id string) string {
		return prefix + id
	}
}
