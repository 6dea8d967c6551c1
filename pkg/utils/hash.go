package utils

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashBytes returns the hex SHA1 digest of b
func HashBytes(b []byte) string {
	h := sha1.Sum(b)
	return hex.EncodeToString(h[:])
}

// ETag returns a strong entity tag for a response body
func ETag(body []byte) string {
	return `"` + HashBytes(body) + `"`
}
