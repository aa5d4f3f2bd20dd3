package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash returns the hex SHA-256 digest of data
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ETag returns a strong entity tag for data
func ETag(data []byte) string {
	return `"` + Hash(data)[:32] + `"`
}

// MatchETag reports whether an If-None-Match header value names etag
func MatchETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
