// Package paths normalizes repository-relative paths received from clients.
//
// A repository path names a node of the crawled tree, e.g. "games/a.zip" or
// "games/vault". Clean gives every handler the same shape: no surrounding
// slashes, no empty segments, and no dot segments that could step outside the
// content root once the path is resolved against the base URL.
package paths

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLength bounds a repository path in bytes
const MaxLength = 1024

var (
	ErrEmpty   = errors.New("path is required")
	ErrTooLong = fmt.Errorf("path exceeds %d bytes", MaxLength)
)

// Clean returns raw as a canonical repository path
func Clean(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > MaxLength {
		return "", ErrTooLong
	}
	if !utf8.ValidString(raw) {
		return "", errors.New("path is not valid UTF-8")
	}
	if strings.ContainsAny(raw, "\x00\\") {
		return "", errors.New("path contains a forbidden character")
	}

	parts := strings.Split(raw, "/")
	out := parts[:0]
	for _, p := range parts {
		switch p {
		case "":
			continue
		case ".", "..":
			return "", fmt.Errorf("path segment %q is not allowed", p)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return "", ErrEmpty
	}
	return strings.Join(out, "/"), nil
}
