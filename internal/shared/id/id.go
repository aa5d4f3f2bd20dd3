// Package id generates the identifiers the service hands out.
//
// IDs are prefixed ULIDs ("bnd_01J…", "req_01J…"): sortable by creation time,
// safe inside URL path segments, and readable in logs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// BundleID identifies a sandbox bundle.
type BundleID string

// RequestID identifies an API request.
type RequestID string

const (
	BundlePrefix  = "bnd"
	RequestPrefix = "req"
)

// Generator produces ULIDs from an entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewBundleID generates a new sandbox bundle ID.
func NewBundleID() BundleID {
	return BundleID(Default().GenerateWithPrefix(BundlePrefix))
}

// NewRequestID generates a new request ID.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id BundleID) String() string  { return string(id) }
func (id RequestID) String() string { return string(id) }

// Valid reports whether s is "<prefix>_<ulid>".
func Valid(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.Parse(rest)
	return err == nil
}
