package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()
	assert.NotEqual(t, gen.Generate().String(), gen.Generate().String())
}

func TestTypedIDs(t *testing.T) {
	bundle := NewBundleID()
	req := NewRequestID()

	assert.True(t, strings.HasPrefix(bundle.String(), "bnd_"))
	assert.True(t, strings.HasPrefix(req.String(), "req_"))
	assert.True(t, Valid(bundle.String(), BundlePrefix))
	assert.False(t, Valid(bundle.String(), RequestPrefix))
	assert.False(t, Valid("bnd_not-a-ulid", BundlePrefix))
}

func TestConcurrentGeneration(t *testing.T) {
	const n = 200
	var (
		mu   sync.Mutex
		seen = make(map[BundleID]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := NewBundleID()
			mu.Lock()
			seen[b] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
