package faults

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	err := New(KindArchiveFetch, "inspect.fetch", "games/a.zip", errors.New("HTTP 500"))
	wrapped := fmt.Errorf("selection failed: %w", err)

	assert.True(t, errors.Is(wrapped, ErrArchiveFetch))
	assert.False(t, errors.Is(wrapped, ErrArchiveDecode))
	assert.Equal(t, KindArchiveFetch, KindOf(wrapped))
	assert.Contains(t, err.Error(), "games/a.zip")
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestReclassify(t *testing.T) {
	timeout := New(KindTimeout, "remote.get", "http://x", errors.New("deadline"))

	t.Run("timeout stays timeout", func(t *testing.T) {
		err := Reclassify(timeout, KindArchiveFetch, "inspect.fetch", "a.zip")
		assert.Equal(t, KindTimeout, KindOf(err))
	})

	t.Run("other errors take the caller kind", func(t *testing.T) {
		err := Reclassify(errors.New("HTTP 404"), KindDownloadFailed, "download", "a_win.zip")
		assert.Equal(t, KindDownloadFailed, KindOf(err))
	})

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, Reclassify(nil, KindDownloadFailed, "download", ""))
	})
}

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindListingUnavailable, http.StatusBadGateway},
		{KindArchiveDecode, http.StatusUnprocessableEntity},
		{KindEntryNotFound, http.StatusNotFound},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindLocked, http.StatusForbidden},
		{KindUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Status())
		})
	}
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
