package inspect

import (
	"testing"

	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeListsEntriesInOrder(t *testing.T) {
	data := makeZip(t, files("assets/", "assets/sprite.png", "index.html")...)

	a, err := Decode("demo.zip", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"assets/", "assets/sprite.png", "index.html"}, a.Entries())
	assert.Equal(t, []string{"assets/sprite.png", "index.html"}, a.Files())
	assert.True(t, a.IsDir("assets/"))
	assert.False(t, a.Has("assets/"))
	assert.Equal(t, int64(len(data)), a.Size)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("broken.zip", []byte("not a zip"))
	assert.ErrorIs(t, err, faults.ErrArchiveDecode)
}

func TestReadZstdEntry(t *testing.T) {
	data := makeZip(t,
		entry{name: "c3runtime.js", body: "self.runtime = 1;", zstd: true},
		entry{name: "index.html", body: "<html></html>"},
	)

	a, err := Decode("game.zip", data)
	require.NoError(t, err)

	got, err := a.Read("c3runtime.js")
	require.NoError(t, err)
	assert.Equal(t, "self.runtime = 1;", string(got))
}

func TestReadMissingEntry(t *testing.T) {
	a, err := Decode("demo.zip", makeZip(t, files("index.html")...))
	require.NoError(t, err)

	_, err = a.Read("missing.js")
	assert.ErrorIs(t, err, faults.ErrEntryNotFound)
}
