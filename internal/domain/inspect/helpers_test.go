package inspect

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name string
	body string
	zstd bool
}

func makeZip(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	for _, e := range entries {
		method := zip.Deflate
		if e.zstd {
			method = zstd.ZipMethodWinZip
		}
		f, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		require.NoError(t, err)
		if len(e.name) > 0 && e.name[len(e.name)-1] == '/' {
			continue
		}
		_, err = f.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func files(names ...string) []entry {
	out := make([]entry, len(names))
	for i, n := range names {
		out[i] = entry{name: n, body: "content of " + n}
	}
	return out
}
