package inspect

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Archive is a zip container decoded in memory. It is read-only and safe for
// concurrent reads.
type Archive struct {
	Path         string
	Size         int64
	LastModified time.Time

	entries []string
	files   map[string]*zip.File
}

// Decode opens data as a zip container. Store, deflate and zstd (method 93)
// entries are readable.
func Decode(path string, data []byte) (*Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, faults.New(faults.KindArchiveDecode, "inspect.decode", path, err)
	}
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	a := &Archive{
		Path:    path,
		Size:    int64(len(data)),
		entries: make([]string, 0, len(r.File)),
		files:   make(map[string]*zip.File, len(r.File)),
	}
	for _, f := range r.File {
		if _, dup := a.files[f.Name]; dup {
			continue
		}
		a.entries = append(a.entries, f.Name)
		a.files[f.Name] = f
	}
	return a, nil
}

// Entries returns every entry name, directories included, in container order
func (a *Archive) Entries() []string {
	out := make([]string, len(a.entries))
	copy(out, a.entries)
	return out
}

// Files returns the non-directory entry names in container order
func (a *Archive) Files() []string {
	out := make([]string, 0, len(a.entries))
	for _, name := range a.entries {
		if !a.IsDir(name) {
			out = append(out, name)
		}
	}
	return out
}

// Has reports whether name is a file entry
func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok && !a.IsDir(name)
}

// IsDir reports whether name is a directory entry
func (a *Archive) IsDir(name string) bool {
	f, ok := a.files[name]
	if !ok {
		return false
	}
	return strings.HasSuffix(name, "/") || f.FileInfo().IsDir()
}

// Read returns the uncompressed bytes of a file entry
func (a *Archive) Read(name string) ([]byte, error) {
	if !a.Has(name) {
		return nil, faults.Newf(faults.KindEntryNotFound, "inspect.read", name, "no entry %q in %s", name, a.Path)
	}

	rc, err := a.files[name].Open()
	if err != nil {
		return nil, faults.New(faults.KindArchiveDecode, "inspect.read", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, faults.New(faults.KindArchiveDecode, "inspect.read", name, fmt.Errorf("read %s: %w", name, err))
	}
	return data, nil
}
