package inspect

import (
	"net/url"
	"strings"

	"github.com/browserpike/backend/internal/domain/tree"
)

// Asset is a file stored next to an archive
type Asset struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Siblings are the same-directory companions of an archive
type Siblings struct {
	Text    *Asset `json:"text,omitempty"`
	Image   *Asset `json:"image,omitempty"`
	Capx    *Asset `json:"capx,omitempty"`
	C3p     *Asset `json:"c3p,omitempty"`
	Web     *Asset `json:"web,omitempty"`
	Win     *Asset `json:"win,omitempty"`
	Mac     *Asset `json:"mac,omitempty"`
	Icon    *Asset `json:"icon,omitempty"`
	Project *Asset `json:"project,omitempty"`
}

// FindSiblings resolves the companions of the archive at path by exact name
// in the archive's directory. base is the raw archive name without .zip.
func FindSiblings(root *tree.Node, path, base string, resolve func(string) string) Siblings {
	lookup := func(names ...string) *Asset {
		for _, name := range names {
			if p, ok := tree.FindSibling(root, path, name); ok {
				return &Asset{Name: decodeName(name), Path: p, URL: resolve(p)}
			}
		}
		return nil
	}

	s := Siblings{
		Text:  lookup(base + ".txt"),
		Image: lookup(base+".gif", base+".png"),
		Capx:  lookup(base + ".capx"),
		C3p:   lookup(base + ".c3p"),
		Web:   lookup(base + "_web.zip"),
		Win:   lookup(base + "_win.zip"),
		Mac:   lookup(base + "_mac.zip"),
		Icon:  lookup(base + tree.IconSuffix),
	}

	s.Project = s.Capx
	if s.Project == nil {
		s.Project = s.C3p
	}
	return s
}

// ArchiveBase returns the raw archive name at the end of path without the
// first .zip occurrence
func ArchiveBase(path string) string {
	return strings.Replace(tree.Base(path), tree.ArchiveExt, "", 1)
}

func decodeName(name string) string {
	if d, err := url.PathUnescape(name); err == nil {
		return d
	}
	return name
}
