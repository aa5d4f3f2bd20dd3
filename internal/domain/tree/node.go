package tree

import (
	"sort"
	"strings"
)

// Sentinel names with meaning to the browser
const (
	PasswordFile = "_password.txt"
	ArchiveExt   = ".zip"
	IconSuffix   = "_icon.png"
)

var bannerNames = []string{"banner.png", "banner.gif"}

// Node is one segment of the repository namespace. Keys of Children are raw
// listing segments, still URL-encoded.
type Node struct {
	Children map[string]*Node
	Dir      bool
}

// NewDir returns an empty directory node
func NewDir() *Node {
	return &Node{Children: make(map[string]*Node), Dir: true}
}

// NewFile returns a leaf node
func NewFile() *Node {
	return &Node{Children: make(map[string]*Node)}
}

// Has reports whether name is a direct child
func (n *Node) Has(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.Children[name]
	return ok
}

// Names returns the child names in lexicographic order
func (n *Node) Names() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Segments splits a repository path, dropping empty parts
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Lookup returns the node at path, or nil
func Lookup(root *Node, path string) *Node {
	node := root
	for _, part := range Segments(path) {
		if node == nil {
			return nil
		}
		node = node.Children[part]
	}
	return node
}

// Dir returns the directory part of path including its trailing slash
func Dir(path string) string {
	return path[:strings.LastIndex(path, "/")+1]
}

// Base returns the last segment of path
func Base(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// FindSibling looks for name in the directory holding path and returns the
// sibling's repository path
func FindSibling(root *Node, path, name string) (string, bool) {
	parts := Segments(path)
	if len(parts) == 0 {
		return "", false
	}

	node := root
	for _, part := range parts[:len(parts)-1] {
		node = node.Children[part]
		if node == nil {
			return "", false
		}
	}

	if !node.Has(name) {
		return "", false
	}
	return Dir(path) + name, true
}

// Ancestors returns every directory above path, outermost first:
// "games/sub/a.zip" gives ["games", "games/sub"]
func Ancestors(path string) []string {
	parts := Segments(path)
	if len(parts) < 2 {
		return []string{}
	}

	out := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], "/"))
	}
	return out
}

// Banner returns the URL of the root banner image, preferring PNG
func Banner(root *Node, baseURL string) string {
	for _, name := range bannerNames {
		if root.Has(name) {
			return baseURL + name
		}
	}
	return ""
}

// Stats counts files and directories below a node
type Stats struct {
	Files int `json:"files"`
	Dirs  int `json:"dirs"`
}

// Count walks the tree under root, not counting root itself
func Count(root *Node) Stats {
	var s Stats
	for _, child := range root.Children {
		if child.Dir {
			s.Dirs++
		} else {
			s.Files++
		}
		sub := Count(child)
		s.Files += sub.Files
		s.Dirs += sub.Dirs
	}
	return s
}

// IsArchive reports whether a segment names an archive
func IsArchive(name string) bool {
	return strings.HasSuffix(name, ArchiveExt)
}
