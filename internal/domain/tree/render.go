package tree

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ItemType distinguishes rendered entries
type ItemType string

const (
	ItemFolder  ItemType = "folder"
	ItemArchive ItemType = "archive"
)

// Item is one visible entry of the browser tree
type Item struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Display   string   `json:"display"`
	Type      ItemType `json:"type"`
	Protected bool     `json:"protected,omitempty"`
	Unlocked  bool     `json:"unlocked,omitempty"`
	Icon      string   `json:"icon,omitempty"`
	Children  []Item   `json:"children,omitempty"`
}

// Render produces the sorted, filtered view of the tree. Only folders (non
// archive entries with children) and archives are shown; password files and
// platform builds shadowed by a base archive are hidden. unlocked may be nil.
func Render(root *Node, baseURL string, unlocked func(path string) bool) []Item {
	return render(root, baseURL, "", unlocked)
}

func render(node *Node, baseURL, path string, unlocked func(string) bool) []Item {
	items := []Item{}

	for _, key := range node.Names() {
		if key == PasswordFile || shadowedBuild(node, key) {
			continue
		}

		child := node.Children[key]
		current := key
		if path != "" {
			current = path + "/" + key
		}

		isArchive := IsArchive(key)
		isFolder := !isArchive && len(child.Children) > 0
		if !isArchive && !isFolder {
			continue
		}

		item := Item{
			Name:    key,
			Path:    current,
			Display: FormatName(strings.Replace(key, ArchiveExt, "", 1)),
		}

		if isFolder {
			item.Type = ItemFolder
			item.Protected = child.Has(PasswordFile)
			if item.Protected && unlocked != nil {
				item.Unlocked = unlocked(current)
			}
			item.Children = render(child, baseURL, current, unlocked)
		} else {
			item.Type = ItemArchive
			icon := strings.Replace(key, ArchiveExt, IconSuffix, 1)
			if node.Has(icon) {
				item.Icon = baseURL + Dir(current) + icon
			}
		}

		items = append(items, item)
	}
	return items
}

// shadowedBuild reports whether key is a _win/_mac build whose base archive
// sits at the same level
func shadowedBuild(node *Node, key string) bool {
	for _, suffix := range []string{"_win" + ArchiveExt, "_mac" + ArchiveExt} {
		if strings.HasSuffix(key, suffix) {
			return node.Has(strings.TrimSuffix(key, suffix) + ArchiveExt)
		}
	}
	return false
}

// FormatName turns a listing segment into a display name: URL-decoded, a
// space before each capital, first letter upper-cased, runs of whitespace
// collapsed.
func FormatName(name string) string {
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	var b strings.Builder
	b.Grow(len(name) + 8)
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	spaced := b.String()

	if r, size := utf8.DecodeRuneInString(spaced); r != utf8.RuneError {
		spaced = string(unicode.ToUpper(r)) + spaced[size:]
	}
	return strings.Join(strings.Fields(spaced), " ")
}
