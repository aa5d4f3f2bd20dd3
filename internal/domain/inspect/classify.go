package inspect

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PreviewKind tags the selected preview entry
type PreviewKind string

const (
	PreviewNone  PreviewKind = "none"
	PreviewImage PreviewKind = "image"
	PreviewText  PreviewKind = "text"
	PreviewHTML  PreviewKind = "html"
)

// Preview is the single archive-internal entry chosen for the preview slot
type Preview struct {
	Kind  PreviewKind `json:"kind"`
	Entry string      `json:"entry,omitempty"`
}

// Classification is the per-selection view of an archive's contents
type Classification struct {
	Entries     []string `json:"entries"`
	Preview     Preview  `json:"preview"`
	Play        string   `json:"play,omitempty"`
	LivePreview string   `json:"live_preview,omitempty"`
}

const (
	playEntry = "index.html"
	anyImage  = "**/*.{png,jpg,jpeg,gif}"
	anyText   = "**/*.txt"
	anyHTML   = "**/*.html"
)

// Classify applies the selection rules to the entry list. base is the archive
// name without its .zip suffix. Matching is case-insensitive; for each rule
// the first entry in container order wins.
func Classify(entries []string, base string) Classification {
	c := Classification{Entries: entries, Preview: Preview{Kind: PreviewNone}}
	base = strings.ToLower(base)

	// Rule 1: the play entry, tracked independently of the preview slot
	c.Play = find(entries, func(l string) bool { return l == playEntry })

	rules := []struct {
		kind  PreviewKind
		match func(lower, name string) bool
	}{
		// 2: image named after the archive
		{PreviewImage, func(l, _ string) bool { return l == base+".gif" || l == base+".png" }},
		// 3: text named after the archive
		{PreviewText, func(l, _ string) bool { return l == base+".txt" }},
		// 4: conventional notes
		{PreviewText, func(l, _ string) bool { return l == "info.txt" || l == "readme.txt" }},
		// 5, 6: any image, any text
		{PreviewImage, glob(anyImage)},
		{PreviewText, glob(anyText)},
		// 7: the play entry
		{PreviewHTML, func(_, name string) bool { return c.Play != "" && name == c.Play }},
		// 8: any other page
		{PreviewHTML, func(l, name string) bool { return name != c.Play && glob(anyHTML)(l, name) }},
	}

	// A page found by rule 8 is also the live preview when there is no play entry
	c.LivePreview = c.Play
	for i, rule := range rules {
		if e := findPair(entries, rule.match); e != "" {
			c.Preview = Preview{Kind: rule.kind, Entry: e}
			if i == len(rules)-1 && c.LivePreview == "" {
				c.LivePreview = e
			}
			break
		}
	}
	return c
}

func glob(pattern string) func(lower, name string) bool {
	return func(lower, _ string) bool {
		ok, err := doublestar.Match(pattern, lower)
		return err == nil && ok
	}
}

func find(entries []string, match func(lower string) bool) string {
	return findPair(entries, func(l, _ string) bool { return match(l) })
}

func findPair(entries []string, match func(lower, name string) bool) string {
	for _, name := range entries {
		if match(strings.ToLower(name), name) {
			return name
		}
	}
	return ""
}
