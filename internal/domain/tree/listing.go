package tree

import (
	"html"
	"regexp"
	"strings"
)

// Directory index pages come from a fixed generator, so a pattern over
// anchors is enough.
var anchorPattern = regexp.MustCompile(`(?i)<a\s+(?:[^>]*?\s)?href="([^"]*)"`)

// Link is one child entry found in a listing page
type Link struct {
	Href string
	Name string
	Dir  bool
}

// ParseListing extracts the child entries of a directory index page
func ParseListing(markup string) []Link {
	matches := anchorPattern.FindAllStringSubmatch(markup, -1)
	links := make([]Link, 0, len(matches))

	for _, m := range matches {
		href := html.UnescapeString(m[1])
		if skipHref(href) {
			continue
		}

		dir := strings.HasSuffix(href, "/") || !strings.Contains(href, ".")
		name := strings.TrimSuffix(href, "/")
		if name == "" {
			continue
		}
		links = append(links, Link{Href: href, Name: name, Dir: dir})
	}
	return links
}

// skipHref drops parent, query, rooted, scheme and current-directory links
func skipHref(href string) bool {
	switch {
	case href == "", href == ".", href == "./", href == "..":
		return true
	case strings.HasPrefix(href, "../"):
		return true
	case strings.HasPrefix(href, "?"), strings.HasPrefix(href, "/"), strings.HasPrefix(href, "#"):
		return true
	case strings.Contains(href, ":"):
		return true
	}
	return false
}
