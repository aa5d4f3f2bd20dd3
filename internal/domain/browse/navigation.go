package browse

import (
	"net/url"
	"strings"
)

// Navigation is what a page URL asks for on load
type Navigation struct {
	Path     string `json:"path"`
	AutoPlay bool   `json:"auto_play"`
	Admin    bool   `json:"admin"`
}

// ParseNavigation reads zip=, play= and admin from a page query. zip= wins
// when both name a path; play= alone also asks for the play entry to start.
func ParseNavigation(q url.Values) Navigation {
	path := q.Get("zip")
	if path == "" {
		path = q.Get("play")
	}
	return Navigation{
		Path:     strings.TrimPrefix(path, "/"),
		AutoPlay: q.Has("play"),
		Admin:    q.Has("admin"),
	}
}

// ShareURL rewrites page so opening it selects path, or plays it when
// playMode is set. Existing query parameters are dropped.
func ShareURL(page, path string, playMode bool) (string, error) {
	u, err := url.Parse(page)
	if err != nil {
		return "", err
	}

	key := "zip"
	if playMode {
		key = "play"
	}
	u.RawQuery = url.Values{key: []string{path}}.Encode()
	return u.String(), nil
}
