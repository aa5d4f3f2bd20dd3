package browse

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/browserpike/backend/internal/domain/gate"
	"github.com/browserpike/backend/internal/domain/inspect"
	"github.com/browserpike/backend/internal/domain/sandbox"
	"github.com/browserpike/backend/internal/shared/id"
)

// ErrStaleSelection reports a result for a selection that has been superseded
var ErrStaleSelection = errors.New("selection superseded")

// Theme is the visitor's colour scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme validates a theme name
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("unknown theme %q", s)
	}
}

// Releaser drops sandbox bundles
type Releaser interface {
	Release(bundleID id.BundleID, reason string) bool
}

// Context is one visitor's browsing state: unlocked folders, theme, the
// current selection and the bundles it owns.
//
// Selections are generation-counted. A handler calls Begin before the slow
// part of a selection and Commit afterwards; if another Begin happened in
// between, the older result is discarded.
type Context struct {
	ID string

	releaser Releaser

	mu        sync.Mutex
	access    *gate.AccessState
	theme     Theme
	gen       uint64
	selection *inspect.Result
	bundles   []id.BundleID
	lastSeen  time.Time
}

func newContext(sessionID string, releaser Releaser, now time.Time) *Context {
	return &Context{
		ID:       sessionID,
		access:   gate.NewAccessState(),
		releaser: releaser,
		theme:    ThemeDark,
		lastSeen: now,
	}
}

// Access returns the visitor's unlocked folders
func (c *Context) Access() *gate.AccessState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

// Theme returns the current theme
func (c *Context) Theme() Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theme
}

// SetTheme changes the theme
func (c *Context) SetTheme(t Theme) {
	c.mu.Lock()
	c.theme = t
	c.mu.Unlock()
}

// Begin starts a selection and returns its generation
func (c *Context) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen
}

// Generation returns the newest generation
func (c *Context) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Commit makes res the current selection if gen is still the newest
// generation. Bundles owned by the previous selection are released.
func (c *Context) Commit(gen uint64, res *inspect.Result) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrStaleSelection
	}
	old := c.bundles
	c.bundles = nil
	c.selection = res
	c.mu.Unlock()

	c.release(old, sandbox.ReasonSelection)
	return nil
}

// Own attaches a bundle to the selection of generation gen. A bundle built
// for a superseded selection is released immediately.
func (c *Context) Own(gen uint64, bundleID id.BundleID) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.release([]id.BundleID{bundleID}, sandbox.ReasonSelection)
		return ErrStaleSelection
	}
	c.bundles = append(c.bundles, bundleID)
	c.mu.Unlock()
	return nil
}

// Disown forgets a bundle the visitor released explicitly
func (c *Context) Disown(bundleID id.BundleID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range c.bundles {
		if b == bundleID {
			c.bundles = append(c.bundles[:i], c.bundles[i+1:]...)
			return true
		}
	}
	return false
}

// Owns reports whether the current selection holds bundleID
func (c *Context) Owns(bundleID id.BundleID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.bundles {
		if b == bundleID {
			return true
		}
	}
	return false
}

// Selection returns the current inspection, nil when nothing is selected
func (c *Context) Selection() *inspect.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// ClearSelection drops the selection and its bundles. In-flight selections
// become stale.
func (c *Context) ClearSelection() {
	c.mu.Lock()
	c.gen++
	old := c.bundles
	c.bundles = nil
	c.selection = nil
	c.mu.Unlock()

	c.release(old, sandbox.ReasonSelection)
}

// Reset returns the context to a fresh visit: selection, bundles and
// unlocked folders are dropped, the theme is kept
func (c *Context) Reset() {
	c.mu.Lock()
	c.gen++
	old := c.bundles
	c.bundles = nil
	c.selection = nil
	c.access = gate.NewAccessState()
	c.mu.Unlock()

	c.release(old, sandbox.ReasonSession)
}

// State returns a snapshot for the session endpoint
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		ID:       c.ID,
		Theme:    c.theme,
		Unlocked: c.access.Folders(),
		Bundles:  append([]id.BundleID(nil), c.bundles...),
	}
	if c.selection != nil {
		st.Selection = c.selection.Path
	}
	return st
}

// State is a serialisable view of a Context
type State struct {
	ID        string        `json:"id"`
	Theme     Theme         `json:"theme"`
	Selection string        `json:"selection,omitempty"`
	Unlocked  []string      `json:"unlocked"`
	Bundles   []id.BundleID `json:"bundles"`
}

func (c *Context) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Context) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

func (c *Context) release(bundles []id.BundleID, reason string) {
	if c.releaser == nil {
		return
	}
	for _, b := range bundles {
		c.releaser.Release(b, reason)
	}
}
