package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://repo/content/"

type fakeLister struct {
	mu    sync.Mutex
	pages map[string]string
	fail  map[string]error
	calls []string
}

func (f *fakeLister) Listing(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)

	if err, ok := f.fail[url]; ok {
		return "", err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("GET %s: HTTP 404", url)
	}
	return page, nil
}

func index(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Index</title></head><body><h1>Index</h1><pre>")
	b.WriteString(`<a href="?C=N;O=D">Name</a> <a href="../">Parent Directory</a>` + "\n")
	for _, h := range hrefs {
		fmt.Fprintf(&b, "<a href=%q>%s</a>\n", h, h)
	}
	b.WriteString("</pre></body></html>")
	return b.String()
}

func TestBuildCountsMatchAnchors(t *testing.T) {
	lister := &fakeLister{pages: map[string]string{
		base:                   index("games/", "tools", "banner.png", "readme.txt"),
		base + "games/":         index("a.zip", "a_icon.png", "a_win.zip", "puzzles/"),
		base + "games/puzzles/": index("p.zip", "p.txt"),
		base + "tools/":         index("t.zip"),
	}}

	root, err := NewBuilder(lister, nil, 0).Build(context.Background(), base)
	require.NoError(t, err)

	stats := Count(root)
	assert.Equal(t, 8, stats.Files)
	assert.Equal(t, 3, stats.Dirs)
	assert.True(t, Lookup(root, "games/puzzles").Dir)
	assert.NotNil(t, Lookup(root, "tools/t.zip"))
}

func TestBuildIsSequentialInListingOrder(t *testing.T) {
	lister := &fakeLister{pages: map[string]string{
		base:        index("b/", "a/"),
		base + "b/": index("x.zip"),
		base + "a/": index("y.zip"),
	}}

	_, err := NewBuilder(lister, nil, 0).Build(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, []string{base, base + "b/", base + "a/"}, lister.calls)
}

func TestBuildRootFailure(t *testing.T) {
	lister := &fakeLister{fail: map[string]error{base: errors.New("connection refused")}}

	root, err := NewBuilder(lister, nil, 0).Build(context.Background(), base)
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrListingUnavailable)
	assert.Empty(t, root.Children)
}

func TestBuildSubdirectoryFailureIsLoud(t *testing.T) {
	lister := &fakeLister{
		pages: map[string]string{
			base:         index("ok/", "broken/", "top.zip"),
			base + "ok/": index("a.zip"),
		},
		fail: map[string]error{base + "broken/": errors.New("HTTP 500")},
	}

	root, err := NewBuilder(lister, nil, 0).Build(context.Background(), base)
	require.Error(t, err)
	assert.Equal(t, faults.KindListingUnavailable, faults.KindOf(err))

	var crawlErr *CrawlError
	require.ErrorAs(t, err, &crawlErr)
	assert.Equal(t, []string{"broken"}, crawlErr.Paths())

	// The rest of the tree is intact and the failed directory is present but empty
	assert.NotNil(t, Lookup(root, "ok/a.zip"))
	assert.NotNil(t, Lookup(root, "top.zip"))
	broken := Lookup(root, "broken")
	require.NotNil(t, broken)
	assert.True(t, broken.Dir)
	assert.Empty(t, broken.Children)
}

func TestBuildTerminatesOnCycles(t *testing.T) {
	// loop/ links back to itself through a dot segment
	lister := &fakeLister{pages: map[string]string{
		base:           index("loop/"),
		base + "loop/": index("again/../", "a.zip"),
	}}

	root, err := NewBuilder(lister, nil, 0).Build(context.Background(), base)
	require.NoError(t, err)
	assert.NotNil(t, Lookup(root, "loop/a.zip"))
	assert.Len(t, lister.calls, 2)
}

func TestBuildRespectsMaxDepth(t *testing.T) {
	lister := &fakeLister{pages: map[string]string{
		base:          index("a/"),
		base + "a/":   index("b/"),
		base + "a/b/": index("deep.zip"),
	}}

	root, err := NewBuilder(lister, nil, 2).Build(context.Background(), base)
	require.NoError(t, err)
	assert.NotNil(t, Lookup(root, "a/b"))
	assert.Nil(t, Lookup(root, "a/b/deep.zip"))
}

func TestBuildStopsWhenContextEnds(t *testing.T) {
	lister := &fakeLister{pages: map[string]string{
		base:        index("a/"),
		base + "a/": index("x.zip"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(lister, nil, 0).Build(ctx, base)
	var crawlErr *CrawlError
	require.ErrorAs(t, err, &crawlErr)
	assert.ErrorIs(t, err, context.Canceled)
}
