package tree

import (
	"context"
	"testing"
	"time"

	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type crawls struct {
	n      int
	failed []bool
}

func (c *crawls) RecordCrawl(_ time.Duration, _, _ int, failed bool) {
	c.n++
	c.failed = append(c.failed, failed)
}

func TestCatalogBuildsOnceAndReloads(t *testing.T) {
	lister := &fakeLister{pages: map[string]string{
		base:            `<a href="games/">games/</a><a href="banner.png">banner.png</a>`,
		base + "games/": `<a href="a.zip">a.zip</a>`,
	}}
	rec := &crawls{}
	cat := NewCatalog(NewBuilder(lister, nil, 0), base, CatalogOptions{Recorder: rec})

	first := cat.Current(context.Background())
	require.NoError(t, first.Err)
	assert.Equal(t, base+"banner.png", first.Banner)
	assert.Equal(t, Stats{Files: 2, Dirs: 1}, first.Stats)
	assert.Same(t, first, cat.Current(context.Background()))

	lister.pages[base+"games/"] = `<a href="a.zip">a.zip</a><a href="b.zip">b.zip</a>`
	second := cat.Reload(context.Background())
	assert.NotSame(t, first, second)
	assert.NotNil(t, Lookup(second.Root, "games/b.zip"))
	assert.Same(t, second, cat.Current(context.Background()))
	assert.Equal(t, 2, rec.n)
}

func TestCatalogRecordsFailedDirectories(t *testing.T) {
	lister := &fakeLister{pages: map[string]string{
		base:         `<a href="ok/">ok/</a><a href="broken/">broken/</a>`,
		base + "ok/": `<a href="a.zip">a.zip</a>`,
	}}
	rec := &crawls{}
	cat := NewCatalog(NewBuilder(lister, nil, 0), base, CatalogOptions{Recorder: rec})

	s := cat.Current(context.Background())
	assert.ErrorIs(t, s.Err, faults.ErrListingUnavailable)
	assert.Equal(t, []string{"broken"}, s.Failed)
	assert.Equal(t, []bool{true}, rec.failed)
}

func TestCatalogRetriesUnavailableRoot(t *testing.T) {
	lister := &fakeLister{pages: map[string]string{}}
	cat := NewCatalog(NewBuilder(lister, nil, 0), base, CatalogOptions{})

	s := cat.Current(context.Background())
	assert.True(t, s.Unavailable())
	assert.Empty(t, s.Root.Children)

	lister.pages[base] = `<a href="a.zip">a.zip</a>`
	s = cat.Current(context.Background())
	assert.False(t, s.Unavailable())
	assert.NotNil(t, Lookup(s.Root, "a.zip"))
}

func TestCatalogBacksOffUnavailableRoot(t *testing.T) {
	lister := &fakeLister{pages: map[string]string{}}
	cat := NewCatalog(NewBuilder(lister, nil, 0), base, CatalogOptions{RetryAfter: time.Hour})

	first := cat.Current(context.Background())
	require.True(t, first.Unavailable())

	lister.pages[base] = `<a href="a.zip">a.zip</a>`
	assert.Same(t, first, cat.Current(context.Background()))
	assert.Len(t, lister.calls, 1)

	s := cat.Reload(context.Background())
	assert.False(t, s.Unavailable())
	assert.NotNil(t, Lookup(s.Root, "a.zip"))
}

// cancelAfterRoot ends the caller's context once the root page is served
type cancelAfterRoot struct {
	*fakeLister
	cancel context.CancelFunc
}

func (l *cancelAfterRoot) Listing(ctx context.Context, url string) (string, error) {
	page, err := l.fakeLister.Listing(ctx, url)
	if url == base {
		l.cancel()
	}
	return page, err
}

func TestCatalogCrawlOutlivesCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lister := &cancelAfterRoot{
		fakeLister: &fakeLister{pages: map[string]string{
			base:            `<a href="games/">games/</a>`,
			base + "games/": `<a href="a.zip">a.zip</a>`,
		}},
		cancel: cancel,
	}
	cat := NewCatalog(NewBuilder(lister, nil, 0), base, CatalogOptions{})

	first := cat.Current(ctx)
	require.NoError(t, first.Err)
	assert.Empty(t, first.Failed)

	second := cat.Current(context.Background())
	assert.Same(t, first, second)
	assert.NotNil(t, Lookup(second.Root, "games/a.zip"))
}

// stallingLister serves the pages it knows and blocks on the rest until
// the crawl context ends
type stallingLister struct {
	*fakeLister
}

func (l *stallingLister) Listing(ctx context.Context, url string) (string, error) {
	l.mu.Lock()
	page, ok := l.pages[url]
	l.mu.Unlock()
	if ok {
		return page, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCatalogDiscardsTimedOutCrawl(t *testing.T) {
	lister := &stallingLister{&fakeLister{pages: map[string]string{
		base:            `<a href="games/">games/</a><a href="slow/">slow/</a>`,
		base + "games/": `<a href="a.zip">a.zip</a>`,
	}}}
	cat := NewCatalog(NewBuilder(lister, nil, 0), base, CatalogOptions{CrawlTimeout: 20 * time.Millisecond})

	t.Run("first crawl is unavailable", func(t *testing.T) {
		s := cat.Current(context.Background())
		assert.True(t, s.Unavailable())
		assert.ErrorIs(t, s.Err, faults.ErrTimeout)
		assert.Empty(t, s.Root.Children)
	})

	t.Run("complete crawl is published", func(t *testing.T) {
		lister.mu.Lock()
		lister.pages[base+"slow/"] = `<a href="s.zip">s.zip</a>`
		lister.mu.Unlock()

		s := cat.Current(context.Background())
		require.NoError(t, s.Err)
		assert.NotNil(t, Lookup(s.Root, "slow/s.zip"))
	})

	t.Run("timed out reload keeps the previous tree", func(t *testing.T) {
		prev := cat.Peek()
		lister.mu.Lock()
		delete(lister.pages, base+"slow/")
		lister.mu.Unlock()

		s := cat.Reload(context.Background())
		assert.Same(t, prev, s)
		assert.Same(t, prev, cat.Peek())
		assert.NotNil(t, Lookup(s.Root, "games/a.zip"))
	})
}
