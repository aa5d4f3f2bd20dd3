package tree

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/browserpike/backend/internal/shared/faults"
	"go.uber.org/zap"
)

// CrawlRecorder receives one event per build
type CrawlRecorder interface {
	RecordCrawl(duration time.Duration, files, dirs int, failed bool)
}

// Snapshot is one completed build of the repository tree
type Snapshot struct {
	Root    *Node
	BaseURL string
	Banner  string
	Stats   Stats
	Failed  []string
	Err     error
	Built   time.Time
}

// Unavailable reports a build whose root listing failed
func (s *Snapshot) Unavailable() bool {
	return s.Err != nil && len(s.Failed) == 0
}

// CatalogOptions tunes crawling
type CatalogOptions struct {
	Recorder CrawlRecorder
	Logger   *zap.Logger

	// CrawlTimeout bounds one full crawl; zero means no bound
	CrawlTimeout time.Duration

	// RetryAfter is how long an unavailable root is served before Current
	// crawls again; Reload always crawls
	RetryAfter time.Duration
}

// Catalog owns the current tree. Readers always see a complete snapshot;
// Reload swaps in a new one when the crawl finishes.
type Catalog struct {
	builder *Builder
	baseURL string
	opts    CatalogOptions

	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serialises crawls
}

// NewCatalog creates a catalog for the repository at baseURL
func NewCatalog(builder *Builder, baseURL string, opts CatalogOptions) *Catalog {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Catalog{builder: builder, baseURL: baseURL, opts: opts}
}

// Current returns the latest snapshot. The tree is built on first use; an
// unavailable root is crawled again once RetryAfter has passed.
func (c *Catalog) Current(ctx context.Context) *Snapshot {
	if s := c.current.Load(); c.fresh(s) {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.current.Load(); c.fresh(s) {
		return s
	}
	return c.crawlLocked(ctx)
}

func (c *Catalog) fresh(s *Snapshot) bool {
	if s == nil {
		return false
	}
	return !s.Unavailable() || time.Since(s.Built) < c.opts.RetryAfter
}

// Peek returns the latest snapshot without building, nil before the first build
func (c *Catalog) Peek() *Snapshot {
	return c.current.Load()
}

// Reload rebuilds the tree and replaces the current snapshot
func (c *Catalog) Reload(ctx context.Context) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.crawlLocked(ctx)
}

// crawlLocked builds a snapshot shared by every visitor, so the crawl is
// detached from the triggering request and bounded by CrawlTimeout alone.
func (c *Catalog) crawlLocked(ctx context.Context) *Snapshot {
	ctx = context.WithoutCancel(ctx)
	if c.opts.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CrawlTimeout)
		defer cancel()
	}

	start := time.Now()
	root, err := c.builder.Build(ctx, c.baseURL)

	s := &Snapshot{
		Root:    root,
		BaseURL: c.baseURL,
		Banner:  Banner(root, c.baseURL),
		Stats:   Count(root),
		Err:     err,
		Built:   time.Now(),
	}
	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		s.Failed = crawlErr.Paths()
	}

	if c.opts.Recorder != nil {
		c.opts.Recorder.RecordCrawl(time.Since(start), s.Stats.Files, s.Stats.Dirs, err != nil)
	}

	// A crawl cut short by its budget is never published as a partial tree
	if err != nil && ctx.Err() != nil {
		c.opts.Logger.Warn("crawl ran out of time",
			zap.String("base", c.baseURL),
			zap.Duration("timeout", c.opts.CrawlTimeout),
			zap.Int("unvisited", len(s.Failed)),
		)
		if prev := c.current.Load(); prev != nil && !prev.Unavailable() {
			return prev
		}
		s = &Snapshot{
			Root:    NewDir(),
			BaseURL: c.baseURL,
			Err:     faults.New(faults.KindTimeout, "tree.crawl", c.baseURL, ctx.Err()),
			Built:   s.Built,
		}
	}

	c.current.Store(s)
	return s
}
