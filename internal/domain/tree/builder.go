package tree

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/browserpike/backend/internal/shared/faults"
	"go.uber.org/zap"
)

// Lister fetches the raw markup of a directory index page
type Lister interface {
	Listing(ctx context.Context, url string) (string, error)
}

// Failure records one subdirectory whose listing could not be read
type Failure struct {
	Path string
	Err  error
}

// CrawlError lists every subdirectory that failed during a build. The tree
// returned alongside it is complete except for those subtrees.
type CrawlError struct {
	Failures []Failure
}

func (e *CrawlError) Error() string {
	paths := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = f.Path
	}
	return fmt.Sprintf("%d directories unavailable: %s", len(e.Failures), strings.Join(paths, ", "))
}

func (e *CrawlError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Paths returns the failed directory paths in crawl order
func (e *CrawlError) Paths() []string {
	paths := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = f.Path
	}
	return paths
}

// Builder crawls directory listings into a Node tree
type Builder struct {
	lister   Lister
	logger   *zap.Logger
	maxDepth int
}

// NewBuilder creates a builder. maxDepth <= 0 means unbounded depth; the
// visited-URL guard still ends any cycle.
func NewBuilder(lister Lister, logger *zap.Logger, maxDepth int) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{lister: lister, logger: logger, maxDepth: maxDepth}
}

type crawl struct {
	base     *url.URL
	visited  map[string]bool
	failures []Failure
}

// Build crawls the repository rooted at baseURL. Subdirectories are fetched
// one at a time in listing order.
//
// If the root listing fails the result is an empty tree and a
// ListingUnavailable error. If only subdirectories fail the partial tree is
// returned with a ListingUnavailable error wrapping a *CrawlError.
func (b *Builder) Build(ctx context.Context, baseURL string) (*Node, error) {
	start := time.Now()
	root := NewDir()

	base, err := url.Parse(baseURL)
	if err != nil {
		return root, faults.New(faults.KindListingUnavailable, "tree.build", baseURL, err)
	}

	markup, err := b.lister.Listing(ctx, base.String())
	if err != nil {
		return NewDir(), faults.New(faults.KindListingUnavailable, "tree.build", baseURL, err)
	}

	c := &crawl{base: base, visited: map[string]bool{base.String(): true}}
	b.fill(ctx, c, root, "", markup, 1)

	stats := Count(root)
	b.logger.Info("tree built",
		zap.String("base", baseURL),
		zap.Int("files", stats.Files),
		zap.Int("dirs", stats.Dirs),
		zap.Int("failed_dirs", len(c.failures)),
		zap.Duration("duration", time.Since(start)),
	)

	if len(c.failures) > 0 {
		return root, faults.New(faults.KindListingUnavailable, "tree.build", baseURL, &CrawlError{Failures: c.failures})
	}
	return root, nil
}

// fill adds the entries of one listing page to node and descends into its
// subdirectories
func (b *Builder) fill(ctx context.Context, c *crawl, node *Node, rel, markup string, depth int) {
	for _, link := range ParseListing(markup) {
		if !link.Dir {
			if !node.Has(link.Name) {
				node.Children[link.Name] = NewFile()
			}
			continue
		}

		child, seen := node.Children[link.Name]
		if !seen || !child.Dir {
			child = NewDir()
			node.Children[link.Name] = child
		}

		dirRel := rel + link.Name + "/"
		if err := ctx.Err(); err != nil {
			c.failures = append(c.failures, Failure{Path: strings.TrimSuffix(dirRel, "/"), Err: err})
			continue
		}
		if b.maxDepth > 0 && depth >= b.maxDepth {
			b.logger.Warn("crawl depth limit reached", zap.String("path", dirRel), zap.Int("max_depth", b.maxDepth))
			continue
		}

		ref, err := url.Parse(dirRel)
		if err != nil {
			c.failures = append(c.failures, Failure{Path: strings.TrimSuffix(dirRel, "/"), Err: err})
			continue
		}
		dirURL := c.base.ResolveReference(ref).String()
		if c.visited[dirURL] {
			b.logger.Debug("skipping visited directory", zap.String("url", dirURL))
			continue
		}
		c.visited[dirURL] = true

		sub, err := b.lister.Listing(ctx, dirURL)
		if err != nil {
			b.logger.Warn("subdirectory listing failed", zap.String("url", dirURL), zap.Error(err))
			c.failures = append(c.failures, Failure{
				Path: strings.TrimSuffix(dirRel, "/"),
				Err:  faults.New(faults.KindListingUnavailable, "tree.crawl", dirURL, err),
			})
			continue
		}
		b.fill(ctx, c, child, dirRel, sub, depth+1)
	}
}
