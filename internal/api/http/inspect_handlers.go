package http

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/browserpike/backend/internal/domain/browse"
	"github.com/browserpike/backend/internal/domain/inspect"
	"github.com/browserpike/backend/internal/domain/sandbox"
	"github.com/browserpike/backend/internal/domain/tree"
	"github.com/browserpike/backend/internal/shared/faults"
)

// archiveNode resolves a cleaned path to an archive leaf of the current tree
// the visitor may open
func (h *Handlers) archiveNode(ctx context.Context, bc *browse.Context, path string) (*tree.Snapshot, error) {
	snap := h.catalog.Current(ctx)
	if snap.Unavailable() {
		return nil, snap.Err
	}
	node := tree.Lookup(snap.Root, path)
	if node == nil || node.Dir || !tree.IsArchive(tree.Base(path)) {
		return nil, faults.Newf(faults.KindNotFound, "api.select", path, "no archive %q", path)
	}
	if err := h.guard(bc, snap.Root, path); err != nil {
		return nil, err
	}
	return snap, nil
}

// selectArchive inspects path as the visitor's new selection. A result
// overtaken by a later selection is discarded with ErrStaleSelection.
func (h *Handlers) selectArchive(ctx context.Context, bc *browse.Context, raw string) (*inspect.Result, uint64, error) {
	path, err := repoPath(raw)
	if err != nil {
		return nil, 0, err
	}
	snap, err := h.archiveNode(ctx, bc, path)
	if err != nil {
		return nil, 0, err
	}

	gen := bc.Begin()
	span, ctx := h.tracer.Start(ctx, "inspect.archive")
	span.Annotate(zap.String("archive", path), zap.Uint64("generation", gen))
	res, err := h.inspector.Inspect(ctx, path, snap.Root)
	h.tracer.End(span, err)
	if err != nil {
		return nil, 0, err
	}
	if err := bc.Commit(gen, res); err != nil {
		h.logger.Debug("discarding superseded inspection", zap.String("path", path))
		return nil, 0, err
	}
	return res, gen, nil
}

// Inspect selects an archive and returns its classification
func (h *Handlers) Inspect(c *gin.Context) {
	bc := h.session(c)
	res, _, err := h.selectArchive(c.Request.Context(), bc, c.Query("path"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// NavigateResponse tells the page what to expand, show and launch on load
type NavigateResponse struct {
	Navigation  browse.Navigation `json:"navigation"`
	Ancestors   []string          `json:"ancestors"`
	Inspection  *inspect.Result   `json:"inspection,omitempty"`
	Play        *sandbox.Launch   `json:"play,omitempty"`
	ShareToggle bool              `json:"share_toggle"`
}

// Navigate resolves the page's zip=, play= and admin parameters. With play=
// the play bundle is built and returned in the same response.
func (h *Handlers) Navigate(c *gin.Context) {
	nav := browse.ParseNavigation(c.Request.URL.Query())
	out := NavigateResponse{Navigation: nav, Ancestors: []string{}, ShareToggle: nav.Admin}
	if nav.Path == "" {
		c.JSON(http.StatusOK, out)
		return
	}

	bc := h.session(c)
	res, gen, err := h.selectArchive(c.Request.Context(), bc, nav.Path)
	if err != nil {
		h.fail(c, err)
		return
	}
	out.Ancestors = tree.Ancestors(nav.Path)
	out.Inspection = res

	if nav.AutoPlay && res.Classification.Play != "" {
		launch, err := h.sandbox.Play(res.Archive, res.Classification.Play, true)
		if err != nil {
			h.fail(c, err)
			return
		}
		if err := bc.Own(gen, launch.BundleID); err != nil {
			h.fail(c, err)
			return
		}
		out.Play = launch
	}

	c.JSON(http.StatusOK, out)
}

// Share returns the link that reopens path, in play mode when play=true
func (h *Handlers) Share(c *gin.Context) {
	path, err := repoPath(c.Query("path"))
	if err != nil {
		h.fail(c, err)
		return
	}
	playMode, _ := strconv.ParseBool(c.DefaultQuery("play", "false"))

	page := c.Query("page")
	if page == "" {
		page = origin(c) + "/"
	}
	link, err := browse.ShareURL(page, path, playMode)
	if err != nil {
		h.fail(c, badRequest(fmt.Sprintf("invalid page URL: %v", err)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link, "play": playMode})
}

func origin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}

// Download proxies a repository file to the visitor as an attachment
func (h *Handlers) Download(c *gin.Context) {
	path, err := repoPath(c.Query("path"))
	if err != nil {
		h.fail(c, err)
		return
	}

	bc := h.session(c)
	snap := h.catalog.Current(c.Request.Context())
	node := tree.Lookup(snap.Root, path)
	if node == nil || node.Dir || tree.Base(path) == tree.PasswordFile {
		h.fail(c, faults.Newf(faults.KindNotFound, "api.download", path, "no file %q", path))
		return
	}
	if err := h.guard(bc, snap.Root, path); err != nil {
		h.fail(c, err)
		return
	}

	stream, err := h.remote.Open(c.Request.Context(), h.remote.Resolve(path))
	if err != nil {
		h.fail(c, faults.Reclassify(err, faults.KindDownloadFailed, "api.download", path))
		return
	}
	defer stream.Body.Close()

	contentType := stream.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": downloadName(path)})

	c.DataFromReader(http.StatusOK, stream.ContentLength, contentType, stream.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

func downloadName(path string) string {
	name := tree.Base(path)
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}
