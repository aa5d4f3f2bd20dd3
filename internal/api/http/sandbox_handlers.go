package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/browserpike/backend/internal/domain/browse"
	"github.com/browserpike/backend/internal/domain/inspect"
	"github.com/browserpike/backend/internal/domain/sandbox"
	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/browserpike/backend/internal/shared/id"
	"github.com/browserpike/backend/internal/shared/utils"
)

// BundleRequest is the body of the play and preview endpoints
type BundleRequest struct {
	Path string `json:"path" binding:"required"`
	// Replace opens the play document in the current view
	Replace bool `json:"replace"`
}

// current returns the visitor's selection for path, inspecting it first
// when something else is selected
func (h *Handlers) current(ctx context.Context, bc *browse.Context, raw string) (*inspect.Result, uint64, error) {
	path, err := repoPath(raw)
	if err != nil {
		return nil, 0, err
	}
	gen := bc.Generation()
	if sel := bc.Selection(); sel != nil && sel.Path == path {
		// the tree or the visitor's unlocks may have changed since
		if _, err := h.archiveNode(ctx, bc, path); err != nil {
			return nil, 0, err
		}
		return sel, gen, nil
	}
	return h.selectArchive(ctx, bc, path)
}

// Play builds the play bundle of the selected archive
func (h *Handlers) Play(c *gin.Context) {
	var req BundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("path is required"))
		return
	}

	bc := h.session(c)
	sel, gen, err := h.current(c.Request.Context(), bc, req.Path)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sel.Classification.Play == "" {
		h.fail(c, faults.Newf(faults.KindEntryNotFound, "api.play", req.Path, "%s has no play entry", req.Path))
		return
	}

	launch, err := h.sandbox.Play(sel.Archive, sel.Classification.Play, req.Replace)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := bc.Own(gen, launch.BundleID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, launch)
}

// Preview builds the live preview bundle of the selected archive
func (h *Handlers) Preview(c *gin.Context) {
	var req BundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("path is required"))
		return
	}

	bc := h.session(c)
	sel, gen, err := h.current(c.Request.Context(), bc, req.Path)
	if err != nil {
		h.fail(c, err)
		return
	}
	entry := sel.Classification.LivePreview
	if entry == "" {
		h.fail(c, faults.Newf(faults.KindEntryNotFound, "api.preview", req.Path, "%s has no HTML entry", req.Path))
		return
	}

	preview, err := h.sandbox.Preview(sel.Archive, entry, sel.Title)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := bc.Own(gen, preview.BundleID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Probe reports where the bundle's shim sends a request for ref. With
// via=importScripts every ref is passed to one importScripts call.
func (h *Handlers) Probe(c *gin.Context) {
	refs := c.QueryArray("ref")
	if len(refs) == 0 || refs[0] == "" {
		h.fail(c, badRequest("ref is required"))
		return
	}
	bundleID, err := bundleParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch c.DefaultQuery("via", "fetch") {
	case "fetch":
		if len(refs) > 1 {
			h.fail(c, badRequest("fetch takes a single ref"))
			return
		}
		res, err := h.sandbox.Probe(c.Request.Context(), bundleID, refs[0])
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	case "importScripts":
		res, err := h.sandbox.ProbeImports(c.Request.Context(), bundleID, refs)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	default:
		h.fail(c, badRequest("via must be fetch or importScripts"))
	}
}

// ReleaseBundle drops a bundle the visitor no longer needs. Only the
// session that built a bundle may release it.
func (h *Handlers) ReleaseBundle(c *gin.Context) {
	bundleID, err := bundleParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	bc := h.session(c)
	if !bc.Owns(bundleID) {
		h.fail(c, faults.Newf(faults.KindNotFound, "api.release", string(bundleID), "no bundle %s", bundleID))
		return
	}
	bc.Disown(bundleID)

	if !h.sandbox.Release(bundleID, sandbox.ReasonReleased) {
		h.fail(c, faults.Newf(faults.KindNotFound, "api.release", string(bundleID), "no bundle %s", bundleID))
		return
	}
	c.Status(http.StatusNoContent)
}

// ServeDocument serves the rewritten entry document and its relative assets
func (h *Handlers) ServeDocument(c *gin.Context) {
	h.serveBundle(c, sandbox.AreaDoc)
}

// ServeFile serves one archive entry of a bundle
func (h *Handlers) ServeFile(c *gin.Context) {
	h.serveBundle(c, sandbox.AreaFiles)
}

func (h *Handlers) serveBundle(c *gin.Context, area string) {
	bundleID, err := bundleParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	entry, err := h.sandbox.Open(bundleID, area, c.Param("entry"))
	if err != nil {
		h.fail(c, err)
		return
	}

	etag := utils.ETag(entry.Data)
	c.Header("Cache-Control", "no-cache")
	c.Header("ETag", etag)
	c.Header("X-Content-Type-Options", "nosniff")
	if utils.MatchETag(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, entry.ContentType, entry.Data)
}

// bundleParam reads the :id route parameter; anything that is not a bundle
// ID names no bundle
func bundleParam(c *gin.Context) (id.BundleID, error) {
	raw := c.Param("id")
	if !id.Valid(raw, id.BundlePrefix) {
		return "", faults.Newf(faults.KindNotFound, "api.bundle", raw, "no bundle %s", raw)
	}
	return id.BundleID(raw), nil
}
