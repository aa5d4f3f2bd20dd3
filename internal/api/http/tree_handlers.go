package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/browserpike/backend/internal/api/ws"
	"github.com/browserpike/backend/internal/domain/browse"
	"github.com/browserpike/backend/internal/domain/gate"
	"github.com/browserpike/backend/internal/domain/tree"
	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/browserpike/backend/internal/shared/utils"
)

// TreeResponse is the rendered browser tree
type TreeResponse struct {
	Items       []tree.Item `json:"items"`
	Banner      string      `json:"banner,omitempty"`
	Stats       tree.Stats  `json:"stats"`
	CrawlErrors []string    `json:"crawl_errors,omitempty"`
	Unlocked    []string    `json:"unlocked"`
	BuiltAt     time.Time   `json:"built_at"`
}

// Tree returns the tree as this visitor sees it
func (h *Handlers) Tree(c *gin.Context) {
	bc := h.session(c)
	snap := h.catalog.Current(c.Request.Context())
	h.respondTree(c, bc, snap)
}

// ReloadTree crawls the repository again and clears the visitor's selection
func (h *Handlers) ReloadTree(c *gin.Context) {
	bc := h.session(c)
	snap := h.catalog.Reload(c.Request.Context())
	bc.ClearSelection()
	if h.events != nil && !snap.Unavailable() {
		h.events.Broadcast(ws.TreeReloaded(snap.Stats.Files, snap.Stats.Dirs))
	}
	h.respondTree(c, bc, snap)
}

func (h *Handlers) respondTree(c *gin.Context, bc *browse.Context, snap *tree.Snapshot) {
	if snap.Unavailable() {
		h.fail(c, snap.Err)
		return
	}

	access := bc.Access()
	c.JSON(http.StatusOK, TreeResponse{
		Items:       tree.Render(snap.Root, snap.BaseURL, access.Unlocked),
		Banner:      snap.Banner,
		Stats:       snap.Stats,
		CrawlErrors: snap.Failed,
		Unlocked:    access.Folders(),
		BuiltAt:     snap.Built,
	})
}

// UnlockRequest is the body of POST /api/folders/unlock
type UnlockRequest struct {
	Path     string `json:"path" binding:"required"`
	Password string `json:"password"`
}

// Unlock checks a password attempt for a protected folder
func (h *Handlers) Unlock(c *gin.Context) {
	var req UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("path is required"))
		return
	}

	path, err := repoPath(req.Path)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		h.fail(c, badRequest(err.Error()))
		return
	}

	bc := h.session(c)
	snap := h.catalog.Current(c.Request.Context())
	node := tree.Lookup(snap.Root, path)
	if node == nil || !node.Dir {
		h.fail(c, faults.Newf(faults.KindNotFound, "api.unlock", path, "no folder %q", path))
		return
	}
	if !node.Has(tree.PasswordFile) {
		c.JSON(http.StatusOK, gin.H{"path": path, "unlocked": true, "protected": false})
		return
	}

	ok, err := h.gate.Unlock(c.Request.Context(), bc.Access(), path, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "unlocked": ok, "protected": true})
}

// guard rejects paths below a folder the visitor has not unlocked
func (h *Handlers) guard(bc *browse.Context, root *tree.Node, path string) error {
	if folder, locked := gate.LockedAncestor(root, bc.Access(), path); locked {
		return faults.Newf(faults.KindLocked, "api.guard", path, "folder %q is locked", folder)
	}
	return nil
}
