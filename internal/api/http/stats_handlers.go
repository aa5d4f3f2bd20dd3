package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/browserpike/backend/internal/domain/tree"
	"github.com/browserpike/backend/internal/infrastructure/monitoring"
)

// StatsSnapshot is the JSON view of the service's state
type StatsSnapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	Requests  monitoring.Snapshot `json:"requests"`
	Upstream  string              `json:"upstream"`
	Tree      *TreeStats          `json:"tree,omitempty"`
	Sessions  int                 `json:"sessions"`
	Bundles   int                 `json:"bundles"`
}

// TreeStats summarises the current tree
type TreeStats struct {
	tree.Stats
	CrawlErrors int       `json:"crawl_errors"`
	Available   bool      `json:"available"`
	BuiltAt     time.Time `json:"built_at"`
}

// Stats returns counters for dashboards that do not scrape Prometheus
func (h *Handlers) Stats(c *gin.Context) {
	out := StatsSnapshot{
		Timestamp: time.Now(),
		Requests:  h.metrics.Snapshot(),
		Upstream:  h.remote.BreakerState().String(),
		Sessions:  h.sessions.Len(),
		Bundles:   h.sandbox.Len(),
	}
	if snap := h.catalog.Peek(); snap != nil {
		out.Tree = &TreeStats{
			Stats:       snap.Stats,
			CrawlErrors: len(snap.Failed),
			Available:   !snap.Unavailable(),
			BuiltAt:     snap.Built,
		}
	}
	c.JSON(http.StatusOK, out)
}
