package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/browserpike/backend/internal/api/ws"
	"github.com/browserpike/backend/internal/domain/browse"
	"github.com/browserpike/backend/internal/domain/gate"
	"github.com/browserpike/backend/internal/domain/inspect"
	"github.com/browserpike/backend/internal/domain/sandbox"
	"github.com/browserpike/backend/internal/domain/tree"
	"github.com/browserpike/backend/internal/infrastructure/monitoring"
	"github.com/browserpike/backend/internal/infrastructure/tracing"
	"github.com/browserpike/backend/internal/remote"
	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/browserpike/backend/internal/shared/paths"
)

// Deps are the components the handlers drive
type Deps struct {
	Catalog   *tree.Catalog
	Gate      *gate.Gate
	Inspector *inspect.Inspector
	Sandbox   *sandbox.Store
	Sessions  *browse.Manager
	Remote    *remote.Client
	Metrics   *monitoring.Metrics
	Tracer    *tracing.Tracer
	Events    *ws.Hub
	Logger    *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	catalog   *tree.Catalog
	gate      *gate.Gate
	inspector *inspect.Inspector
	sandbox   *sandbox.Store
	sessions  *browse.Manager
	remote    *remote.Client
	metrics   *monitoring.Metrics
	tracer    *tracing.Tracer
	events    *ws.Hub
	logger    *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Handlers{
		catalog:   d.Catalog,
		gate:      d.Gate,
		inspector: d.Inspector,
		sandbox:   d.Sandbox,
		sessions:  d.Sessions,
		remote:    d.Remote,
		metrics:   d.Metrics,
		tracer:    d.Tracer,
		events:    d.Events,
		logger:    d.Logger,
	}
}

// Register mounts every route on router
func (h *Handlers) Register(router gin.IRouter, sandboxPrefix string) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	router.GET("/metrics/json", h.Stats)

	api := router.Group("/api")
	api.GET("/tree", h.Tree)
	api.POST("/tree/reload", h.ReloadTree)
	api.POST("/folders/unlock", h.Unlock)
	api.GET("/inspect", h.Inspect)
	api.GET("/navigate", h.Navigate)
	api.GET("/share", h.Share)
	api.GET("/download", h.Download)
	api.POST("/logs", h.StreamLogs)
	if h.events != nil {
		api.GET("/events", ws.NewHandler(h.events, h.sessions, h.logger.Named("events")).HandleConnection)
	}

	api.POST("/sandbox/play", h.Play)
	api.POST("/sandbox/preview", h.Preview)
	api.GET("/sandbox/:id/probe", h.Probe)
	api.DELETE("/sandbox/:id", h.ReleaseBundle)

	api.GET("/session", h.Session)
	api.GET("/session/theme", h.Theme)
	api.PUT("/session/theme", h.SetTheme)
	api.DELETE("/session", h.EndSession)

	bundles := router.Group(sandboxPrefix)
	bundles.GET("/:id/"+sandbox.AreaDoc+"/*entry", h.ServeDocument)
	bundles.GET("/:id/"+sandbox.AreaFiles+"/*entry", h.ServeFile)
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"upstream": h.remote.BreakerState().String(),
		"sessions": h.sessions.Len(),
		"bundles":  h.sandbox.Len(),
	})
}

// session returns the visitor's browse context, issuing a cookie for new
// visitors
func (h *Handlers) session(c *gin.Context) *browse.Context {
	token, _ := c.Cookie(browse.CookieName)
	bc, created := h.sessions.Resolve(token)
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(browse.CookieName, bc.ID, 0, "/", "", c.Request.TLS != nil, true)
	}
	return bc
}

// fail writes err as {"error", "kind"} with the status of its kind
func (h *Handlers) fail(c *gin.Context, err error) {
	status, kind := http.StatusInternalServerError, faults.KindUnknown.String()

	switch {
	case errors.Is(err, browse.ErrStaleSelection):
		status, kind = http.StatusConflict, "stale_selection"
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		c.Abort()
		return
	default:
		k := faults.KindOf(err)
		status, kind = k.Status(), k.String()
	}

	fields := append(tracing.Fields(c.Request.Context()),
		zap.String("route", c.FullPath()),
		zap.Int("status", status),
		zap.String("kind", kind),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func badRequest(msg string) error {
	return faults.Newf(faults.KindBadRequest, "api", "", "%s", msg)
}

// repoPath cleans a client supplied repository path
func repoPath(raw string) (string, error) {
	path, err := paths.Clean(raw)
	if err != nil {
		return "", badRequest(err.Error())
	}
	return path, nil
}
