package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/browserpike/backend/internal/domain/browse"
)

// Session returns the visitor's browse state
func (h *Handlers) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).State())
}

// Theme returns the visitor's theme
func (h *Handlers) Theme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": h.session(c).Theme()})
}

// ThemeRequest is the body of PUT /api/session/theme
type ThemeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// SetTheme switches between the light and dark themes
func (h *Handlers) SetTheme(c *gin.Context) {
	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("theme is required"))
		return
	}
	theme, err := browse.ParseTheme(req.Theme)
	if err != nil {
		h.fail(c, badRequest(err.Error()))
		return
	}

	h.session(c).SetTheme(theme)
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

// EndSession drops the visitor's state and bundles
func (h *Handlers) EndSession(c *gin.Context) {
	if token, err := c.Cookie(browse.CookieName); err == nil {
		h.sessions.Drop(token)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(browse.CookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Status(http.StatusNoContent)
}
