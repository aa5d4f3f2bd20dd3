package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/browserpike/backend/internal/infrastructure/tracing"
	"github.com/browserpike/backend/internal/shared/utils"
)

// UILogEntry represents a log entry from the browser page
type UILogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
}

// UILogStreamRequest represents a batch of logs from the page
type UILogStreamRequest struct {
	Source  string       `json:"source"` // "ui"
	Entries []UILogEntry `json:"entries"`
}

const maxLogEntries = 100

// StreamLogs records log entries sent by the browser page
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req UILogStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("invalid log request format"))
		return
	}
	if req.Source != "ui" {
		h.fail(c, badRequest("invalid log source"))
		return
	}
	if len(req.Entries) == 0 || len(req.Entries) > maxLogEntries {
		h.fail(c, badRequest("expected between 1 and 100 log entries"))
		return
	}
	for i, entry := range req.Entries {
		if err := validateUIEntry(entry); err != nil {
			h.fail(c, badRequest(fmt.Sprintf("entry %d: %v", i, err)))
			return
		}
	}

	logger := h.logger.Named("ui").With(tracing.Fields(c.Request.Context())...)
	for _, entry := range req.Entries {
		h.logUIEntry(logger, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"entries_received": len(req.Entries),
		"timestamp":        time.Now().Unix(),
	})
}

func validateUIEntry(entry UILogEntry) error {
	if err := utils.ValidateString(entry.Message, "message", utils.MaxMessageSize, true); err != nil {
		return err
	}
	return utils.ValidateContext(entry.Context)
}

func (h *Handlers) logUIEntry(logger *zap.Logger, entry UILogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	fields = append(fields, zap.String("ui_timestamp", entry.Timestamp))

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug", "verbose":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
