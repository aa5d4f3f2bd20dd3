// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components take a *Logger and derive a child with Named; request-scoped
// loggers carry the request ID added by the tracing middleware. Leveled
// exposes the same sink to go-retryablehttp so upstream retries are logged
// alongside everything else.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", OutputPaths: []string{"stdout"}})
//	logger.Info("Tree built", zap.Int("files", stats.Files))
//	logger.Error("Archive fetch failed", zap.Error(err))
package logging
