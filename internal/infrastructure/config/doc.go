// Package config provides 12-factor configuration management for the content
// browser backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override the listen port and content base URL.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Content: upstream repository URL, timeouts, archive size cap, crawl depth
//   - Sandbox: bundle URL prefix, capacity, lifetime, probe timeout
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Browsing %s\n", cfg.Content.BaseURL)
//
// Environment Variables:
//   - PORT, HOST
//   - CONTENT_BASE_URL, LISTING_TIMEOUT, ARCHIVE_TIMEOUT, MAX_ARCHIVE_MB,
//     MAX_CRAWL_DEPTH, UPSTREAM_RPS, UPSTREAM_RETRIES
//   - SANDBOX_PREFIX, SANDBOX_MAX_BUNDLES, SANDBOX_TTL, SANDBOX_PROBE_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
