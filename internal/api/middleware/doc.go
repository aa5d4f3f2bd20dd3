// Package middleware provides the HTTP middleware shared by all routes.
//
//   - CORS: cross-origin access to the browse API, exposing trace headers
//     and Content-Disposition for downloads
//   - RateLimit: per-IP token buckets with idle client cleanup
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
