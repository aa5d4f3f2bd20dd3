// Package main is the entry point for the content browser backend.
//
// The server crawls a remote content repository exposed as auto-generated
// directory listings, serves the resulting tree to the browser page, inspects
// archives on selection and runs their bundled web content from memory.
//
// Architecture:
//
//	Browser page → Go backend → Content repository (listings, archives, notes)
//
// The server provides:
//   - REST API for the tree, folder unlocks, inspection and downloads
//   - Sandbox bundles served under /sandbox/<id>/
//   - WebSocket event stream per browse session
//   - Prometheus and JSON metrics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML or TOML settings file (-config)
//   - CLI flags (override both)
//
// Usage:
//
//	./server -port 8000 -content https://files.example/content/
//	./server -config pike.yaml -warm=false
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
