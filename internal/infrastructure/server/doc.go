// Package server wires the browser backend together.
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger, metrics and tracer
//  3. Create the content repository client
//  4. Build the tree catalog, folder gate, inspector and sandbox store
//  5. Setup HTTP routes and middleware
//  6. Optionally warm the tree, then start the HTTP server
//  7. Graceful shutdown on signal
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
