package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/browserpike/backend/internal/infrastructure/config"
	"github.com/browserpike/backend/internal/infrastructure/server"
)

func main() {
	// Parse flags; environment supplies everything else
	configFile := flag.String("config", "", "YAML or TOML settings file")
	port := flag.String("port", "", "Server port (overrides PORT)")
	content := flag.String("content", "", "Content repository base URL (overrides CONTENT_BASE_URL)")
	warm := flag.Bool("warm", true, "Crawl the repository before accepting requests")
	flag.Parse()

	log.Println("=" + strings.Repeat("=", 60) + "=")
	log.Println("Browserpike - Content Browser Service")
	log.Println("=" + strings.Repeat("=", 60) + "=")

	cfg := config.LoadOrDefault()
	if *configFile != "" {
		fileCfg, err := config.LoadFile(*configFile)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", *configFile, err)
		}
		cfg = fileCfg
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *content != "" {
		cfg.Content.BaseURL = *content
	}

	// Create server
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// The catalog bounds the crawl with CRAWL_TIMEOUT
	if *warm {
		srv.Warm(context.Background())
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
