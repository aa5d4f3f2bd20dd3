package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/browserpike/backend/internal/api/http"
	"github.com/browserpike/backend/internal/api/middleware"
	"github.com/browserpike/backend/internal/api/ws"
	"github.com/browserpike/backend/internal/domain/browse"
	"github.com/browserpike/backend/internal/domain/gate"
	"github.com/browserpike/backend/internal/domain/inspect"
	"github.com/browserpike/backend/internal/domain/sandbox"
	"github.com/browserpike/backend/internal/domain/tree"
	"github.com/browserpike/backend/internal/infrastructure/config"
	"github.com/browserpike/backend/internal/infrastructure/logging"
	"github.com/browserpike/backend/internal/infrastructure/monitoring"
	"github.com/browserpike/backend/internal/infrastructure/tracing"
	"github.com/browserpike/backend/internal/remote"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	catalog *tree.Catalog
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing browser backend",
		zap.String("port", cfg.Server.Port),
		zap.String("content", cfg.Content.BaseURL),
		zap.String("sandbox_prefix", cfg.Sandbox.Prefix),
	)

	// Metrics first, every component records into them
	metrics := monitoring.NewMetrics()
	tracer := tracing.New(logger.Named("trace").Logger)

	client, err := remote.NewFromConfig(cfg.Content, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create content client: %w", err)
	}

	builder := tree.NewBuilder(client, logger.Named("tree").Logger, cfg.Content.MaxCrawlDepth)
	catalog := tree.NewCatalog(builder, client.BaseURL(), tree.CatalogOptions{
		Recorder:     metrics,
		Logger:       logger.Named("catalog").Logger,
		CrawlTimeout: cfg.Content.CrawlTimeout,
		RetryAfter:   cfg.Content.CrawlRetry,
	})

	store := sandbox.NewStore(sandbox.Options{
		Prefix:       cfg.Sandbox.Prefix,
		MaxBundles:   cfg.Sandbox.MaxBundles,
		TTL:          cfg.Sandbox.TTL,
		ProbeTimeout: cfg.Sandbox.ProbeTimeout,
		Logger:       logger.Named("sandbox").Logger,
		Recorder:     metrics,
	})

	sessions := browse.NewManager(store, cfg.Server.SessionIdle, logger.Named("browse").Logger)
	events := ws.NewHub(logger.Named("events").Logger)
	store.OnRelease(events.ReleaseHook(sessions))

	handlers := apihttp.NewHandlers(apihttp.Deps{
		Catalog:   catalog,
		Gate:      gate.New(client, logger.Named("gate").Logger, metrics),
		Inspector: inspect.New(client, logger.Named("inspect").Logger, metrics),
		Sandbox:   store,
		Sessions:  sessions,
		Remote:    client,
		Metrics:   metrics,
		Tracer:    tracer,
		Events:    events,
		Logger:    logger.Named("api").Logger,
	})

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.Middleware(tracer))
	router.Use(monitoring.Middleware(metrics))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.CORSOrigins
	router.Use(middleware.CORS(cors))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers.Register(router, cfg.Sandbox.Prefix)

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		catalog: catalog,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		http: &http.Server{
			Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Warm builds the first tree so the first visitor does not wait for the crawl
func (s *Server) Warm(ctx context.Context) {
	snap := s.catalog.Current(ctx)
	if snap.Err != nil {
		s.logger.Warn("Initial crawl incomplete", zap.Error(snap.Err))
		return
	}
	s.logger.Info("Initial crawl complete",
		zap.Int("files", snap.Stats.Files),
		zap.Int("dirs", snap.Stats.Dirs),
	)
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		err = fmt.Errorf("failed to shut down http server: %w", err)
	}

	s.tracer.Close()
	_ = s.logger.Sync()
	return err
}
