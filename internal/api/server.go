// Package api exposes the quota cache over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quotadeck/quotadeck/internal/config"
	qderrors "github.com/quotadeck/quotadeck/internal/errors"
	"github.com/quotadeck/quotadeck/internal/logging"
	"github.com/quotadeck/quotadeck/internal/metrics"
	"github.com/quotadeck/quotadeck/internal/models"
	"github.com/quotadeck/quotadeck/internal/store"
)

// Refresher triggers quota refreshes. Implemented by the orchestrator.
type Refresher interface {
	RefreshProvider(ctx context.Context, kind models.ProviderKind)
	RefreshAll(ctx context.Context)
	ClearAll()
}

// EntrySource lists discovered auth entries. Implemented by the auth
// file manager.
type EntrySource interface {
	Entries() []models.AuthEntry
	LastScan() time.Time
}

// HistorySource serves recorded snapshots; optional.
type HistorySource interface {
	Recent(provider models.ProviderKind, entryKey string, limit int) ([]store.Snapshot, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *gin.Engine
	config     config.ServerConfig
	cache      *store.Cache
	refresher  Refresher
	entries    EntrySource
	history    HistorySource
	metrics    *metrics.Metrics
	logger     *logging.Logger
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithHistory attaches a snapshot history source.
func WithHistory(history HistorySource) Option {
	return func(s *Server) {
		s.history = history
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Router returns the gin router for testing purposes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// NewServer creates the API server around the cache and orchestrator.
func NewServer(cfg config.ServerConfig, cache *store.Cache, refresher Refresher, entries EntrySource, m *metrics.Metrics, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		router:    gin.New(),
		config:    cfg,
		cache:     cache,
		refresher: refresher,
		entries:   entries,
		metrics:   m,
		logger:    logging.NewLogger(),
	}
	for _, opt := range opts {
		opt(server)
	}

	server.router.HandleMethodNotAllowed = true
	server.router.Use(gin.Recovery())
	server.router.Use(metrics.Middleware(m))
	server.router.Use(loggingMiddleware(server.logger))

	server.setupRoutes()
	return server
}

// loggingMiddleware provides structured logging for all requests.
func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = logging.GenerateCorrelationID()
		}
		ctx := logging.WithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logger.InfoWithContext(ctx, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_seconds", time.Since(start).Seconds(),
		)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/quotas", s.handleListQuotas)
		v1.GET("/quotas/:provider", s.handleProviderQuotas)
		v1.GET("/accounts", s.handleListAccounts)
		v1.POST("/refresh", s.handleRefresh)
		v1.POST("/cache/clear", s.handleClearCache)
		v1.GET("/history/:provider/:entry", s.handleHistory)
	}
}

// handleHealth returns health status.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"accounts":  len(s.entries.Entries()),
		"last_scan": s.entries.LastScan(),
	})
}

// handleListQuotas returns the full cached state for all providers.
func (s *Server) handleListQuotas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.cache.Snapshot()})
}

// handleProviderQuotas returns the cached state for one provider.
func (s *Server) handleProviderQuotas(c *gin.Context) {
	kind, ok := models.ParseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown provider: %s", c.Param("provider"))})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"provider": kind.String(),
		"entries":  s.cache.SnapshotProvider(kind),
	})
}

// handleListAccounts returns the discovered auth entries.
func (s *Server) handleListAccounts(c *gin.Context) {
	entries := s.entries.Entries()
	accounts := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		accounts = append(accounts, gin.H{
			"key":      entry.Key(),
			"name":     entry.Name,
			"provider": entry.Kind,
			"email":    entry.Email,
			"plan":     entry.PlanType,
		})
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// handleRefresh kicks off a refresh in the background. With a provider
// query parameter only that provider refreshes.
func (s *Server) handleRefresh(c *gin.Context) {
	raw := c.Query("provider")
	if raw == "" {
		go s.refresher.RefreshAll(context.Background())
		c.JSON(http.StatusAccepted, gin.H{"status": "refreshing"})
		return
	}

	kind, ok := models.ParseProvider(raw)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown provider: %s", raw)})
		return
	}
	go s.refresher.RefreshProvider(context.Background(), kind)
	c.JSON(http.StatusAccepted, gin.H{"status": "refreshing", "provider": kind.String()})
}

// handleClearCache empties the quota cache.
func (s *Server) handleClearCache(c *gin.Context) {
	s.refresher.ClearAll()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// handleHistory returns recorded snapshots for one entry.
func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	kind, ok := models.ParseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown provider: %s", c.Param("provider"))})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	snapshots, err := s.history.Recent(kind, c.Param("entry"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"provider":  kind.String(),
		"entry":     c.Param("entry"),
		"snapshots": snapshots,
	})
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return &qderrors.ErrServerStart{Addr: addr, Err: err}
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return &qderrors.ErrServerShutdown{Err: err}
	}
	return nil
}
