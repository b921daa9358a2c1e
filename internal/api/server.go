// Package api exposes the gateway over HTTP: the capability endpoints, the
// OAuth authorization flow, health and metrics.
package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/errors"
	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/mapping"
	"github.com/finbridge/finbridge/internal/metrics"
	"github.com/finbridge/finbridge/internal/providers"
)

// Server is the HTTP API server.
type Server struct {
	router     *gin.Engine
	config     config.ServerConfig
	gateway    *providers.Gateway
	linknet    *providers.LinkNet
	mapping    *mapping.Cache
	metrics    *metrics.Metrics
	logger     *logging.Logger
	httpServer *http.Server
}

// Router returns the gin router for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// NewServer creates the API server around the provider gateway.
func NewServer(cfg config.ServerConfig, gateway *providers.Gateway, linknet *providers.LinkNet, cache *mapping.Cache, m *metrics.Metrics, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if m == nil {
		m = metrics.NewMetrics("finbridge")
	}
	if logger == nil {
		logger = logging.NewLogger()
	}

	server := &Server{
		router:  gin.New(),
		config:  cfg,
		gateway: gateway,
		linknet: linknet,
		mapping: cache,
		metrics: m,
		logger:  logger,
	}
	server.router.HandleMethodNotAllowed = true

	server.router.Use(gin.Recovery())
	server.router.Use(rateLimitMiddleware(newIPRateLimiter(time.Minute/1000, 100)))
	server.router.Use(bodyLimitMiddleware(1 << 20))
	server.router.Use(metrics.Middleware(m, logger))
	server.router.Use(loggingMiddleware(logger))

	server.setupRoutes()
	return server
}

// loggingMiddleware provides structured logging for all requests
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

		duration := time.Since(start).Seconds()
		logger.InfoWithContext(ctx, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_seconds", duration,
		)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/search", s.handleSearch)
		v1.GET("/companies/:symbol/profile", s.handleProfile)
		v1.GET("/companies/:symbol/quote", s.handleQuote)
		v1.GET("/companies/:symbol/financials", s.handleFinancials)
		v1.GET("/companies/:symbol/news", s.handleNews)
		v1.GET("/companies/:symbol/executives", s.handleExecutives)
		v1.GET("/companies/:symbol/prices", s.handlePrices)
		v1.GET("/companies/:symbol/filings", s.handleFilings)
	}

	auth := s.router.Group("/auth/:provider")
	{
		auth.GET("/login", s.handleOAuthLogin)
		auth.GET("/callback", s.handleOAuthCallback)
		auth.POST("/logout", s.handleOAuthLogout)
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	if s.httpServer == nil {
		s.httpServer = NewHTTPServer(addr, s.router)
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithServer starts the server with a pre-configured http.Server
func (s *Server) StartWithServer(srv *http.Server) error {
	s.httpServer = srv
	s.logger.Info("starting HTTP server", "addr", srv.Addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err.Error())
			return err
		}
	}
	if s.mapping != nil {
		s.mapping.StopWatcher()
	}

	s.logger.Info("graceful shutdown completed")
	return nil
}

// handleHealth returns gateway health plus per-provider live/fallback mode.
func (s *Server) handleHealth(c *gin.Context) {
	providerModes := make(map[string]string)
	for _, client := range s.gateway.Clients() {
		mode := "fallback"
		if client.Live() {
			mode = "live"
		}
		providerModes[client.Name()] = mode
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"timestamp":       time.Now().UTC(),
		"providers":       providerModes,
		"mapping_entries": s.mapping.Len(),
	})
}

// handleSearch serves GET /api/v1/search?q=term
func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	results, err := s.gateway.SearchCompanies(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleProfile(c *gin.Context) {
	profile, err := s.gateway.GetCompanyProfile(c.Request.Context(), sessionID(c), c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleQuote(c *gin.Context) {
	quote, err := s.gateway.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

// handleFinancials accepts ?period=annual|quarterly, defaulting to annual.
func (s *Server) handleFinancials(c *gin.Context) {
	period := c.DefaultQuery("period", "annual")
	if period != "annual" && period != "quarterly" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be 'annual' or 'quarterly'"})
		return
	}

	statements, err := s.gateway.GetFinancials(c.Request.Context(), c.Param("symbol"), period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statements": statements})
}

// handleNews accepts ?limit=N, defaulting to 10.
func (s *Server) handleNews(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	items, err := s.gateway.GetCompanyNews(c.Request.Context(), c.Param("symbol"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": items})
}

func (s *Server) handleExecutives(c *gin.Context) {
	executives, err := s.gateway.GetExecutives(c.Request.Context(), sessionID(c), c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executives": executives})
}

// handlePrices accepts ?interval=daily|weekly|monthly and ?size=N, defaulting
// to 30 daily bars.
func (s *Server) handlePrices(c *gin.Context) {
	interval := c.DefaultQuery("interval", "daily")
	if interval != "daily" && interval != "weekly" && interval != "monthly" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be 'daily', 'weekly' or 'monthly'"})
		return
	}

	size := 30
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a positive integer"})
			return
		}
		size = parsed
	}

	points, err := s.gateway.GetHistoricalPrices(c.Request.Context(), c.Param("symbol"), interval, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": points})
}

// handleFilings accepts ?form=10-K and ?limit=N. Unknown tickers are 404.
func (s *Server) handleFilings(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	filings, err := s.gateway.GetFilings(c.Request.Context(), c.Param("symbol"), c.Query("form"), limit)
	if err != nil {
		var notFound *errors.ErrNotFound
		if stderrors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"filings": filings})
}
