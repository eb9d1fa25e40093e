// Package http provides the HTTP server, its router and the shared request middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	authHTTP "github.com/allisson/sealdrop/internal/auth/http"
	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	"github.com/allisson/sealdrop/internal/config"
	"github.com/allisson/sealdrop/internal/metrics"
	transferHTTP "github.com/allisson/sealdrop/internal/transfer/http"
	userHTTP "github.com/allisson/sealdrop/internal/user/http"
)

// Pinger is a dependency the readiness check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	db     *sql.DB
	cache  Pinger
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server. SetupRouter must be called before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// WithCache registers the secret cache as a readiness component.
func (s *Server) WithCache(c Pinger) *Server {
	s.cache = c
	return s
}

// RouterDeps groups the handlers and collaborators wired into the router.
type RouterDeps struct {
	AuthHandler     *authHTTP.AuthHandler
	AuditLogHandler *authHTTP.AuditLogHandler
	KeyHandler      *userHTTP.KeyHandler
	TransferHandler *transferHTTP.TransferHandler
	DownloadHandler *transferHTTP.DownloadHandler
	AuthUseCase     authUseCase.AuthUseCase
	RateLimiter     authUseCase.RateLimiter
	MetricsProvider *metrics.Provider
}

// SetupRouter builds the gin engine with every public, sender, recipient and admin route.
func (s *Server) SetupRouter(cfg *config.Config, deps RouterDeps) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if mw := corsMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); mw != nil {
		router.Use(mw)
	}

	if cfg.MetricsEnabled && deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled && deps.RateLimiter != nil {
		v1.Use(authHTTP.RateLimitMiddleware(deps.RateLimiter, s.logger))
	}

	login := []gin.HandlerFunc{deps.AuthHandler.LoginHandler}
	if cfg.RateLimitEnabled && deps.RateLimiter != nil {
		login = append([]gin.HandlerFunc{authHTTP.LoginRateLimitMiddleware(deps.RateLimiter, s.logger)}, login...)
	}
	v1.POST("/auth/login", login...)

	sender := v1.Group("")
	sender.Use(authHTTP.AuthenticationMiddleware(deps.AuthUseCase, s.logger))
	{
		sender.POST("/keys", deps.KeyHandler.RegisterHandler)
		sender.GET("/keys", deps.KeyHandler.ListHandler)
		sender.DELETE("/keys/:id", deps.KeyHandler.RevokeHandler)

		sender.POST("/transfers", deps.TransferHandler.InitiateHandler)
		sender.GET("/transfers/:id", deps.TransferHandler.GetHandler)
		sender.PUT("/transfers/:id/key", deps.TransferHandler.StoreKeyHandler)
		sender.POST("/transfers/:id/finalize", deps.TransferHandler.FinalizeHandler)
	}

	downloads := v1.Group("/downloads/:token")
	{
		downloads.GET("", deps.DownloadHandler.InfoHandler)
		downloads.POST("/verify", deps.AuthHandler.VerifyHandler)

		recipient := downloads.Group("")
		recipient.Use(authHTTP.RecipientTokenMiddleware(s.logger))
		recipient.GET("/key", deps.DownloadHandler.KeyHandler)
		recipient.POST("/complete", deps.DownloadHandler.CompleteHandler)
	}

	admin := v1.Group("/admin")
	admin.Use(authHTTP.AuthenticationMiddleware(deps.AuthUseCase, s.logger), authHTTP.AdminMiddleware(s.logger))
	{
		admin.GET("/locks/:token", deps.AuthHandler.LockStatusHandler)
		admin.POST("/locks/:token/unlock", deps.AuthHandler.UnlockHandler)
		admin.DELETE("/transfers/:id", deps.DownloadHandler.ForceDeleteHandler)
		admin.GET("/audit-logs", deps.AuditLogHandler.ListHandler)
	}

	s.router = router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured")
	}

	s.server.Handler = otelhttp.NewHandler(s.router, "sealdrop.http")
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// GetHandler returns the router for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler pings the database and the cache. A missing dependency counts as an error.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := map[string]string{
		"database": "ok",
		"cache":    "ok",
	}
	ready := true

	if s.db == nil || s.db.PingContext(ctx) != nil {
		components["database"] = "error"
		ready = false
	}
	if s.cache == nil || s.cache.Ping(ctx) != nil {
		components["cache"] = "error"
		ready = false
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
