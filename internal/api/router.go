// Package api wires together all HTTP routes for the ChorusDesk backend.
//
// Route grouping philosophy:
//   - /health, /ready, and /version are public so deployment probes and
//     monitoring need no credentials.
//   - Everything under /api/v1 requires a bearer JWT. Audited writes must be
//     attributable, so there is no anonymous write surface at all.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/chorusdesk/chorusdesk/internal/api/admin"
	"github.com/chorusdesk/chorusdesk/internal/audit"
	"github.com/chorusdesk/chorusdesk/internal/config"
	"github.com/chorusdesk/chorusdesk/internal/db/repositories"
	"github.com/chorusdesk/chorusdesk/internal/jobs"
	"github.com/chorusdesk/chorusdesk/internal/middleware"
	"github.com/chorusdesk/chorusdesk/internal/safego"
)

// BackgroundServices holds references to background jobs and resources that
// must be stopped during graceful shutdown. The caller (cmd/server) is
// responsible for calling Shutdown() when the process receives a termination
// signal.
type BackgroundServices struct {
	retentionJob *jobs.RetentionJob
	rateLimiter  middleware.Limiter
	shipper      *audit.MultiShipper
}

// Shutdown stops all background goroutines. It should be called after the
// HTTP server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.retentionJob != nil {
		bg.retentionJob.Stop()
	}
	if bg.rateLimiter != nil {
		bg.rateLimiter.Stop()
	}
	if bg.shipper != nil {
		if err := bg.shipper.Close(); err != nil {
			slog.Warn("failed to close audit shippers", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	albumRepo := repositories.NewAlbumRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Wire the audit engine: classification rules, name resolution for
	// user-role entries, and the transactional save interceptor every
	// write handler goes through.
	registry := audit.NewRegistry()
	interceptor := audit.NewInterceptor(db, registry, repositories.NewDirectory(), auditRepo)

	// Optional external shipping of committed entries (SIEM, log aggregator).
	shipper := newShipper(cfg)
	if shipper != nil {
		interceptor.SetShipper(shipper)
	}

	// Retention job: purges expired audit entries through the interceptor
	// so each purge run leaves its own trail entry.
	retentionJob := jobs.NewRetentionJob(auditRepo, interceptor, cfg.Audit.RetentionDays, cfg.Audit.PurgeIntervalHours)
	if cfg.Audit.RetentionDays > 0 {
		safego.GoNamed("audit-retention", func() {
			retentionJob.Start(context.Background())
		})
		slog.Info("audit retention job started",
			"retention_days", cfg.Audit.RetentionDays,
			"interval_hours", cfg.Audit.PurgeIntervalHours)
	}

	// Rate limiter backend per configuration.
	rateLimiter := newRateLimiter(cfg)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	// Initialize admin handlers
	auditHandlers := admin.NewAuditHandlers(auditRepo, interceptor)
	userHandlers := admin.NewUserHandlers(userRepo, interceptor)
	albumHandlers := admin.NewAlbumHandlers(albumRepo, interceptor)
	eventHandlers := admin.NewEventHandlers(eventRepo, interceptor)

	// Admin API endpoints: authenticated, rate limited, actor-attributed.
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.RateLimitMiddleware(rateLimiter))
	apiV1.Use(middleware.AuthMiddleware(userRepo))
	apiV1.Use(middleware.ActorMiddleware())
	{
		// Audit trail query surface
		auditGroup := apiV1.Group("/admin/audit")
		{
			auditGroup.GET("", auditHandlers.ListEntries)
			auditGroup.GET("/timeline", auditHandlers.Timeline)
			auditGroup.GET("/export", auditHandlers.Export)
			auditGroup.GET("/filters", auditHandlers.FilterValues)
			auditGroup.GET("/search", auditHandlers.SearchEntries)
			auditGroup.GET("/entity/:type/:id", auditHandlers.EntityHistory)
			auditGroup.DELETE("/:id", auditHandlers.DeleteEntry)
			auditGroup.POST("/truncate", auditHandlers.Truncate)
		}

		// Member account management
		usersGroup := apiV1.Group("/users")
		{
			usersGroup.GET("", userHandlers.ListUsers)
			usersGroup.POST("", userHandlers.CreateUser)
			usersGroup.GET("/:id", userHandlers.GetUser)
			usersGroup.PUT("/:id", userHandlers.UpdateUser)
			usersGroup.DELETE("/:id", userHandlers.DeleteUser)
			usersGroup.POST("/:id/login", userHandlers.RecordLogin)
			usersGroup.POST("/:id/roles", userHandlers.AddRole)
			usersGroup.DELETE("/:id/roles/:role_id", userHandlers.RemoveRole)
		}

		// Roles are seeded by migration; the API only lists them.
		apiV1.GET("/roles", userHandlers.ListRoles)

		// Music catalog
		albumsGroup := apiV1.Group("/albums")
		{
			albumsGroup.GET("", albumHandlers.ListAlbums)
			albumsGroup.POST("", albumHandlers.CreateAlbum)
			albumsGroup.GET("/:id", albumHandlers.GetAlbum)
			albumsGroup.PUT("/:id", albumHandlers.UpdateAlbum)
			albumsGroup.DELETE("/:id", albumHandlers.DeleteAlbum)
		}

		// Event schedule
		eventsGroup := apiV1.Group("/events")
		{
			eventsGroup.GET("", eventHandlers.ListEvents)
			eventsGroup.POST("", eventHandlers.CreateEvent)
			eventsGroup.GET("/:id", eventHandlers.GetEvent)
			eventsGroup.PUT("/:id", eventHandlers.UpdateEvent)
			eventsGroup.DELETE("/:id", eventHandlers.DeleteEvent)
		}
	}

	bg := &BackgroundServices{
		retentionJob: retentionJob,
		rateLimiter:  rateLimiter,
		shipper:      shipper,
	}

	return router, bg
}

// newShipper builds the configured audit shipping destinations, or nil when
// neither destination is set.
func newShipper(cfg *config.Config) *audit.MultiShipper {
	var configs []audit.ShipperConfig
	if cfg.Audit.ShipFilePath != "" {
		configs = append(configs, audit.ShipperConfig{
			Enabled: true,
			Type:    "file",
			File: &audit.FileConfig{
				Path:       cfg.Audit.ShipFilePath,
				MaxSizeMB:  100,
				MaxBackups: 5,
			},
		})
	}
	if cfg.Audit.ShipWebhookURL != "" {
		configs = append(configs, audit.ShipperConfig{
			Enabled: true,
			Type:    "webhook",
			Webhook: &audit.WebhookConfig{URL: cfg.Audit.ShipWebhookURL},
		})
	}
	if len(configs) == 0 {
		return nil
	}

	shipper, err := audit.NewMultiShipper(configs)
	if err != nil {
		slog.Error("failed to configure audit shipping, continuing without it", "error", err)
		return nil
	}
	slog.Info("audit shipping enabled", "destinations", len(configs))
	return shipper
}

// newRateLimiter builds the configured rate limiter backend. The in-memory
// token bucket is the default; Redis is used when limits must hold across
// replicas.
func newRateLimiter(cfg *config.Config) middleware.Limiter {
	rlCfg := middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   5 * time.Minute,
	}

	if cfg.RateLimit.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.Redis.Addr,
			Password: cfg.RateLimit.Redis.Password,
			DB:       cfg.RateLimit.Redis.DB,
		})
		slog.Info("using redis rate limiter", "addr", cfg.RateLimit.Redis.Addr)
		return middleware.NewRedisRateLimiter(client, rlCfg)
	}
	return middleware.NewRateLimiter(rlCfg)
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
func readinessHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging through the global
// slog handler configured in telemetry.SetupLogger.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)

		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
