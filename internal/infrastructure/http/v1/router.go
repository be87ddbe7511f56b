// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"geodeck/internal/domain/ledger"
	"geodeck/internal/infrastructure/http/v1/handlers"
	"geodeck/internal/infrastructure/http/v1/middleware"
	"geodeck/internal/infrastructure/storage/postgres"
	"geodeck/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Engine serves all location, history and rollback operations
	Engine *ledger.Engine
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1 - everything is project-scoped and requires a valid token.
	// Per-project membership is enforced by the guard inside handlers.
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	{
		baseHandler := handlers.NewBaseHandler()
		project := api.Group("/projects/:projectId")

		locationHandler := handlers.NewLocationHandler(baseHandler, cfg.Engine)
		locationHandler.RegisterRoutes(project.Group("/locations"))

		historyHandler := handlers.NewHistoryHandler(baseHandler, cfg.Engine)
		historyHandler.RegisterRoutes(project)
	}

	return router
}
