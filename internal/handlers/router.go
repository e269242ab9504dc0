package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/streettrees/internal/logger"
	"github.com/stwalsh4118/streettrees/internal/middleware"
	"github.com/stwalsh4118/streettrees/internal/observability"
)

// RouterDeps collects what NewRouter wires together.
type RouterDeps struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	CORSOrigins    []string
	Health         *HealthHandler
	Trees          *TreeHandler
}

// NewRouter builds the gin engine with middleware in order
// RequestID, Logger, Recovery, Metrics, CORS and registers every route.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Log))
	router.Use(middleware.Recovery(deps.Log))
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}
	router.Use(middleware.CORS(deps.CORSOrigins))

	router.GET("/health", deps.Health.Health)
	router.GET("/health/ready", deps.Health.Ready)
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", deps.Health.Info)
		deps.Trees.RegisterRoutes(v1)
	}

	return router
}
