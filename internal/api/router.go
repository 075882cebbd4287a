package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codemate/codemate/internal/app"
	"github.com/codemate/codemate/internal/collab"
	"github.com/codemate/codemate/internal/handlers"
	"github.com/codemate/codemate/internal/middleware"
	"github.com/codemate/codemate/internal/runner"
	"github.com/codemate/codemate/internal/workspace"
)

// NewRouter assembles the HTTP surface: the websocket collaboration endpoint,
// one execution endpoint per supported runtime, and the operational routes.
func NewRouter(cfg *app.Config, hub *collab.Hub, svc *collab.Service, executor runner.Executor) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())

	if cfg.Monitoring.Health.Enabled {
		router.GET("/health", handlers.Health(hub, svc))
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		router.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	collabHandler := handlers.NewCollabHandler(hub)
	router.GET("/ws", collabHandler.Stream)

	// Execution endpoints are rate limited per client; a stuck compiler farm
	// should not be hammered into the ground by a single session.
	runHandler := handlers.NewRunHandler(executor)
	run := router.Group("/")
	run.Use(middleware.RateLimit(60, time.Minute))
	for _, rt := range workspace.Runtimes() {
		run.POST("/"+rt, runHandler.Handle(rt))
	}

	router.NoRoute(middleware.NotFoundHandler)

	return router
}
