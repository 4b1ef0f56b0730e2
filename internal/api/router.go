// Package api assembles the HTTP surface: health, metrics and the authenticated v1 group.
package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trailquest/trailquest/internal/api/middleware"
	"github.com/trailquest/trailquest/internal/config"
	"github.com/trailquest/trailquest/pkg/logger"
)

// RouteRegistrar mounts a handler's endpoints.
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRoutes)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterOptions carries everything the router needs.
type RouterOptions struct {
	Metrics  config.PrometheusConfig
	Auth     gin.HandlerFunc
	Checks   map[string]HealthCheck
	Handlers []RouteRegistrar
	Log      *logger.Logger
}

// NewRouter builds the gin engine.
func NewRouter(opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(opts.Log))

	router.GET("/health", healthHandler(opts.Checks))

	if opts.Metrics.Enabled {
		path := opts.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1", opts.Auth)
	for _, h := range opts.Handlers {
		h.RegisterRoutes(v1)
	}

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":    state,
			"checks":    results,
			"timestamp": time.Now().UTC(),
		})
	}
}
