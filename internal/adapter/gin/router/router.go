package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-onboarding-service/internal/adapter/gin/handler"
	"user-onboarding-service/internal/adapter/gin/middleware"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Options configures SetupRouter.
type Options struct {
	ServiceName string
	RateLimit   middleware.TokenBucketConfig

	// HealthChecks are run by /health, keyed by component name.
	HealthChecks map[string]HealthCheck

	// Redis backs the rate limiter; nil disables it.
	Redis redis.UniversalClient

	// Gatherer is exposed at /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(userHandler *handler.UserHandler, opts Options, log *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))

	router.GET("/health", health(opts, log))

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.RateLimiter(opts.Redis, opts.RateLimit, log))
	{
		users := v1.Group("/users")
		{
			users.POST("/process", userHandler.ProcessUser)
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
		}
	}

	return router
}

func health(opts Options, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, status := http.StatusOK, "healthy"
		components := make(map[string]string, len(opts.HealthChecks))

		for name, check := range opts.HealthChecks {
			if err := check(c.Request.Context()); err != nil {
				log.Warn("health check failed", zap.String("component", name), zap.Error(err))
				components[name] = "down"
				code, status = http.StatusServiceUnavailable, "unhealthy"
				continue
			}
			components[name] = "up"
		}

		c.JSON(code, gin.H{
			"status":     status,
			"service":    opts.ServiceName,
			"components": components,
		})
	}
}
