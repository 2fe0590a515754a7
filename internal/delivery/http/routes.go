package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/config"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/infrastructure/cache"
)

// SetupRouter creates and configures the Gin router. limiters holds the
// per-client rate limiters and is owned by the caller.
func SetupRouter(cfg *config.Config, handler *Handler, limiters *cache.MemoryCache[*rate.Limiter]) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(otelgin.Middleware("allergyaware-backend"))
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check and metrics endpoints
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Ingredient endpoints
		ingredients := v1.Group("/ingredients")
		ingredients.Use(RateLimitMiddleware(limiters, cfg.RateLimit.PerIP))
		{
			ingredients.POST("/verify", handler.VerifyIngredients)
		}
	}

	return router
}
