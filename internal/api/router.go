package api

import (
	"chatrelay/internal/metrics"
	"chatrelay/internal/middleware"
	"chatrelay/internal/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(messageHandler *MessageHandler, queueHandler *QueueHandler, creds repository.CredentialRepository, rdb *redis.Client, requestsPerSecond int) *gin.Engine {
	r := gin.New()

	// Global Middleware
	r.Use(
		cors.Default(),
		middleware.RequestID(),
		middleware.GinZapLogger(),
		middleware.GinZapRecovery(),
		middleware.HttpMiddleware(),
	)
	r.SetTrustedProxies(nil)

	// Public Routes
	r.GET("/health", queueHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Instance-scoped routes, authenticated by API key
	v1 := r.Group("/v1")
	v1.Use(middleware.APIKeyAuth(creds))

	// Rate Limiter for enqueue operations
	writeLimiter := middleware.RateLimitMiddleware(rdb, requestsPerSecond)

	{
		v1.POST("/messages/text", writeLimiter, messageHandler.SendText)
		v1.POST("/messages/media", writeLimiter, messageHandler.SendMedia)
		v1.POST("/pending/:recipient/drain", messageHandler.DrainPending)

		v1.GET("/queue/stats", queueHandler.Stats)
		v1.GET("/queue/recent", queueHandler.Recent)
		v1.GET("/pending/summary", queueHandler.PendingSummary)
		v1.GET("/history", queueHandler.History)
	}
	return r
}
