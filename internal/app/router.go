package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"tracker/internal/handler"
	"tracker/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	DeviceHandler  *handler.DeviceHandler
	TripHandler    *handler.TripHandler
	StreamHandler  *handler.StreamHandler // optional
	RedisClient    *redis.Client          // optional; enables Idempotency-Key replay
	IdempotencyTTL time.Duration
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		ttl := deps.IdempotencyTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient, ttl))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		devices := v1.Group("/devices")
		{
			devices.GET("", deps.DeviceHandler.ListDevices)
			devices.GET("/nearby", deps.DeviceHandler.Nearby)

			device := devices.Group("/:id", middleware.DeviceAttributeMiddleware())
			device.POST("/samples", deps.DeviceHandler.IngestSample)
			device.POST("/end", deps.DeviceHandler.EndSession)
			device.GET("/trip", deps.DeviceHandler.ActiveTrip)
			device.GET("/trips", deps.DeviceHandler.ListTrips)
			if deps.StreamHandler != nil {
				device.GET("/events", deps.StreamHandler.Stream)
			}
		}

		trips := v1.Group("/trips")
		{
			trips.GET("/:id", deps.TripHandler.GetTrip)
		}
	}

	return router
}
