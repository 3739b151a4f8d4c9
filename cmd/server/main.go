package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"tracker/internal/app"
	"tracker/internal/config"
	"tracker/internal/driving"
	"tracker/internal/handler"
	internalRedis "tracker/internal/redis"
	"tracker/internal/repository"
	"tracker/internal/repository/postgres"
	"tracker/internal/service"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic comes first so the database and redis clients can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	engine := cfg.Engine.Driving()
	log.Printf("Trip engine: driving>=%.0f km/h, idle timeout %s, speed limit %.0f km/h",
		engine.DrivingThresholdKmh, engine.IdleTimeout, engine.SpeedLimitKmh)

	tripRepo := postgres.NewTripRepository(db)
	server, trackingService := wireServer(engine, tripRepo, redisClient, nrApp, cfg)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	// Open trips live only in memory; close them out so they are persisted.
	for _, deviceID := range trackingService.Devices() {
		if _, err := trackingService.EndSession(shutdownCtx, deviceID); err != nil {
			log.Printf("failed to end session for device %s: %v", deviceID, err)
		}
	}
	if n := trackingService.FlushPending(shutdownCtx); n > 0 {
		log.Printf("%d finished trips could not be persisted", n)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	engine driving.Config,
	tripRepo repository.TripRepository,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	cfg *config.Config,
) (*http.Server, *service.TrackingService) {
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	publisher := internalRedis.NewPublisher(redisClient)

	notificationService := service.NewNotificationService(publisher, nrApp)
	trackingService := service.NewTrackingService(service.TrackingDeps{
		Registry:            driving.NewRegistry(engine),
		TripRepo:            tripRepo,
		LocationStore:       locationStore,
		LockStore:           lockStore,
		CacheStore:          cacheStore,
		NotificationService: notificationService,
		LockTTL:             cfg.Redis.IngestLockTTL,
	})

	router := app.NewRouter(app.RouterDeps{
		DeviceHandler:  handler.NewDeviceHandler(trackingService),
		TripHandler:    handler.NewTripHandler(trackingService),
		StreamHandler:  handler.NewStreamHandler(publisher),
		RedisClient:    redisClient,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		NewRelicApp:    nrApp,
	})

	// No write timeout: the event stream holds its response open.
	return &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}, trackingService
}
