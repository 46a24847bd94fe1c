package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"github.com/Gulshan36/QuickRides/internal/app"
	"github.com/Gulshan36/QuickRides/internal/channel"
	"github.com/Gulshan36/QuickRides/internal/config"
	"github.com/Gulshan36/QuickRides/internal/geo"
	"github.com/Gulshan36/QuickRides/internal/handler"
	internalRedis "github.com/Gulshan36/QuickRides/internal/redis"
	"github.com/Gulshan36/QuickRides/internal/repository/postgres"
	"github.com/Gulshan36/QuickRides/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
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
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, hub, dispatcher := wireServer(db, redisClient, nrApp, cfg)
	dispatcher.Start()

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	dispatcher.Stop()
	hub.Close()

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server, the channel
// hub and the dispatcher so main can shut them down in order.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *channel.Hub, *service.Dispatcher) {
	// Initialize Redis stores and the geo index.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	geoIndex := geo.NewRedisIndex(redisClient)

	// Initialize repositories.
	riderRepo := postgres.NewRiderRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	rideRepo := postgres.NewRideRepository(db)

	// Realtime channel registry.
	hub := channel.NewHub()

	// Initialize services.
	geocoder := service.NewMapsGeocoder(cfg.Maps)
	fares := service.NewRateTableEstimator(geocoder)
	dispatcher := service.NewDispatcher(cfg.Dispatch, rideRepo, riderRepo, driverRepo, hub, geoIndex, geocoder, fares, cacheStore, lockStore)
	lifecycleService := service.NewLifecycleService(rideRepo, driverRepo, dispatcher)
	chatService := service.NewChatService(rideRepo, hub)
	driverService := service.NewDriverService(cfg.Dispatch, driverRepo, geoIndex, cacheStore)
	riderService := service.NewRiderService(riderRepo, rideRepo)

	// Initialize handlers.
	rideHandler := handler.NewRideHandler(dispatcher, lifecycleService, chatService, fares)
	driverHandler := handler.NewDriverHandler(driverService, lifecycleService)
	riderHandler := handler.NewRiderHandler(riderService)
	wsHandler := handler.NewWSHandler(hub, driverService, lifecycleService, chatService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:   rideHandler,
		DriverHandler: driverHandler,
		RiderHandler:  riderHandler,
		WSHandler:     wsHandler,
		RedisClient:   redisClient,
		NewRelicApp:   nrApp,
	})

	// Create HTTP server.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return server, hub, dispatcher
}
