package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/config"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/handlers"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/openweather"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/repository"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/scheduler"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/services"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/database"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("weather-pipeline-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting weather pipeline API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("weather_pipeline")

	// Initialize database
	dbConfig := &database.Config{
		URL:             cfg.Database.URL,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository and provider client
	weatherRepo := repository.NewWeatherRepository(db, logger, metricsCollector)
	weatherClient := openweather.NewClient(cfg.Provider, logger, metricsCollector)

	// Initialize services
	weatherService := services.NewWeatherService(weatherRepo, logger, metricsCollector)
	analyticsService := services.NewAnalyticsService(weatherRepo, logger, metricsCollector)
	geocodeService := services.NewGeocodeService(weatherRepo, weatherClient, logger, metricsCollector)
	ingestionService := services.NewIngestionService(weatherRepo, weatherClient, logger, metricsCollector)

	// Start the ingestion scheduler
	jobScheduler := scheduler.New(ingestionService, cfg.Scheduler, logger)
	if err := jobScheduler.Start(); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to start ingestion scheduler", logging.Fields{}, err)
	}
	defer jobScheduler.Stop()

	// Initialize handlers
	weatherHandler := handlers.NewWeatherHandler(
		weatherService,
		analyticsService,
		geocodeService,
		ingestionService,
		weatherRepo,
		logger,
		metricsCollector,
	)

	// Setup router
	router := mux.NewRouter()

	// Register routes
	weatherHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
