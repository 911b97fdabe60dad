package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/config"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/openweather"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/repository"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/services"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/database"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

func main() {
	// Parse command-line flags
	kind := flag.String("kind", "current", "Job kind to run: current or forecast")
	timeout := flag.Duration("timeout", 10*time.Minute, "Maximum duration for the run")
	flag.Parse()

	var jobKind services.JobKind
	switch *kind {
	case "current":
		jobKind = services.JobCurrentWeather
	case "forecast":
		jobKind = services.JobForecast
	default:
		fmt.Fprintf(os.Stderr, "Unknown job kind %q, expected current or forecast\n", *kind)
		os.Exit(1)
	}

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
	logger := logging.NewStructuredLogger("weather-ingest", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger.Info(ctx, "[INGEST_START] Starting one-shot ingestion run", logging.Fields{
		"version": "1.0.0",
		"kind":    string(jobKind),
		"timeout": timeout.String(),
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("weather_ingest")

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
		logger.Fatal(ctx, "[INGEST_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository, provider client, and service
	weatherRepo := repository.NewWeatherRepository(db, logger, metricsCollector)
	weatherClient := openweather.NewClient(cfg.Provider, logger, metricsCollector)
	ingestionService := services.NewIngestionService(weatherRepo, weatherClient, logger, metricsCollector)

	// Run the job
	result, err := ingestionService.RunJob(ctx, jobKind)
	if err != nil {
		logger.Fatal(ctx, "[INGEST_ERROR] Ingestion run failed", logging.Fields{
			"kind": string(jobKind),
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION RUN COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run ID:    %s\n", result.RunID)
	fmt.Printf("Kind:      %s\n", result.Kind)
	fmt.Printf("Locations: %d\n", result.Locations)
	fmt.Printf("Records:   %d\n", result.Records)
	fmt.Printf("Duration:  %v\n", result.Duration)

	if result.Locations == 0 {
		fmt.Println("\nNo locations are tracked yet; use the geocoding API to add some.")
	}
}
