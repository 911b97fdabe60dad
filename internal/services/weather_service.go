package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/models"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/repository"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

// Lookback windows for the read-side endpoints. Data older than these is
// considered stale and reported as absent.
const (
	currentWeatherWindow = time.Hour
	forecastWindow       = 6 * time.Hour
)

// ErrNoRecentData indicates that no sufficiently fresh records exist for the
// requested location
var ErrNoRecentData = errors.New("no recent weather data available")

// WeatherService serves stored weather records to the query side
type WeatherService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherService creates a new weather service
func NewWeatherService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherService {
	return &WeatherService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetCurrentWeather returns observations from the last hour for the location
// at the given coordinates.
func (s *WeatherService) GetCurrentWeather(ctx context.Context, lat, lon float64) ([]*models.Observation, error) {
	location, err := s.lookupLocation(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-currentWeatherWindow)
	observations, err := s.repo.ListRecentObservations(ctx, location.ID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent observations: %w", err)
	}

	if len(observations) == 0 {
		return nil, ErrNoRecentData
	}

	return observations, nil
}

// GetForecast returns forecast entries from the last six hours onward for the
// location at the given coordinates.
func (s *WeatherService) GetForecast(ctx context.Context, lat, lon float64) ([]*models.ForecastEntry, error) {
	location, err := s.lookupLocation(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-forecastWindow)
	entries, err := s.repo.ListRecentForecastEntries(ctx, location.ID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent forecast entries: %w", err)
	}

	if len(entries) == 0 {
		return nil, ErrNoRecentData
	}

	return entries, nil
}

func (s *WeatherService) lookupLocation(ctx context.Context, lat, lon float64) (*models.Location, error) {
	location, err := s.repo.GetLocationByCoordinates(ctx, lat, lon)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: (%v, %v)", ErrLocationNotFound, lat, lon)
		}
		return nil, fmt.Errorf("failed to resolve location: %w", err)
	}
	return location, nil
}
