package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/models"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/openweather"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/repository"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

// geocodeResult is one entry of the provider's geocoding responses
type geocodeResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   *string `json:"state"`
}

// GeocodeService resolves city names and coordinate pairs into tracked
// locations. Resolutions are cached in storage; the provider is only consulted
// for locations not seen before.
type GeocodeService struct {
	repo    repository.WeatherRepository
	fetcher WeatherFetcher
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewGeocodeService creates a new geocode service
func NewGeocodeService(repo repository.WeatherRepository, fetcher WeatherFetcher, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *GeocodeService {
	return &GeocodeService{
		repo:    repo,
		fetcher: fetcher,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Direct resolves a city name (optionally qualified by state and country
// codes) into a Location, persisting newly resolved locations.
func (s *GeocodeService) Direct(ctx context.Context, city, state, country string) (*models.Location, error) {
	location, err := s.repo.GetLocationByName(ctx, city)
	if err == nil {
		s.logger.Info(ctx, "[GEOCODE_CACHED] Returned location from storage", logging.Fields{
			"city": city,
		})
		return location, nil
	}

	var notFound *repository.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, fmt.Errorf("failed to look up location: %w", err)
	}

	query := city
	if state != "" {
		query += "," + state
	}
	if country != "" {
		query += "," + country
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")

	var results []geocodeResult
	if err := s.fetcher.FetchJSON(ctx, openweather.DirectGeocodePath, params, &results); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, query)
	}

	location = s.toLocation(results[0])
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		return nil, fmt.Errorf("persist resolved location: %w", err)
	}

	s.logger.Info(ctx, "[GEOCODE_RESOLVED] Fetched location from provider", logging.Fields{
		"city":        city,
		"location_id": location.ID,
	})

	return location, nil
}

// Reverse resolves a coordinate pair into a Location, persisting newly
// resolved locations.
func (s *GeocodeService) Reverse(ctx context.Context, lat, lon float64) (*models.Location, error) {
	location, err := s.repo.GetLocationByCoordinates(ctx, lat, lon)
	if err == nil {
		s.logger.Info(ctx, "[GEOCODE_CACHED] Returned location from storage", logging.Fields{
			"name": location.Name,
		})
		return location, nil
	}

	var notFound *repository.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, fmt.Errorf("failed to look up location: %w", err)
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("limit", "1")

	var results []geocodeResult
	if err := s.fetcher.FetchJSON(ctx, openweather.ReverseGeocodePath, params, &results); err != nil {
		return nil, fmt.Errorf("reverse geocode (%v, %v): %w", lat, lon, err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: (%v, %v)", ErrLocationNotFound, lat, lon)
	}

	location = s.toLocation(results[0])
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		return nil, fmt.Errorf("persist resolved location: %w", err)
	}

	s.logger.Info(ctx, "[GEOCODE_RESOLVED] Fetched location from provider", logging.Fields{
		"name":        location.Name,
		"location_id": location.ID,
	})

	return location, nil
}

func (s *GeocodeService) toLocation(result geocodeResult) *models.Location {
	return &models.Location{
		Name:      strings.TrimSpace(result.Name),
		Country:   result.Country,
		State:     result.State,
		Latitude:  result.Lat,
		Longitude: result.Lon,
		CreatedAt: time.Now().UTC(),
	}
}
