package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/models"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/repository"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

// windAlertSpeed is the wind speed above which a forecast entry becomes an
// alert, in the units the provider reports wind speed in.
const windAlertSpeed = 15.0

// stormConditions are the condition categories flagged as storm warnings in
// forecast analysis.
var stormConditions = map[string]bool{
	"Thunderstorm": true,
	"Hurricane":    true,
}

// severeConditions are the condition categories surfaced as alerts when they
// appear in observations from the last 24 hours.
var severeConditions = []string{"Thunderstorm", "Tornado", "Hurricane"}

// ErrLocationNotFound indicates an analytics query on coordinates that do not
// resolve to a tracked location
var ErrLocationNotFound = errors.New("location not found")

// AnalyticsError wraps a storage failure during analytics aggregation. It is
// surfaced to the caller, never masked with a partial result.
type AnalyticsError struct {
	Stage string
	Err   error
}

func (e *AnalyticsError) Error() string {
	return fmt.Sprintf("analytics %s failed: %v", e.Stage, e.Err)
}

func (e *AnalyticsError) Unwrap() error {
	return e.Err
}

// InvalidRequestError reports an analytics request rejected by validation,
// before any storage query runs.
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid analytics request: %v", e.Err)
}

func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}

// trendsQuery carries the validated parameters of a weather-trends request
type trendsQuery struct {
	Lat  float64 `validate:"gte=-90,lte=90"`
	Lon  float64 `validate:"gte=-180,lte=180"`
	Days int     `validate:"gte=1,lte=30"`
}

var validate = validator.New()

// AnalyticsService computes read-side analytics over stored weather records
type AnalyticsService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalyticsService {
	return &AnalyticsService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetWeatherTrends resolves the location by exact coordinate match and
// computes the composite analytics view over a lookback window of days.
func (s *AnalyticsService) GetWeatherTrends(ctx context.Context, lat, lon float64, days int) (*models.WeatherTrends, error) {
	if err := validate.Struct(trendsQuery{Lat: lat, Lon: lon, Days: days}); err != nil {
		return nil, &InvalidRequestError{Err: err}
	}

	location, err := s.resolveLocation(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -days)
	forecastStart := now.Add(time.Hour)

	historical, err := s.GetHistoricalAnalysis(ctx, location.ID, start, now)
	if err != nil {
		return nil, err
	}

	forecast, err := s.GetForecastAnalysis(ctx, location.ID, forecastStart)
	if err != nil {
		return nil, err
	}

	statistics, err := s.GetStatisticalAggregates(ctx, location.ID, start)
	if err != nil {
		return nil, err
	}

	alerts, err := s.GetWeatherAlerts(ctx, location.ID)
	if err != nil {
		return nil, err
	}

	return &models.WeatherTrends{
		Historical: historical,
		Forecast:   forecast,
		Statistics: statistics,
		Alerts:     alerts,
	}, nil
}

// GetHistoricalAnalysis groups observations by calendar date within the window
// and computes trend and aggregate statistics.
func (s *AnalyticsService) GetHistoricalAnalysis(ctx context.Context, locationID int64, start, end time.Time) (*models.HistoricalAnalysis, error) {
	timer := s.metrics.NewTimer(s.metrics.AnalyticsQueryDuration.WithLabelValues("historical"))
	defer timer.ObserveDuration()

	trends, err := s.repo.GetDailyTemperatureTrends(ctx, locationID, start, end)
	if err != nil {
		return nil, &AnalyticsError{Stage: "temperature trends", Err: err}
	}

	precipitation, err := s.repo.GetPrecipitationTotals(ctx, locationID, start, end)
	if err != nil {
		return nil, &AnalyticsError{Stage: "precipitation totals", Err: err}
	}

	wind, err := s.repo.GetWindStats(ctx, locationID, start, end)
	if err != nil {
		return nil, &AnalyticsError{Stage: "wind analysis", Err: err}
	}

	return &models.HistoricalAnalysis{
		TemperatureTrends: trends,
		Precipitation:     precipitation,
		WindAnalysis:      wind,
	}, nil
}

// GetForecastAnalysis summarizes forecast entries from start onward: the
// ordered temperature sequence, precipitation probability, wind alerts, and
// storm warnings.
func (s *AnalyticsService) GetForecastAnalysis(ctx context.Context, locationID int64, start time.Time) (*models.ForecastAnalysis, error) {
	timer := s.metrics.NewTimer(s.metrics.AnalyticsQueryDuration.WithLabelValues("forecast"))
	defer timer.ObserveDuration()

	entries, err := s.repo.ListForecastEntriesFrom(ctx, locationID, start)
	if err != nil {
		return nil, &AnalyticsError{Stage: "forecast listing", Err: err}
	}

	return summarizeForecast(entries), nil
}

// GetStatisticalAggregates computes rolling statistics over observations at or
// after start.
func (s *AnalyticsService) GetStatisticalAggregates(ctx context.Context, locationID int64, start time.Time) (*models.ObservationAggregates, error) {
	timer := s.metrics.NewTimer(s.metrics.AnalyticsQueryDuration.WithLabelValues("statistics"))
	defer timer.ObserveDuration()

	aggregates, err := s.repo.GetObservationAggregates(ctx, locationID, start)
	if err != nil {
		return nil, &AnalyticsError{Stage: "statistical aggregates", Err: err}
	}

	return aggregates, nil
}

// GetWeatherAlerts surfaces severe-weather observations from the last 24 hours.
func (s *AnalyticsService) GetWeatherAlerts(ctx context.Context, locationID int64) ([]*models.Alert, error) {
	timer := s.metrics.NewTimer(s.metrics.AnalyticsQueryDuration.WithLabelValues("alerts"))
	defer timer.ObserveDuration()

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	observations, err := s.repo.ListSevereObservations(ctx, locationID, cutoff, severeConditions)
	if err != nil {
		return nil, &AnalyticsError{Stage: "alerts", Err: err}
	}

	alerts := make([]*models.Alert, 0, len(observations))
	for _, obs := range observations {
		alerts = append(alerts, &models.Alert{
			Date:        obs.ObservedAt.Format(time.RFC3339),
			Condition:   obs.Condition,
			Description: obs.Description,
			Temperature: obs.Temperature,
			Rain:        zeroDefault(obs.Rain),
			Snow:        zeroDefault(obs.Snow),
		})
	}

	return alerts, nil
}

func (s *AnalyticsService) resolveLocation(ctx context.Context, lat, lon float64) (*models.Location, error) {
	location, err := s.repo.GetLocationByCoordinates(ctx, lat, lon)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: (%v, %v)", ErrLocationNotFound, lat, lon)
		}
		return nil, &AnalyticsError{Stage: "location lookup", Err: err}
	}
	return location, nil
}

// summarizeForecast derives the forecast analysis from entries already ordered
// by forecast time. Wind alerts and storm warnings are order-preserving
// subsequences of the input.
func summarizeForecast(entries []*models.ForecastEntry) *models.ForecastAnalysis {
	analysis := &models.ForecastAnalysis{
		UpcomingTemperatures: make([]float64, 0, len(entries)),
		WindAlerts:           []*models.ForecastItem{},
		StormWarnings:        []*models.ForecastItem{},
	}

	var withPrecipitation int
	for _, entry := range entries {
		analysis.UpcomingTemperatures = append(analysis.UpcomingTemperatures, entry.Temperature)

		if zeroDefault(entry.Rain) > 0 || zeroDefault(entry.Snow) > 0 {
			withPrecipitation++
		}

		item := &models.ForecastItem{
			Time:        entry.ForecastAt,
			Temperature: entry.Temperature,
			Rain:        zeroDefault(entry.Rain),
			Snow:        zeroDefault(entry.Snow),
			WindSpeed:   entry.WindSpeed,
			Condition:   entry.Condition,
		}

		if entry.WindSpeed > windAlertSpeed {
			analysis.WindAlerts = append(analysis.WindAlerts, item)
		}
		if stormConditions[entry.Condition] {
			analysis.StormWarnings = append(analysis.StormWarnings, item)
		}
	}

	// Probability is defined as 0 for an empty entry set.
	if len(entries) > 0 {
		analysis.PrecipitationProbability = float64(withPrecipitation) / float64(len(entries)) * 100
	}

	return analysis
}

func zeroDefault(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
