package services

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/models"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollectorWith("test", prometheus.NewRegistry())
}

// fakeRepo implements repository.WeatherRepository with overridable behavior.
// Unset functions return zero values.
type fakeRepo struct {
	createLocation            func(ctx context.Context, loc *models.Location) error
	getLocationByCoordinates  func(ctx context.Context, lat, lon float64) (*models.Location, error)
	getLocationByName         func(ctx context.Context, name string) (*models.Location, error)
	listLocations             func(ctx context.Context) ([]*models.Location, error)
	insertObservationsBatch   func(ctx context.Context, observations []*models.Observation) error
	insertForecastBatch       func(ctx context.Context, entries []*models.ForecastEntry) error
	listRecentObservations    func(ctx context.Context, locationID int64, since time.Time) ([]*models.Observation, error)
	listRecentForecastEntries func(ctx context.Context, locationID int64, since time.Time) ([]*models.ForecastEntry, error)
	getDailyTemperatureTrends func(ctx context.Context, locationID int64, start, end time.Time) ([]*models.TemperatureTrend, error)
	getPrecipitationTotals    func(ctx context.Context, locationID int64, start, end time.Time) (*models.PrecipitationTotals, error)
	getWindStats              func(ctx context.Context, locationID int64, start, end time.Time) (*models.WindStats, error)
	listForecastEntriesFrom   func(ctx context.Context, locationID int64, start time.Time) ([]*models.ForecastEntry, error)
	getObservationAggregates  func(ctx context.Context, locationID int64, start time.Time) (*models.ObservationAggregates, error)
	listSevereObservations    func(ctx context.Context, locationID int64, since time.Time, conditions []string) ([]*models.Observation, error)
	healthCheck               func(ctx context.Context) error
}

func (f *fakeRepo) CreateLocation(ctx context.Context, loc *models.Location) error {
	if f.createLocation != nil {
		return f.createLocation(ctx, loc)
	}
	return nil
}

func (f *fakeRepo) GetLocationByCoordinates(ctx context.Context, lat, lon float64) (*models.Location, error) {
	if f.getLocationByCoordinates != nil {
		return f.getLocationByCoordinates(ctx, lat, lon)
	}
	return nil, nil
}

func (f *fakeRepo) GetLocationByName(ctx context.Context, name string) (*models.Location, error) {
	if f.getLocationByName != nil {
		return f.getLocationByName(ctx, name)
	}
	return nil, nil
}

func (f *fakeRepo) ListLocations(ctx context.Context) ([]*models.Location, error) {
	if f.listLocations != nil {
		return f.listLocations(ctx)
	}
	return nil, nil
}

func (f *fakeRepo) InsertObservationsBatch(ctx context.Context, observations []*models.Observation) error {
	if f.insertObservationsBatch != nil {
		return f.insertObservationsBatch(ctx, observations)
	}
	return nil
}

func (f *fakeRepo) InsertForecastEntriesBatch(ctx context.Context, entries []*models.ForecastEntry) error {
	if f.insertForecastBatch != nil {
		return f.insertForecastBatch(ctx, entries)
	}
	return nil
}

func (f *fakeRepo) ListRecentObservations(ctx context.Context, locationID int64, since time.Time) ([]*models.Observation, error) {
	if f.listRecentObservations != nil {
		return f.listRecentObservations(ctx, locationID, since)
	}
	return nil, nil
}

func (f *fakeRepo) ListRecentForecastEntries(ctx context.Context, locationID int64, since time.Time) ([]*models.ForecastEntry, error) {
	if f.listRecentForecastEntries != nil {
		return f.listRecentForecastEntries(ctx, locationID, since)
	}
	return nil, nil
}

func (f *fakeRepo) GetDailyTemperatureTrends(ctx context.Context, locationID int64, start, end time.Time) ([]*models.TemperatureTrend, error) {
	if f.getDailyTemperatureTrends != nil {
		return f.getDailyTemperatureTrends(ctx, locationID, start, end)
	}
	return nil, nil
}

func (f *fakeRepo) GetPrecipitationTotals(ctx context.Context, locationID int64, start, end time.Time) (*models.PrecipitationTotals, error) {
	if f.getPrecipitationTotals != nil {
		return f.getPrecipitationTotals(ctx, locationID, start, end)
	}
	return &models.PrecipitationTotals{}, nil
}

func (f *fakeRepo) GetWindStats(ctx context.Context, locationID int64, start, end time.Time) (*models.WindStats, error) {
	if f.getWindStats != nil {
		return f.getWindStats(ctx, locationID, start, end)
	}
	return &models.WindStats{}, nil
}

func (f *fakeRepo) ListForecastEntriesFrom(ctx context.Context, locationID int64, start time.Time) ([]*models.ForecastEntry, error) {
	if f.listForecastEntriesFrom != nil {
		return f.listForecastEntriesFrom(ctx, locationID, start)
	}
	return nil, nil
}

func (f *fakeRepo) GetObservationAggregates(ctx context.Context, locationID int64, start time.Time) (*models.ObservationAggregates, error) {
	if f.getObservationAggregates != nil {
		return f.getObservationAggregates(ctx, locationID, start)
	}
	return &models.ObservationAggregates{}, nil
}

func (f *fakeRepo) ListSevereObservations(ctx context.Context, locationID int64, since time.Time, conditions []string) ([]*models.Observation, error) {
	if f.listSevereObservations != nil {
		return f.listSevereObservations(ctx, locationID, since, conditions)
	}
	return nil, nil
}

func (f *fakeRepo) HealthCheck(ctx context.Context) error {
	if f.healthCheck != nil {
		return f.healthCheck(ctx)
	}
	return nil
}

func ptr(v float64) *float64 {
	return &v
}
