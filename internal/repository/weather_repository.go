package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/models"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/database"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

// WeatherRepository provides data access for locations, observations, and
// forecast entries
type WeatherRepository interface {
	// Location operations
	CreateLocation(ctx context.Context, loc *models.Location) error
	GetLocationByCoordinates(ctx context.Context, lat, lon float64) (*models.Location, error)
	GetLocationByName(ctx context.Context, name string) (*models.Location, error)
	ListLocations(ctx context.Context) ([]*models.Location, error)

	// Ingestion operations; each batch commits in a single transaction
	InsertObservationsBatch(ctx context.Context, observations []*models.Observation) error
	InsertForecastEntriesBatch(ctx context.Context, entries []*models.ForecastEntry) error

	// Read-side operations
	ListRecentObservations(ctx context.Context, locationID int64, since time.Time) ([]*models.Observation, error)
	ListRecentForecastEntries(ctx context.Context, locationID int64, since time.Time) ([]*models.ForecastEntry, error)

	// Analytics operations
	GetDailyTemperatureTrends(ctx context.Context, locationID int64, start, end time.Time) ([]*models.TemperatureTrend, error)
	GetPrecipitationTotals(ctx context.Context, locationID int64, start, end time.Time) (*models.PrecipitationTotals, error)
	GetWindStats(ctx context.Context, locationID int64, start, end time.Time) (*models.WindStats, error)
	ListForecastEntriesFrom(ctx context.Context, locationID int64, start time.Time) ([]*models.ForecastEntry, error)
	GetObservationAggregates(ctx context.Context, locationID int64, start time.Time) (*models.ObservationAggregates, error)
	ListSevereObservations(ctx context.Context, locationID int64, since time.Time, conditions []string) ([]*models.Observation, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherRepository creates a new weather repository
func NewWeatherRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) WeatherRepository {
	return &weatherRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateLocation persists a resolved location
func (r *weatherRepository) CreateLocation(ctx context.Context, loc *models.Location) error {
	query := `
		INSERT INTO locations (name, country, state, lat, lon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		loc.Name,
		loc.Country,
		loc.State,
		loc.Latitude,
		loc.Longitude,
		loc.CreatedAt,
	).Scan(&loc.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{Constraint: constraintName(err)}
		}
		return fmt.Errorf("failed to create location: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_LOCATION] Location created", logging.Fields{
		"location_id": loc.ID,
		"name":        loc.Name,
	})

	return nil
}

// GetLocationByCoordinates retrieves a location by exact coordinate match
func (r *weatherRepository) GetLocationByCoordinates(ctx context.Context, lat, lon float64) (*models.Location, error) {
	query := `
		SELECT id, name, country, state, lat, lon, created_at
		FROM locations
		WHERE lat = $1 AND lon = $2
	`

	var loc models.Location
	err := r.db.GetContext(ctx, "get_location_by_coordinates", &loc, query, lat, lon)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "location",
			ID:       fmt.Sprintf("(%v, %v)", lat, lon),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	return &loc, nil
}

// GetLocationByName retrieves a location by display name
func (r *weatherRepository) GetLocationByName(ctx context.Context, name string) (*models.Location, error) {
	query := `
		SELECT id, name, country, state, lat, lon, created_at
		FROM locations
		WHERE name = $1
		ORDER BY id
		LIMIT 1
	`

	var loc models.Location
	err := r.db.GetContext(ctx, "get_location_by_name", &loc, query, name)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "location",
			ID:       name,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	return &loc, nil
}

// ListLocations retrieves all tracked locations
func (r *weatherRepository) ListLocations(ctx context.Context) ([]*models.Location, error) {
	query := `
		SELECT id, name, country, state, lat, lon, created_at
		FROM locations
		ORDER BY id
	`

	var locations []*models.Location
	err := r.db.SelectContext(ctx, "list_locations", &locations, query)

	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	return locations, nil
}

// InsertObservationsBatch inserts all observations of one job run in a single
// transaction. Either every row commits or none do.
func (r *weatherRepository) InsertObservationsBatch(ctx context.Context, observations []*models.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.metrics.JobBatchSize.Observe(float64(len(observations)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Observation batch insert completed", logging.Fields{
			"count":       len(observations),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (
			location_id, condition, description, observed_at,
			temperature, feels_like, min_temperature, max_temperature,
			pressure, humidity, sea_level, ground_level,
			wind_degrees, wind_speed, wind_gust,
			rain, snow, cloudiness, visibility,
			sunrise, sunset, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, obs := range observations {
		_, err := stmt.ExecContext(ctx,
			obs.LocationID,
			obs.Condition,
			obs.Description,
			obs.ObservedAt,
			obs.Temperature,
			obs.FeelsLike,
			obs.MinTemp,
			obs.MaxTemp,
			obs.Pressure,
			obs.Humidity,
			obs.SeaLevel,
			obs.GroundLevel,
			obs.WindDegrees,
			obs.WindSpeed,
			obs.WindGust,
			obs.Rain,
			obs.Snow,
			obs.Cloudiness,
			obs.Visibility,
			obs.Sunrise,
			obs.Sunset,
			obs.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &ConflictError{Constraint: constraintName(err)}
			}
			return fmt.Errorf("failed to insert observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// InsertForecastEntriesBatch inserts all forecast entries of one job run in a
// single transaction.
func (r *weatherRepository) InsertForecastEntriesBatch(ctx context.Context, entries []*models.ForecastEntry) error {
	if len(entries) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.metrics.JobBatchSize.Observe(float64(len(entries)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Forecast batch insert completed", logging.Fields{
			"count":       len(entries),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO forecast_entries (
			location_id, condition, description, forecast_at,
			temperature, feels_like, min_temperature, max_temperature,
			pressure, humidity, sea_level, ground_level,
			wind_degrees, wind_speed, wind_gust,
			rain, snow, cloudiness, visibility,
			part_of_day, sunrise, sunset, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		_, err := stmt.ExecContext(ctx,
			entry.LocationID,
			entry.Condition,
			entry.Description,
			entry.ForecastAt,
			entry.Temperature,
			entry.FeelsLike,
			entry.MinTemp,
			entry.MaxTemp,
			entry.Pressure,
			entry.Humidity,
			entry.SeaLevel,
			entry.GroundLevel,
			entry.WindDegrees,
			entry.WindSpeed,
			entry.WindGust,
			entry.Rain,
			entry.Snow,
			entry.Cloudiness,
			entry.Visibility,
			entry.PartOfDay,
			entry.Sunrise,
			entry.Sunset,
			entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert forecast entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListRecentObservations retrieves observations with observed_at >= since
func (r *weatherRepository) ListRecentObservations(ctx context.Context, locationID int64, since time.Time) ([]*models.Observation, error) {
	query := `
		SELECT id, location_id, condition, description, observed_at,
		       temperature, feels_like, min_temperature, max_temperature,
		       pressure, humidity, sea_level, ground_level,
		       wind_degrees, wind_speed, wind_gust,
		       rain, snow, cloudiness, visibility,
		       sunrise, sunset, created_at
		FROM observations
		WHERE location_id = $1 AND observed_at >= $2
		ORDER BY observed_at DESC
	`

	var observations []*models.Observation
	err := r.db.SelectContext(ctx, "list_recent_observations", &observations, query, locationID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent observations: %w", err)
	}

	return observations, nil
}

// ListRecentForecastEntries retrieves forecast entries with forecast_at >= since
func (r *weatherRepository) ListRecentForecastEntries(ctx context.Context, locationID int64, since time.Time) ([]*models.ForecastEntry, error) {
	query := `
		SELECT id, location_id, condition, description, forecast_at,
		       temperature, feels_like, min_temperature, max_temperature,
		       pressure, humidity, sea_level, ground_level,
		       wind_degrees, wind_speed, wind_gust,
		       rain, snow, cloudiness, visibility,
		       part_of_day, sunrise, sunset, created_at
		FROM forecast_entries
		WHERE location_id = $1 AND forecast_at >= $2
		ORDER BY forecast_at
	`

	var entries []*models.ForecastEntry
	err := r.db.SelectContext(ctx, "list_recent_forecast_entries", &entries, query, locationID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent forecast entries: %w", err)
	}

	return entries, nil
}

// GetDailyTemperatureTrends groups observations by calendar date and computes
// per-day temperature statistics
func (r *weatherRepository) GetDailyTemperatureTrends(ctx context.Context, locationID int64, start, end time.Time) ([]*models.TemperatureTrend, error) {
	query := `
		SELECT DATE(observed_at) AS date,
		       AVG(temperature) AS avg_temp,
		       MAX(temperature) AS max_temp,
		       MIN(temperature) AS min_temp
		FROM observations
		WHERE location_id = $1
		  AND observed_at BETWEEN $2 AND $3
		GROUP BY DATE(observed_at)
		ORDER BY date
	`

	var trends []*models.TemperatureTrend
	err := r.db.SelectContext(ctx, "get_daily_temperature_trends", &trends, query, locationID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get temperature trends: %w", err)
	}

	return trends, nil
}

// GetPrecipitationTotals sums rain and snow volumes over the window,
// zero-defaulting when no rows carry volumes
func (r *weatherRepository) GetPrecipitationTotals(ctx context.Context, locationID int64, start, end time.Time) (*models.PrecipitationTotals, error) {
	query := `
		SELECT COALESCE(SUM(rain), 0) AS total_rain,
		       COALESCE(SUM(snow), 0) AS total_snow
		FROM observations
		WHERE location_id = $1
		  AND observed_at BETWEEN $2 AND $3
	`

	var totals models.PrecipitationTotals
	err := r.db.GetContext(ctx, "get_precipitation_totals", &totals, query, locationID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get precipitation totals: %w", err)
	}

	return &totals, nil
}

// GetWindStats computes wind speed aggregates over the window
func (r *weatherRepository) GetWindStats(ctx context.Context, locationID int64, start, end time.Time) (*models.WindStats, error) {
	query := `
		SELECT AVG(wind_speed) AS avg_wind,
		       MAX(wind_speed) AS max_wind
		FROM observations
		WHERE location_id = $1
		  AND observed_at BETWEEN $2 AND $3
	`

	var stats models.WindStats
	err := r.db.GetContext(ctx, "get_wind_stats", &stats, query, locationID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get wind stats: %w", err)
	}

	return &stats, nil
}

// ListForecastEntriesFrom retrieves forecast entries at or after start,
// ordered by forecast time ascending
func (r *weatherRepository) ListForecastEntriesFrom(ctx context.Context, locationID int64, start time.Time) ([]*models.ForecastEntry, error) {
	query := `
		SELECT id, location_id, condition, description, forecast_at,
		       temperature, feels_like, min_temperature, max_temperature,
		       pressure, humidity, sea_level, ground_level,
		       wind_degrees, wind_speed, wind_gust,
		       rain, snow, cloudiness, visibility,
		       part_of_day, sunrise, sunset, created_at
		FROM forecast_entries
		WHERE location_id = $1 AND forecast_at >= $2
		ORDER BY forecast_at
	`

	var entries []*models.ForecastEntry
	err := r.db.SelectContext(ctx, "list_forecast_entries_from", &entries, query, locationID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast entries: %w", err)
	}

	return entries, nil
}

// GetObservationAggregates computes rolling statistics over observations at or
// after start
func (r *weatherRepository) GetObservationAggregates(ctx context.Context, locationID int64, start time.Time) (*models.ObservationAggregates, error) {
	query := `
		SELECT AVG(temperature) AS avg_temp,
		       MAX(temperature) AS max_temp,
		       MIN(temperature) AS min_temp,
		       AVG(humidity) AS avg_humidity,
		       COALESCE(SUM(rain), 0) AS total_rain,
		       COALESCE(SUM(snow), 0) AS total_snow
		FROM observations
		WHERE location_id = $1 AND observed_at >= $2
	`

	var aggregates models.ObservationAggregates
	err := r.db.GetContext(ctx, "get_observation_aggregates", &aggregates, query, locationID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to get observation aggregates: %w", err)
	}

	return &aggregates, nil
}

// ListSevereObservations retrieves observations since the cutoff whose
// condition category is in the given set
func (r *weatherRepository) ListSevereObservations(ctx context.Context, locationID int64, since time.Time, conditions []string) ([]*models.Observation, error) {
	query := `
		SELECT id, location_id, condition, description, observed_at,
		       temperature, feels_like, min_temperature, max_temperature,
		       pressure, humidity, sea_level, ground_level,
		       wind_degrees, wind_speed, wind_gust,
		       rain, snow, cloudiness, visibility,
		       sunrise, sunset, created_at
		FROM observations
		WHERE location_id = $1
		  AND observed_at >= $2
		  AND condition = ANY($3)
		ORDER BY observed_at
	`

	var observations []*models.Observation
	err := r.db.SelectContext(ctx, "list_severe_observations", &observations, query, locationID, since, pq.Array(conditions))
	if err != nil {
		return nil, fmt.Errorf("failed to list severe observations: %w", err)
	}

	return observations, nil
}

// HealthCheck performs a repository health check
func (r *weatherRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// ConflictError represents a uniqueness constraint violation, e.g. a duplicate
// observation for the same location and timestamp
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("storage conflict on constraint %q", e.Constraint)
}

func (e *ConflictError) IsTransient() bool {
	return false
}

// uniqueViolationCode is the PostgreSQL error code for unique_violation.
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

func constraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
