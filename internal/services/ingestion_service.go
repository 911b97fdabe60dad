package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/models"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/openweather"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/repository"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

// JobKind identifies which ingestion pipeline a run executes
type JobKind string

const (
	JobCurrentWeather JobKind = "current_weather"
	JobForecast       JobKind = "forecast"
)

// WeatherFetcher issues parameterized GET requests against the weather
// provider and decodes the JSON response
type WeatherFetcher interface {
	FetchJSON(ctx context.Context, path string, params url.Values, dest interface{}) error
}

// IngestionService orchestrates scheduled fetch/transform/load runs across all
// tracked locations
type IngestionService struct {
	repo    repository.WeatherRepository
	fetcher WeatherFetcher
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// JobResult contains statistics for one completed job run
type JobResult struct {
	RunID     string
	Kind      JobKind
	Locations int
	Records   int
	Duration  time.Duration
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.WeatherRepository, fetcher WeatherFetcher, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		fetcher: fetcher,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// RunJob executes one ingestion run of the given kind across all tracked
// locations. Per-location units run concurrently; all of them must succeed
// before anything is persisted. A single failing unit aborts the whole run
// with nothing committed.
func (s *IngestionService) RunJob(ctx context.Context, kind JobKind) (*JobResult, error) {
	switch kind {
	case JobCurrentWeather, JobForecast:
	default:
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}

	startTime := time.Now()
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logging.JobRunIDKey, runID)

	log := s.logger.WithFields(logging.Fields{
		"run_id": runID,
		"kind":   string(kind),
	})

	log.Info(ctx, "[JOB_START] Starting ingestion job run", logging.Fields{
		"stage": "INITIALIZATION",
	})

	locations, err := s.repo.ListLocations(ctx)
	if err != nil {
		s.metrics.RecordJobRun(string(kind), "failed")
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	if len(locations) == 0 {
		log.Warn(ctx, "[JOB_EMPTY] No tracked locations; nothing to ingest", logging.Fields{})
		s.metrics.RecordJobRun(string(kind), "empty")
		return &JobResult{RunID: runID, Kind: kind, Duration: time.Since(startTime)}, nil
	}

	var records int
	switch kind {
	case JobCurrentWeather:
		records, err = s.runCurrentWeather(ctx, locations)
	case JobForecast:
		records, err = s.runForecast(ctx, locations)
	}

	duration := time.Since(startTime)
	s.metrics.JobDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())

	if err != nil {
		s.metrics.RecordJobRun(string(kind), "failed")
		log.Error(ctx, "[JOB_FAILED] Ingestion job run failed; nothing persisted", logging.Fields{
			"locations":        len(locations),
			"duration_seconds": duration.Seconds(),
		}, err)
		return nil, err
	}

	s.metrics.RecordJobRun(string(kind), "succeeded")
	s.metrics.JobRecordsTotal.WithLabelValues(string(kind)).Add(float64(records))

	log.Info(ctx, "[JOB_COMPLETE] Ingestion job run completed", logging.Fields{
		"locations":        len(locations),
		"records":          records,
		"duration_seconds": duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return &JobResult{
		RunID:     runID,
		Kind:      kind,
		Locations: len(locations),
		Records:   records,
		Duration:  duration,
	}, nil
}

// runCurrentWeather fans out one fetch+transform unit per location, joins all
// units, and commits the staged observations in one batch.
func (s *IngestionService) runCurrentWeather(ctx context.Context, locations []*models.Location) (int, error) {
	var mu sync.Mutex
	staged := make([]*models.Observation, 0, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	for _, loc := range locations {
		loc := loc
		g.Go(func() error {
			var payload models.CurrentPayload
			if err := s.fetcher.FetchJSON(gctx, openweather.CurrentWeatherPath, coordParams(loc), &payload); err != nil {
				return fmt.Errorf("fetch current weather for %s: %w", loc.Name, err)
			}

			obs, err := payload.ToObservation(loc.ID)
			if err != nil {
				return fmt.Errorf("transform current weather for %s: %w", loc.Name, err)
			}

			mu.Lock()
			staged = append(staged, obs)
			mu.Unlock()

			s.logger.Debug(gctx, "[JOB_LOCATION] Current weather staged", logging.Fields{
				"location": loc.Name,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := s.repo.InsertObservationsBatch(ctx, staged); err != nil {
		return 0, fmt.Errorf("commit observation batch: %w", err)
	}

	return len(staged), nil
}

// runForecast fans out per location and, within each location, per forecast
// time-slot. All staged entries across all locations commit as one batch.
func (s *IngestionService) runForecast(ctx context.Context, locations []*models.Location) (int, error) {
	var mu sync.Mutex
	var staged []*models.ForecastEntry

	g, gctx := errgroup.WithContext(ctx)
	for _, loc := range locations {
		loc := loc
		g.Go(func() error {
			var payload models.ForecastPayload
			if err := s.fetcher.FetchJSON(gctx, openweather.ForecastPath, coordParams(loc), &payload); err != nil {
				return fmt.Errorf("fetch forecast for %s: %w", loc.Name, err)
			}

			entries := make([]*models.ForecastEntry, len(payload.List))

			slots, sctx := errgroup.WithContext(gctx)
			for i := range payload.List {
				i := i
				slots.Go(func() error {
					if err := sctx.Err(); err != nil {
						return err
					}
					entry, err := payload.List[i].ToForecastEntry(payload.City, loc.ID)
					if err != nil {
						return fmt.Errorf("transform forecast slot for %s: %w", loc.Name, err)
					}
					entries[i] = entry
					return nil
				})
			}
			if err := slots.Wait(); err != nil {
				return err
			}

			mu.Lock()
			staged = append(staged, entries...)
			mu.Unlock()

			s.logger.Debug(gctx, "[JOB_LOCATION] Forecast entries staged", logging.Fields{
				"location": loc.Name,
				"slots":    len(entries),
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := s.repo.InsertForecastEntriesBatch(ctx, staged); err != nil {
		return 0, fmt.Errorf("commit forecast batch: %w", err)
	}

	return len(staged), nil
}

func coordParams(loc *models.Location) url.Values {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	return params
}
