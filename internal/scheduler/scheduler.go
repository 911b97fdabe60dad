package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/config"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/services"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
)

// jobTimeout bounds a single scheduled job run.
const jobTimeout = 10 * time.Minute

// JobRunner executes one ingestion job run of the given kind
type JobRunner interface {
	RunJob(ctx context.Context, kind services.JobKind) (*services.JobResult, error)
}

// Scheduler triggers ingestion job runs on fixed intervals, independent of
// request traffic. The two job kinds run on independent schedules and may
// overlap. A trigger arriving later than the misfire grace window is dropped
// with a logged notice rather than queued.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    JobRunner
	logger    *logging.StructuredLogger
	grace     time.Duration
	intervals map[services.JobKind]time.Duration

	mu   sync.Mutex
	next map[services.JobKind]time.Time
}

// New creates a scheduler from configuration with an injected job runner.
func New(runner JobRunner, cfg config.SchedulerConfig, logger *logging.StructuredLogger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		logger:    logger,
		grace:     cfg.MisfireGrace,
		intervals: map[services.JobKind]time.Duration{
			services.JobCurrentWeather: time.Duration(cfg.CurrentWeatherIntervalHours) * time.Hour,
			services.JobForecast:       time.Duration(cfg.ForecastIntervalHours) * time.Hour,
		},
		next: make(map[services.JobKind]time.Time),
	}
}

// Start schedules both job kinds and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	now := time.Now()

	for kind, interval := range s.intervals {
		kind := kind

		s.mu.Lock()
		s.next[kind] = now.Add(interval)
		s.mu.Unlock()

		if _, err := s.scheduler.Every(int(interval.Hours())).Hours().Do(func() {
			s.tick(kind)
		}); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()

	s.logger.Info(context.Background(), "[SCHED_START] Ingestion scheduler started", logging.Fields{
		"current_weather_interval": s.intervals[services.JobCurrentWeather].String(),
		"forecast_interval":        s.intervals[services.JobForecast].String(),
		"misfire_grace":            s.grace.String(),
	})

	return nil
}

// Stop stops the scheduler. In-flight runs finish on their own; nothing new
// fires afterwards.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info(context.Background(), "[SCHED_STOP] Ingestion scheduler stopped", logging.Fields{})
}

// tick handles one trigger for the given kind, applying the misfire grace
// window before running the job.
func (s *Scheduler) tick(kind services.JobKind) {
	if !s.admit(kind, time.Now()) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.runner.RunJob(ctx, kind); err != nil {
		// The run already rolled back; wait for the next tick instead of
		// retrying immediately.
		s.logger.Error(ctx, "[SCHED_JOB_FAILED] Scheduled job run failed", logging.Fields{
			"kind": string(kind),
		}, err)
	}
}

// admit decides whether a trigger arriving at now for kind should run, and
// books the next expected trigger time either way.
func (s *Scheduler) admit(kind services.JobKind, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expected := s.next[kind]
	s.next[kind] = now.Add(s.intervals[kind])

	if misfireExceeded(expected, now, s.grace) {
		s.logger.Warn(context.Background(), "[SCHED_MISFIRE] Dropping trigger beyond misfire grace window", logging.Fields{
			"kind":     string(kind),
			"expected": expected.Format(time.RFC3339),
			"late_by":  now.Sub(expected).String(),
			"grace":    s.grace.String(),
		})
		return false
	}

	return true
}

// misfireExceeded reports whether a trigger arriving at now, expected at
// expected, falls outside the grace window. A zero expected time admits the
// trigger unconditionally.
func misfireExceeded(expected, now time.Time, grace time.Duration) bool {
	return !expected.IsZero() && now.Sub(expected) > grace
}
