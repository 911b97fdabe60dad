package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/models"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/repository"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/services"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

// stubRepo overrides only the methods a test exercises; the embedded
// interface panics on anything else.
type stubRepo struct {
	repository.WeatherRepository

	location     *models.Location
	lookupErr    error
	observations []*models.Observation
	healthErr    error
}

func (s *stubRepo) GetLocationByCoordinates(ctx context.Context, lat, lon float64) (*models.Location, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.location, nil
}

func (s *stubRepo) ListRecentObservations(ctx context.Context, locationID int64, since time.Time) ([]*models.Observation, error) {
	return s.observations, nil
}

func (s *stubRepo) HealthCheck(ctx context.Context) error {
	return s.healthErr
}

func newTestRouter(repo repository.WeatherRepository) *mux.Router {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWith("test", prometheus.NewRegistry())

	weatherService := services.NewWeatherService(repo, logger, collector)
	analyticsService := services.NewAnalyticsService(repo, logger, collector)
	geocodeService := services.NewGeocodeService(repo, nil, logger, collector)
	ingestionService := services.NewIngestionService(repo, nil, logger, collector)

	handler := NewWeatherHandler(
		weatherService,
		analyticsService,
		geocodeService,
		ingestionService,
		repo,
		logger,
		collector,
	)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestGetCurrentWeather_StatusMapping(t *testing.T) {
	recent := []*models.Observation{
		{LocationID: 1, Condition: "Clear", ObservedAt: time.Now().UTC()},
	}

	tests := []struct {
		name       string
		target     string
		repo       *stubRepo
		wantStatus int
	}{
		{
			name:       "recent data returns 200",
			target:     "/api/weather/current?lat=51.5&lon=-0.12",
			repo:       &stubRepo{location: &models.Location{ID: 1, Name: "London"}, observations: recent},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing lat returns 400",
			target:     "/api/weather/current?lon=-0.12",
			repo:       &stubRepo{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown location returns 404",
			target:     "/api/weather/current?lat=51.5&lon=-0.12",
			repo:       &stubRepo{lookupErr: &repository.NotFoundError{Resource: "location"}},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "stale data returns 404",
			target:     "/api/weather/current?lat=51.5&lon=-0.12",
			repo:       &stubRepo{location: &models.Location{ID: 1, Name: "London"}},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.repo)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus >= 400 {
				var resp ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("error body is not JSON: %v", err)
				}
				if resp.Code != tt.wantStatus {
					t.Errorf("body code = %d, want %d", resp.Code, tt.wantStatus)
				}
			}
		})
	}
}

func TestGetWeatherTrends_InvalidDays(t *testing.T) {
	router := newTestRouter(&stubRepo{})

	for _, target := range []string{
		"/api/analytics/weather-trends?lat=51.5&lon=-0.12&days=0",
		"/api/analytics/weather-trends?lat=51.5&lon=-0.12&days=31",
		"/api/analytics/weather-trends?lat=51.5&lon=-0.12&days=abc",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		repo       *stubRepo
		wantStatus int
		wantState  string
	}{
		{"healthy", &stubRepo{}, http.StatusOK, "healthy"},
		{"unhealthy", &stubRepo{healthErr: context.DeadlineExceeded}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.repo)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if body["status"] != tt.wantState {
				t.Errorf("status field = %v, want %v", body["status"], tt.wantState)
			}
		})
	}
}
