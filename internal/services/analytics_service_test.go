package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/models"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/repository"
)

func forecastEntry(at time.Time, temp float64, condition string, windSpeed float64, rain, snow *float64) *models.ForecastEntry {
	return &models.ForecastEntry{
		LocationID:  1,
		Condition:   condition,
		Description: condition,
		ForecastAt:  at,
		Temperature: temp,
		WindSpeed:   windSpeed,
		Rain:        rain,
		Snow:        snow,
	}
}

func TestSummarizeForecast(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		entries         []*models.ForecastEntry
		wantTemps       []float64
		wantProbability float64
		wantWindAlerts  int
		wantStorms      int
	}{
		{
			name:            "empty entry set yields zero probability",
			entries:         nil,
			wantTemps:       []float64{},
			wantProbability: 0,
		},
		{
			name: "precipitation probability counts rain or snow entries",
			entries: []*models.ForecastEntry{
				forecastEntry(base, 10.5, "Rain", 3, ptr(1.2), nil),
				forecastEntry(base.Add(3*time.Hour), 11.0, "Clear", 4, nil, nil),
				forecastEntry(base.Add(6*time.Hour), 9.0, "Snow", 5, nil, ptr(0.4)),
				forecastEntry(base.Add(9*time.Hour), 8.5, "Clouds", 2, nil, nil),
			},
			wantTemps:       []float64{10.5, 11.0, 9.0, 8.5},
			wantProbability: 50,
		},
		{
			name: "wind alerts require speed strictly above the threshold",
			entries: []*models.ForecastEntry{
				forecastEntry(base, 10, "Clear", 15.0, nil, nil),
				forecastEntry(base.Add(3*time.Hour), 10, "Clear", 15.1, nil, nil),
				forecastEntry(base.Add(6*time.Hour), 10, "Clear", 22.0, nil, nil),
			},
			wantTemps:       []float64{10, 10, 10},
			wantProbability: 0,
			wantWindAlerts:  2,
		},
		{
			name: "storm warnings flag thunderstorm and hurricane only",
			entries: []*models.ForecastEntry{
				forecastEntry(base, 10, "Thunderstorm", 3, nil, nil),
				forecastEntry(base.Add(3*time.Hour), 10, "Tornado", 3, nil, nil),
				forecastEntry(base.Add(6*time.Hour), 10, "Hurricane", 3, nil, nil),
				forecastEntry(base.Add(9*time.Hour), 10, "Drizzle", 3, ptr(0.1), nil),
			},
			wantTemps:       []float64{10, 10, 10, 10},
			wantProbability: 25,
			wantStorms:      2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := summarizeForecast(tt.entries)

			if len(analysis.UpcomingTemperatures) != len(tt.wantTemps) {
				t.Fatalf("UpcomingTemperatures length = %d, want %d",
					len(analysis.UpcomingTemperatures), len(tt.wantTemps))
			}
			for i, temp := range tt.wantTemps {
				if analysis.UpcomingTemperatures[i] != temp {
					t.Errorf("UpcomingTemperatures[%d] = %v, want %v", i, analysis.UpcomingTemperatures[i], temp)
				}
			}

			if analysis.PrecipitationProbability != tt.wantProbability {
				t.Errorf("PrecipitationProbability = %v, want %v",
					analysis.PrecipitationProbability, tt.wantProbability)
			}
			if len(analysis.WindAlerts) != tt.wantWindAlerts {
				t.Errorf("WindAlerts = %d, want %d", len(analysis.WindAlerts), tt.wantWindAlerts)
			}
			if len(analysis.StormWarnings) != tt.wantStorms {
				t.Errorf("StormWarnings = %d, want %d", len(analysis.StormWarnings), tt.wantStorms)
			}
		})
	}
}

func TestSummarizeForecast_PreservesOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []*models.ForecastEntry{
		forecastEntry(base, 1, "Clear", 20, nil, nil),
		forecastEntry(base.Add(3*time.Hour), 2, "Clear", 3, nil, nil),
		forecastEntry(base.Add(6*time.Hour), 3, "Clear", 30, nil, nil),
	}

	analysis := summarizeForecast(entries)

	if len(analysis.WindAlerts) != 2 {
		t.Fatalf("WindAlerts = %d, want 2", len(analysis.WindAlerts))
	}
	if !analysis.WindAlerts[0].Time.Equal(base) {
		t.Errorf("first alert time = %v, want %v", analysis.WindAlerts[0].Time, base)
	}
	if !analysis.WindAlerts[1].Time.Equal(base.Add(6 * time.Hour)) {
		t.Errorf("second alert time = %v, want %v", analysis.WindAlerts[1].Time, base.Add(6*time.Hour))
	}
}

func TestGetWeatherTrends_Validation(t *testing.T) {
	// Any repo call during a rejected request is a failure.
	repo := &fakeRepo{
		getLocationByCoordinates: func(ctx context.Context, lat, lon float64) (*models.Location, error) {
			t.Error("storage must not be consulted for an invalid request")
			return nil, nil
		},
	}
	service := NewAnalyticsService(repo, newTestLogger(), newTestMetrics())

	tests := []struct {
		name string
		lat  float64
		lon  float64
		days int
	}{
		{"days below range", 51.5, -0.12, 0},
		{"days above range", 51.5, -0.12, 31},
		{"latitude out of range", 91, 0, 7},
		{"longitude out of range", 0, -181, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetWeatherTrends(context.Background(), tt.lat, tt.lon, tt.days)

			var invalid *InvalidRequestError
			if !errors.As(err, &invalid) {
				t.Fatalf("error = %v, want *InvalidRequestError", err)
			}
		})
	}
}

func TestGetWeatherTrends_LocationNotFound(t *testing.T) {
	repo := &fakeRepo{
		getLocationByCoordinates: func(ctx context.Context, lat, lon float64) (*models.Location, error) {
			return nil, &repository.NotFoundError{Resource: "location"}
		},
	}
	service := NewAnalyticsService(repo, newTestLogger(), newTestMetrics())

	_, err := service.GetWeatherTrends(context.Background(), 51.5, -0.12, 7)
	if !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("error = %v, want ErrLocationNotFound", err)
	}
}

func TestGetWeatherTrends_StorageFailureSurfaces(t *testing.T) {
	dbErr := errors.New("connection reset")
	repo := &fakeRepo{
		getLocationByCoordinates: func(ctx context.Context, lat, lon float64) (*models.Location, error) {
			return &models.Location{ID: 1, Name: "London"}, nil
		},
		getDailyTemperatureTrends: func(ctx context.Context, locationID int64, start, end time.Time) ([]*models.TemperatureTrend, error) {
			return nil, dbErr
		},
	}
	service := NewAnalyticsService(repo, newTestLogger(), newTestMetrics())

	_, err := service.GetWeatherTrends(context.Background(), 51.5, -0.12, 7)

	var analyticsErr *AnalyticsError
	if !errors.As(err, &analyticsErr) {
		t.Fatalf("error = %v, want *AnalyticsError", err)
	}
	if !errors.Is(err, dbErr) {
		t.Error("wrapped storage error should be reachable via errors.Is")
	}
}

func TestGetWeatherTrends_Composite(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		getLocationByCoordinates: func(ctx context.Context, lat, lon float64) (*models.Location, error) {
			return &models.Location{ID: 9, Name: "Lagos"}, nil
		},
		listForecastEntriesFrom: func(ctx context.Context, locationID int64, start time.Time) ([]*models.ForecastEntry, error) {
			return []*models.ForecastEntry{
				forecastEntry(base, 30.1, "Rain", 2, ptr(3.2), nil),
			}, nil
		},
		listSevereObservations: func(ctx context.Context, locationID int64, since time.Time, conditions []string) ([]*models.Observation, error) {
			if len(conditions) != 3 {
				t.Errorf("conditions = %v, want the three severe categories", conditions)
			}
			return []*models.Observation{
				{
					LocationID:  9,
					Condition:   "Thunderstorm",
					Description: "heavy thunderstorm",
					ObservedAt:  base.Add(-2 * time.Hour),
					Temperature: 26.4,
				},
			}, nil
		},
	}
	service := NewAnalyticsService(repo, newTestLogger(), newTestMetrics())

	trends, err := service.GetWeatherTrends(context.Background(), 6.52, 3.37, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trends.Forecast == nil || trends.Forecast.PrecipitationProbability != 100 {
		t.Errorf("Forecast = %+v, want 100%% precipitation probability", trends.Forecast)
	}
	if len(trends.Alerts) != 1 {
		t.Fatalf("Alerts = %d, want 1", len(trends.Alerts))
	}
	if trends.Alerts[0].Condition != "Thunderstorm" {
		t.Errorf("Alert condition = %v, want Thunderstorm", trends.Alerts[0].Condition)
	}
	if trends.Alerts[0].Rain != 0 {
		t.Errorf("Alert rain = %v, want 0 for a nil volume", trends.Alerts[0].Rain)
	}
	if trends.Historical == nil || trends.Statistics == nil {
		t.Error("Historical and Statistics must be populated")
	}
}
