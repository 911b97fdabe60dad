package services

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/models"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/openweather"
)

// fakeFetcher returns canned payloads keyed by the lat parameter.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	respond func(path string, params url.Values, dest interface{}) error
}

func (f *fakeFetcher) FetchJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.respond(path, params, dest)
}

func testLocations() []*models.Location {
	return []*models.Location{
		{ID: 1, Name: "London", Country: "GB", Latitude: 51.5074, Longitude: -0.1278},
		{ID: 2, Name: "Lagos", Country: "NG", Latitude: 6.5244, Longitude: 3.3792},
	}
}

func fillCurrentPayload(dest interface{}, temp float64) {
	payload := dest.(*models.CurrentPayload)
	*payload = models.CurrentPayload{
		Weather: []models.WeatherBlock{{Main: "Clear", Description: "clear sky"}},
		Dt:      1700000000,
		Main:    &models.MainBlock{Temp: temp, FeelsLike: temp, TempMin: temp, TempMax: temp, Pressure: 1013, Humidity: 50},
		Wind:    &models.WindBlock{Deg: 90, Speed: 3},
		Clouds:  &models.CloudsBlock{All: 10},
		Sys:     &models.SunTimes{Sunrise: 1699970000, Sunset: 1700010000},
	}
}

func fillForecastPayload(dest interface{}, slots int) {
	payload := dest.(*models.ForecastPayload)
	list := make([]models.ForecastSlot, slots)
	for i := range list {
		list[i] = models.ForecastSlot{
			Weather: []models.WeatherBlock{{Main: "Clouds", Description: "scattered clouds"}},
			Dt:      1700000000 + int64(i)*10800,
			Main:    &models.MainBlock{Temp: 285, FeelsLike: 284, TempMin: 284, TempMax: 286, Pressure: 1010, Humidity: 70},
			Wind:    &models.WindBlock{Deg: 200, Speed: 5},
			Clouds:  &models.CloudsBlock{All: 40},
			Sys:     &models.PartOfDay{Pod: "n"},
		}
	}
	*payload = models.ForecastPayload{
		List: list,
		City: &models.CityBlock{Sunrise: 1699970000, Sunset: 1700010000},
	}
}

func TestRunJob_CurrentWeatherPersistsAllLocations(t *testing.T) {
	var inserted []*models.Observation
	repo := &fakeRepo{
		listLocations: func(ctx context.Context) ([]*models.Location, error) {
			return testLocations(), nil
		},
		insertObservationsBatch: func(ctx context.Context, observations []*models.Observation) error {
			inserted = observations
			return nil
		},
	}
	fetcher := &fakeFetcher{
		respond: func(path string, params url.Values, dest interface{}) error {
			if path != openweather.CurrentWeatherPath {
				t.Errorf("path = %v, want %v", path, openweather.CurrentWeatherPath)
			}
			if params.Get("lat") == "" || params.Get("lon") == "" {
				t.Error("lat and lon must be set on provider requests")
			}
			fillCurrentPayload(dest, 300.15)
			return nil
		},
	}

	service := NewIngestionService(repo, fetcher, newTestLogger(), newTestMetrics())

	result, err := service.RunJob(context.Background(), JobCurrentWeather)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Locations != 2 {
		t.Errorf("Locations = %d, want 2", result.Locations)
	}
	if result.Records != 2 {
		t.Errorf("Records = %d, want 2", result.Records)
	}
	if len(inserted) != 2 {
		t.Fatalf("inserted = %d observations, want 2", len(inserted))
	}
	if result.RunID == "" {
		t.Error("RunID must be assigned")
	}
	if fetcher.calls != 2 {
		t.Errorf("fetcher calls = %d, want one per location", fetcher.calls)
	}
}

func TestRunJob_FailedLocationAbortsWholeBatch(t *testing.T) {
	fetchErr := errors.New("provider unavailable")
	batchCalled := false
	repo := &fakeRepo{
		listLocations: func(ctx context.Context) ([]*models.Location, error) {
			return testLocations(), nil
		},
		insertObservationsBatch: func(ctx context.Context, observations []*models.Observation) error {
			batchCalled = true
			return nil
		},
	}
	fetcher := &fakeFetcher{
		respond: func(path string, params url.Values, dest interface{}) error {
			if params.Get("lat") == "51.5074" {
				return fetchErr
			}
			fillCurrentPayload(dest, 290)
			return nil
		},
	}

	service := NewIngestionService(repo, fetcher, newTestLogger(), newTestMetrics())

	_, err := service.RunJob(context.Background(), JobCurrentWeather)
	if !errors.Is(err, fetchErr) {
		t.Fatalf("error = %v, want the fetch failure", err)
	}
	if batchCalled {
		t.Error("no batch insert may happen when any location fails")
	}
}

func TestRunJob_MalformedPayloadAbortsWholeBatch(t *testing.T) {
	batchCalled := false
	repo := &fakeRepo{
		listLocations: func(ctx context.Context) ([]*models.Location, error) {
			return testLocations(), nil
		},
		insertObservationsBatch: func(ctx context.Context, observations []*models.Observation) error {
			batchCalled = true
			return nil
		},
	}
	fetcher := &fakeFetcher{
		respond: func(path string, params url.Values, dest interface{}) error {
			fillCurrentPayload(dest, 290)
			if params.Get("lat") == "6.5244" {
				dest.(*models.CurrentPayload).Main = nil
			}
			return nil
		},
	}

	service := NewIngestionService(repo, fetcher, newTestLogger(), newTestMetrics())

	_, err := service.RunJob(context.Background(), JobCurrentWeather)

	var malformed *models.MalformedPayloadError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want *MalformedPayloadError", err)
	}
	if batchCalled {
		t.Error("no batch insert may happen when any transform fails")
	}
}

func TestRunJob_ForecastStagesAllSlots(t *testing.T) {
	var inserted []*models.ForecastEntry
	repo := &fakeRepo{
		listLocations: func(ctx context.Context) ([]*models.Location, error) {
			return testLocations(), nil
		},
		insertForecastBatch: func(ctx context.Context, entries []*models.ForecastEntry) error {
			inserted = entries
			return nil
		},
	}
	fetcher := &fakeFetcher{
		respond: func(path string, params url.Values, dest interface{}) error {
			if path != openweather.ForecastPath {
				t.Errorf("path = %v, want %v", path, openweather.ForecastPath)
			}
			fillForecastPayload(dest, 8)
			return nil
		},
	}

	service := NewIngestionService(repo, fetcher, newTestLogger(), newTestMetrics())

	result, err := service.RunJob(context.Background(), JobForecast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Records != 16 {
		t.Errorf("Records = %d, want 8 slots for each of 2 locations", result.Records)
	}
	if len(inserted) != 16 {
		t.Errorf("inserted = %d entries, want 16", len(inserted))
	}

	for _, entry := range inserted {
		if entry.LocationID != 1 && entry.LocationID != 2 {
			t.Errorf("entry has unexpected location %d", entry.LocationID)
		}
		if entry.PartOfDay != "n" {
			t.Errorf("PartOfDay = %v, want n", entry.PartOfDay)
		}
	}
}

func TestRunJob_NoLocationsIsNotAnError(t *testing.T) {
	repo := &fakeRepo{
		listLocations: func(ctx context.Context) ([]*models.Location, error) {
			return nil, nil
		},
	}
	fetcher := &fakeFetcher{
		respond: func(path string, params url.Values, dest interface{}) error {
			t.Error("no provider calls expected without locations")
			return nil
		},
	}

	service := NewIngestionService(repo, fetcher, newTestLogger(), newTestMetrics())

	result, err := service.RunJob(context.Background(), JobCurrentWeather)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Records != 0 || result.Locations != 0 {
		t.Errorf("result = %+v, want an empty run", result)
	}
}

func TestRunJob_UnknownKind(t *testing.T) {
	service := NewIngestionService(&fakeRepo{}, &fakeFetcher{
		respond: func(path string, params url.Values, dest interface{}) error { return nil },
	}, newTestLogger(), newTestMetrics())

	if _, err := service.RunJob(context.Background(), JobKind("hourly")); err == nil {
		t.Fatal("expected an error for an unknown job kind")
	}
}
