package openweather

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/config"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

func newTestClient(baseURL string) *Client {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)

	return NewClient(config.ProviderConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		RateLimit: 100,
		Burst:     10,
	}, logger, metrics.NewCollectorWith("test", prometheus.NewRegistry()))
}

func TestFetchJSON_InjectsCredential(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"dt": 1700000000}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	params := url.Values{}
	params.Set("lat", "51.5")
	params.Set("lon", "-0.12")

	var dest struct {
		Dt int64 `json:"dt"`
	}
	if err := client.FetchJSON(context.Background(), CurrentWeatherPath, params, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery.Get("appid") != "test-key" {
		t.Errorf("appid = %v, want test-key", gotQuery.Get("appid"))
	}
	if gotQuery.Get("lat") != "51.5" || gotQuery.Get("lon") != "-0.12" {
		t.Errorf("coordinates = (%v, %v), want (51.5, -0.12)", gotQuery.Get("lat"), gotQuery.Get("lon"))
	}
	if dest.Dt != 1700000000 {
		t.Errorf("dt = %v, want 1700000000", dest.Dt)
	}
}

func TestFetchJSON_RejectsCallerCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when parameters are rejected")
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	params := url.Values{}
	params.Set("appid", "sneaky")

	var dest map[string]interface{}
	if err := client.FetchJSON(context.Background(), CurrentWeatherPath, params, &dest); err == nil {
		t.Fatal("expected an error for caller-supplied appid")
	}
}

func TestFetchJSON_DoesNotMutateCallerParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	params := url.Values{}
	params.Set("lat", "0")

	var dest map[string]interface{}
	if err := client.FetchJSON(context.Background(), CurrentWeatherPath, params, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if params.Has("appid") {
		t.Error("caller parameters must not gain the credential")
	}
}

func TestFetchJSON_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"cod":401}`, false},
		{"not found", http.StatusNotFound, `{"cod":"404"}`, false},
		{"rate limited", http.StatusTooManyRequests, `{"cod":429}`, true},
		{"server error", http.StatusInternalServerError, "boom", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)

			var dest map[string]interface{}
			err := client.FetchJSON(context.Background(), ForecastPath, url.Values{}, &dest)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Body != tt.body {
				t.Errorf("Body = %q, want %q", apiErr.Body, tt.body)
			}
			if apiErr.IsTransient() != tt.wantTransient {
				t.Errorf("IsTransient() = %v, want %v", apiErr.IsTransient(), tt.wantTransient)
			}
		})
	}
}

func TestFetchJSON_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var dest map[string]interface{}
	if err := client.FetchJSON(context.Background(), CurrentWeatherPath, url.Values{}, &dest); err == nil {
		t.Fatal("expected a decode error")
	}
}
