package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/repository"
	"github.com/Incognitol07/weather-data-pipeline-etl/internal/services"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

// defaultTrendsDays is the lookback window when the query omits days.
const defaultTrendsDays = 7

// WeatherHandler handles the pipeline's API endpoints
type WeatherHandler struct {
	weatherService   *services.WeatherService
	analyticsService *services.AnalyticsService
	geocodeService   *services.GeocodeService
	ingestionService *services.IngestionService
	repo             repository.WeatherRepository
	logger           *logging.StructuredLogger
	metrics          *metrics.Collector
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(
	weatherService *services.WeatherService,
	analyticsService *services.AnalyticsService,
	geocodeService *services.GeocodeService,
	ingestionService *services.IngestionService,
	repo repository.WeatherRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *WeatherHandler {
	return &WeatherHandler{
		weatherService:   weatherService,
		analyticsService: analyticsService,
		geocodeService:   geocodeService,
		ingestionService: ingestionService,
		repo:             repo,
		logger:           logger,
		metrics:          metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// GetCurrentWeather handles GET /api/weather/current
func (h *WeatherHandler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observeDuration("/api/weather/current")()

	lat, lon, ok := h.parseCoordinates(w, r)
	if !ok {
		return
	}

	observations, err := h.weatherService.GetCurrentWeather(ctx, lat, lon)
	if err != nil {
		h.handleServiceError(w, r, "/api/weather/current", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/weather/current", "GET", "200")
	h.sendJSON(w, observations, http.StatusOK)
}

// GetForecast handles GET /api/weather/forecast
func (h *WeatherHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observeDuration("/api/weather/forecast")()

	lat, lon, ok := h.parseCoordinates(w, r)
	if !ok {
		return
	}

	entries, err := h.weatherService.GetForecast(ctx, lat, lon)
	if err != nil {
		h.handleServiceError(w, r, "/api/weather/forecast", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/weather/forecast", "GET", "200")
	h.sendJSON(w, entries, http.StatusOK)
}

// GetWeatherTrends handles GET /api/analytics/weather-trends
func (h *WeatherHandler) GetWeatherTrends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observeDuration("/api/analytics/weather-trends")()

	lat, lon, ok := h.parseCoordinates(w, r)
	if !ok {
		return
	}

	days := defaultTrendsDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil {
			h.sendError(w, r, "invalid days, expected an integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	trends, err := h.analyticsService.GetWeatherTrends(ctx, lat, lon, days)
	if err != nil {
		h.handleServiceError(w, r, "/api/analytics/weather-trends", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/analytics/weather-trends", "GET", "200")
	h.sendJSON(w, trends, http.StatusOK)
}

// GeocodeDirect handles GET /api/geocoding/direct
func (h *WeatherHandler) GeocodeDirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observeDuration("/api/geocoding/direct")()

	city := r.URL.Query().Get("city")
	if city == "" {
		h.sendError(w, r, "city is required", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	country := r.URL.Query().Get("country")

	location, err := h.geocodeService.Direct(ctx, city, state, country)
	if err != nil {
		h.handleServiceError(w, r, "/api/geocoding/direct", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/geocoding/direct", "GET", "200")
	h.sendJSON(w, location, http.StatusOK)
}

// GeocodeReverse handles GET /api/geocoding/reverse
func (h *WeatherHandler) GeocodeReverse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observeDuration("/api/geocoding/reverse")()

	lat, lon, ok := h.parseCoordinates(w, r)
	if !ok {
		return
	}

	location, err := h.geocodeService.Reverse(ctx, lat, lon)
	if err != nil {
		h.handleServiceError(w, r, "/api/geocoding/reverse", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/geocoding/reverse", "GET", "200")
	h.sendJSON(w, location, http.StatusOK)
}

// TriggerCurrentWeatherJob handles POST /api/jobs/current-weather
func (h *WeatherHandler) TriggerCurrentWeatherJob(w http.ResponseWriter, r *http.Request) {
	h.queueJob(w, r, services.JobCurrentWeather, "/api/jobs/current-weather")
}

// TriggerForecastJob handles POST /api/jobs/forecast
func (h *WeatherHandler) TriggerForecastJob(w http.ResponseWriter, r *http.Request) {
	h.queueJob(w, r, services.JobForecast, "/api/jobs/forecast")
}

// queueJob starts an ingestion run in the background and returns immediately.
// Failures of the queued run are logged by the service, not reported here.
func (h *WeatherHandler) queueJob(w http.ResponseWriter, r *http.Request, kind services.JobKind, endpoint string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		h.ingestionService.RunJob(ctx, kind)
	}()

	h.metrics.RecordAPIRequest(endpoint, "POST", "202")
	h.sendJSON(w, map[string]string{
		"message": string(kind) + " job queued successfully",
	}, http.StatusAccepted)
}

// HealthCheck handles GET /health
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.repo.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK] Repository health check failed", logging.Fields{}, err)
		h.sendJSON(w, map[string]string{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// parseCoordinates extracts and validates lat/lon query parameters
func (h *WeatherHandler) parseCoordinates(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		h.sendError(w, r, "invalid lat, expected a number", http.StatusBadRequest)
		return 0, 0, false
	}

	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		h.sendError(w, r, "invalid lon, expected a number", http.StatusBadRequest)
		return 0, 0, false
	}

	return lat, lon, true
}

// handleServiceError maps service errors onto HTTP responses
func (h *WeatherHandler) handleServiceError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	ctx := r.Context()

	var invalid *services.InvalidRequestError
	if errors.As(err, &invalid) {
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.sendError(w, r, invalid.Error(), http.StatusBadRequest)
		return
	}

	if errors.Is(err, services.ErrLocationNotFound) || errors.Is(err, services.ErrNoRecentData) {
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, r, err.Error(), http.StatusNotFound)
		return
	}

	h.logger.Error(ctx, "[API_ERROR] Request failed", logging.Fields{
		"endpoint": endpoint,
	}, err)
	h.metrics.RecordAPIError("internal_error", endpoint)
	h.sendError(w, r, "internal server error", http.StatusInternalServerError)
}

// observeDuration returns a deferred duration observer for an endpoint
func (h *WeatherHandler) observeDuration(endpoint string) func() {
	start := time.Now()
	return func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

// sendJSON sends a JSON response
func (h *WeatherHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *WeatherHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// withRequestID attaches a request ID to the context for structured logging
func (h *WeatherHandler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), logging.RequestIDKey, uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RegisterRoutes registers all API routes
func (h *WeatherHandler) RegisterRoutes(router *mux.Router) {
	router.Use(h.withRequestID)

	router.HandleFunc("/api/weather/current", h.GetCurrentWeather).Methods("GET")
	router.HandleFunc("/api/weather/forecast", h.GetForecast).Methods("GET")
	router.HandleFunc("/api/analytics/weather-trends", h.GetWeatherTrends).Methods("GET")
	router.HandleFunc("/api/geocoding/direct", h.GeocodeDirect).Methods("GET")
	router.HandleFunc("/api/geocoding/reverse", h.GeocodeReverse).Methods("GET")
	router.HandleFunc("/api/jobs/current-weather", h.TriggerCurrentWeatherJob).Methods("POST")
	router.HandleFunc("/api/jobs/forecast", h.TriggerForecastJob).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
