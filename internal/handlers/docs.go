package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Weather Pipeline API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	latParam := map[string]interface{}{
		"name":        "lat",
		"in":          "query",
		"description": "Latitude in decimal degrees",
		"required":    true,
		"schema":      map[string]string{"type": "number", "format": "double"},
	}
	lonParam := map[string]interface{}{
		"name":        "lon",
		"in":          "query",
		"description": "Longitude in decimal degrees",
		"required":    true,
		"schema":      map[string]string{"type": "number", "format": "double"},
	}

	errorSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"error":   map[string]string{"type": "string"},
			"message": map[string]string{"type": "string"},
			"code":    map[string]string{"type": "integer"},
		},
	}

	queuedResponse := map[string]interface{}{
		"202": map[string]interface{}{
			"description": "Job queued",
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"message": map[string]string{"type": "string"},
						},
					},
				},
			},
		},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Weather Data Pipeline API",
			"description": "Weather ETL pipeline with scheduled OpenWeatherMap ingestion, PostgreSQL storage, and analytics over observations and forecasts",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Weather Pipeline Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/weather/current": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get recent observations",
					"description": "Retrieve observations recorded within the last hour for the location at the given coordinates",
					"parameters":  []map[string]interface{}{latParam, lonParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Recent observations",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type":  "array",
										"items": map[string]string{"type": "object"},
									},
								},
							},
						},
						"404": map[string]interface{}{
							"description": "Unknown location or no recent data",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": errorSchema},
							},
						},
					},
				},
			},
			"/api/weather/forecast": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get recent forecast entries",
					"description": "Retrieve forecast entries ingested within the last six hours for the location at the given coordinates",
					"parameters":  []map[string]interface{}{latParam, lonParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Recent forecast entries",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type":  "array",
										"items": map[string]string{"type": "object"},
									},
								},
							},
						},
						"404": map[string]interface{}{
							"description": "Unknown location or no recent data",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": errorSchema},
							},
						},
					},
				},
			},
			"/api/analytics/weather-trends": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get weather trends",
					"description": "Composite analytics: historical trends, forecast analysis, statistical aggregates, and severe-weather alerts",
					"parameters": []map[string]interface{}{
						latParam,
						lonParam,
						{
							"name":        "days",
							"in":          "query",
							"description": "Historical lookback in days, 1 to 30 (default: 7)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 7},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Weather trends for the location",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"historical": map[string]string{"type": "object"},
											"forecast":   map[string]string{"type": "object"},
											"statistics": map[string]string{"type": "object"},
											"alerts": map[string]interface{}{
												"type":  "array",
												"items": map[string]string{"type": "object"},
											},
										},
									},
								},
							},
						},
						"400": map[string]interface{}{
							"description": "Invalid coordinates or days out of range",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": errorSchema},
							},
						},
						"404": map[string]interface{}{
							"description": "Unknown location",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": errorSchema},
							},
						},
					},
				},
			},
			"/api/geocoding/direct": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Geocode a place name",
					"description": "Resolve a city name to coordinates, persisting the location for ingestion",
					"parameters": []map[string]interface{}{
						{
							"name":        "city",
							"in":          "query",
							"description": "City name",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "state",
							"in":          "query",
							"description": "State or region code",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "country",
							"in":          "query",
							"description": "ISO country code",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Resolved location",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]string{"type": "object"},
								},
							},
						},
						"404": map[string]interface{}{
							"description": "No match for the place name",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": errorSchema},
							},
						},
					},
				},
			},
			"/api/geocoding/reverse": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Reverse geocode coordinates",
					"description": "Resolve coordinates to a named location, persisting it for ingestion",
					"parameters":  []map[string]interface{}{latParam, lonParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Resolved location",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]string{"type": "object"},
								},
							},
						},
						"404": map[string]interface{}{
							"description": "No location at the coordinates",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": errorSchema},
							},
						},
					},
				},
			},
			"/api/jobs/current-weather": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Trigger a current-weather ingestion run",
					"description": "Queue an immediate current-weather fetch for all tracked locations",
					"responses":   queuedResponse,
				},
			},
			"/api/jobs/forecast": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Trigger a forecast ingestion run",
					"description": "Queue an immediate forecast fetch for all tracked locations",
					"responses":   queuedResponse,
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check API and database connectivity",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Service is healthy",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status":    map[string]string{"type": "string"},
											"timestamp": map[string]string{"type": "string"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
