package models

import (
	"time"
)

// TemperatureTrend holds per-calendar-date temperature statistics.
type TemperatureTrend struct {
	Date    time.Time `json:"date" db:"date"`
	AvgTemp float64   `json:"avg_temp" db:"avg_temp"`
	MaxTemp float64   `json:"max_temp" db:"max_temp"`
	MinTemp float64   `json:"min_temp" db:"min_temp"`
}

// PrecipitationTotals holds aggregate rain/snow volumes, zero-defaulted.
type PrecipitationTotals struct {
	TotalRain float64 `json:"total_rain" db:"total_rain"`
	TotalSnow float64 `json:"total_snow" db:"total_snow"`
}

// WindStats holds wind speed aggregates; nil when no observations exist.
type WindStats struct {
	AvgWind *float64 `json:"avg_wind" db:"avg_wind"`
	MaxWind *float64 `json:"max_wind" db:"max_wind"`
}

// HistoricalAnalysis bundles the read-side view over stored observations.
type HistoricalAnalysis struct {
	TemperatureTrends []*TemperatureTrend  `json:"temperature_trends"`
	Precipitation     *PrecipitationTotals `json:"precipitation"`
	WindAnalysis      *WindStats           `json:"wind_analysis"`
}

// ForecastItem is one forecast entry projected into an analytics response.
type ForecastItem struct {
	Time        time.Time `json:"forecast_at"`
	Temperature float64   `json:"temperature"`
	Rain        float64   `json:"rain"`
	Snow        float64   `json:"snow"`
	WindSpeed   float64   `json:"wind_speed"`
	Condition   string    `json:"condition"`
}

// ForecastAnalysis summarizes forward-looking forecast entries.
type ForecastAnalysis struct {
	UpcomingTemperatures     []float64       `json:"upcoming_temperatures"`
	PrecipitationProbability float64         `json:"precipitation_probability"`
	WindAlerts               []*ForecastItem `json:"wind_alerts"`
	StormWarnings            []*ForecastItem `json:"storm_warnings"`
}

// ObservationAggregates holds rolling statistics over recent observations.
// Averages and extremes are nil when the window holds no observations.
type ObservationAggregates struct {
	AvgTemp     *float64 `json:"avg_temp" db:"avg_temp"`
	MaxTemp     *float64 `json:"max_temp" db:"max_temp"`
	MinTemp     *float64 `json:"min_temp" db:"min_temp"`
	AvgHumidity *float64 `json:"avg_humidity" db:"avg_humidity"`
	TotalRain   float64  `json:"total_rain" db:"total_rain"`
	TotalSnow   float64  `json:"total_snow" db:"total_snow"`
}

// Alert is a minimal severe-weather record derived from recent observations.
type Alert struct {
	Date        string  `json:"date"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	Rain        float64 `json:"rain"`
	Snow        float64 `json:"snow"`
}

// WeatherTrends is the composite analytics response for one location.
type WeatherTrends struct {
	Historical *HistoricalAnalysis    `json:"historical"`
	Forecast   *ForecastAnalysis      `json:"forecast"`
	Statistics *ObservationAggregates `json:"statistics"`
	Alerts     []*Alert               `json:"alerts"`
}
