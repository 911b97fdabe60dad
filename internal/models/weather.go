package models

import (
	"time"
)

// Location represents a tracked geographic point. Immutable after geocoding
// resolution; observations and forecast entries reference it by foreign key.
type Location struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Country   string    `json:"country" db:"country"`
	State     *string   `json:"state,omitempty" db:"state"`
	Latitude  float64   `json:"lat" db:"lat"`
	Longitude float64   `json:"lon" db:"lon"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Observation represents a single current-weather snapshot for a location.
// At most one observation exists per (location, observed_at) pair; rows are
// never updated after insert.
type Observation struct {
	ID          int64     `json:"id" db:"id"`
	LocationID  int64     `json:"location_id" db:"location_id"`
	Condition   string    `json:"condition" db:"condition"`
	Description string    `json:"description" db:"description"`
	ObservedAt  time.Time `json:"observed_at" db:"observed_at"`
	Temperature float64   `json:"temperature" db:"temperature"`
	FeelsLike   float64   `json:"feels_like" db:"feels_like"`
	MinTemp     float64   `json:"min_temperature" db:"min_temperature"`
	MaxTemp     float64   `json:"max_temperature" db:"max_temperature"`
	Pressure    float64   `json:"pressure" db:"pressure"`
	Humidity    int       `json:"humidity" db:"humidity"`
	SeaLevel    *float64  `json:"sea_level,omitempty" db:"sea_level"`
	GroundLevel *float64  `json:"ground_level,omitempty" db:"ground_level"`
	WindDegrees float64   `json:"wind_degrees" db:"wind_degrees"`
	WindSpeed   float64   `json:"wind_speed" db:"wind_speed"`
	WindGust    *float64  `json:"wind_gust,omitempty" db:"wind_gust"`
	Rain        *float64  `json:"rain,omitempty" db:"rain"`
	Snow        *float64  `json:"snow,omitempty" db:"snow"`
	Cloudiness  int       `json:"cloudiness" db:"cloudiness"`
	Visibility  *float64  `json:"visibility,omitempty" db:"visibility"`
	Sunrise     time.Time `json:"sunrise" db:"sunrise"`
	Sunset      time.Time `json:"sunset" db:"sunset"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ForecastEntry represents one predicted weather slot for a location. Rain and
// snow volumes cover the 3-hour accumulation window of the slot. Forecast runs
// supersede each other, so duplicates across runs are expected.
type ForecastEntry struct {
	ID          int64     `json:"id" db:"id"`
	LocationID  int64     `json:"location_id" db:"location_id"`
	Condition   string    `json:"condition" db:"condition"`
	Description string    `json:"description" db:"description"`
	ForecastAt  time.Time `json:"forecast_at" db:"forecast_at"`
	Temperature float64   `json:"temperature" db:"temperature"`
	FeelsLike   float64   `json:"feels_like" db:"feels_like"`
	MinTemp     float64   `json:"min_temperature" db:"min_temperature"`
	MaxTemp     float64   `json:"max_temperature" db:"max_temperature"`
	Pressure    float64   `json:"pressure" db:"pressure"`
	Humidity    int       `json:"humidity" db:"humidity"`
	SeaLevel    *float64  `json:"sea_level,omitempty" db:"sea_level"`
	GroundLevel *float64  `json:"ground_level,omitempty" db:"ground_level"`
	WindDegrees float64   `json:"wind_degrees" db:"wind_degrees"`
	WindSpeed   float64   `json:"wind_speed" db:"wind_speed"`
	WindGust    *float64  `json:"wind_gust,omitempty" db:"wind_gust"`
	Rain        *float64  `json:"rain,omitempty" db:"rain"`
	Snow        *float64  `json:"snow,omitempty" db:"snow"`
	Cloudiness  int       `json:"cloudiness" db:"cloudiness"`
	Visibility  *float64  `json:"visibility,omitempty" db:"visibility"`
	PartOfDay   string    `json:"part_of_day" db:"part_of_day"`
	Sunrise     time.Time `json:"sunrise" db:"sunrise"`
	Sunset      time.Time `json:"sunset" db:"sunset"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
