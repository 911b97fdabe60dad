package models

import (
	"fmt"
	"math"
	"time"
)

// kelvinOffset converts provider temperatures (Kelvin) to Celsius.
const kelvinOffset = 273.15

// CurrentPayload is the decoded provider response for the current-weather
// endpoint, limited to the fields the pipeline consumes. Blocks that the
// transform requires are pointers so their absence is detectable.
type CurrentPayload struct {
	Weather    []WeatherBlock `json:"weather"`
	Dt         int64          `json:"dt"`
	Main       *MainBlock     `json:"main"`
	Wind       *WindBlock     `json:"wind"`
	Rain       *VolumeBlock   `json:"rain"`
	Snow       *VolumeBlock   `json:"snow"`
	Clouds     *CloudsBlock   `json:"clouds"`
	Visibility *float64       `json:"visibility"`
	Sys        *SunTimes      `json:"sys"`
}

// ForecastPayload is the decoded provider response for the forecast endpoint.
type ForecastPayload struct {
	List []ForecastSlot `json:"list"`
	City *CityBlock     `json:"city"`
}

// ForecastSlot is one 3-hour forecast time-slot within a ForecastPayload.
type ForecastSlot struct {
	Weather    []WeatherBlock `json:"weather"`
	Dt         int64          `json:"dt"`
	Main       *MainBlock     `json:"main"`
	Wind       *WindBlock     `json:"wind"`
	Rain       *VolumeBlock   `json:"rain"`
	Snow       *VolumeBlock   `json:"snow"`
	Clouds     *CloudsBlock   `json:"clouds"`
	Visibility *float64       `json:"visibility"`
	Sys        *PartOfDay     `json:"sys"`
}

// WeatherBlock carries the condition category and its description.
type WeatherBlock struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// MainBlock carries the core temperature and pressure readings (Kelvin/hPa).
type MainBlock struct {
	Temp      float64  `json:"temp"`
	FeelsLike float64  `json:"feels_like"`
	TempMin   float64  `json:"temp_min"`
	TempMax   float64  `json:"temp_max"`
	Pressure  float64  `json:"pressure"`
	Humidity  int      `json:"humidity"`
	SeaLevel  *float64 `json:"sea_level"`
	GrndLevel *float64 `json:"grnd_level"`
}

// WindBlock carries wind direction, speed, and optional gust.
type WindBlock struct {
	Deg   float64  `json:"deg"`
	Speed float64  `json:"speed"`
	Gust  *float64 `json:"gust"`
}

// VolumeBlock carries rain or snow accumulation volumes. Current-weather
// payloads report the last hour, forecast slots the 3-hour window.
type VolumeBlock struct {
	OneHour   *float64 `json:"1h"`
	ThreeHour *float64 `json:"3h"`
}

// CloudsBlock carries cloud cover percentage.
type CloudsBlock struct {
	All int `json:"all"`
}

// SunTimes carries sunrise/sunset epoch timestamps on current payloads.
type SunTimes struct {
	Sunrise int64 `json:"sunrise"`
	Sunset  int64 `json:"sunset"`
}

// PartOfDay carries the day/night indicator on forecast slots.
type PartOfDay struct {
	Pod string `json:"pod"`
}

// CityBlock carries per-city sunrise/sunset on forecast responses.
type CityBlock struct {
	Sunrise int64 `json:"sunrise"`
	Sunset  int64 `json:"sunset"`
}

// MalformedPayloadError reports a provider payload missing a required block.
// Fatal for the record it occurred on; never retried.
type MalformedPayloadError struct {
	Field string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed provider payload: missing required field %q", e.Field)
}

// IsTransient returns false as malformed payloads are permanent
func (e *MalformedPayloadError) IsTransient() bool {
	return false
}

// ToObservation converts a current-weather payload into an Observation.
// Temperatures convert by exactly Kelvin-273.15 and are stored unrounded,
// unlike forecast entries. Optional fields stay nil when absent.
func (p *CurrentPayload) ToObservation(locationID int64) (*Observation, error) {
	if len(p.Weather) == 0 {
		return nil, &MalformedPayloadError{Field: "weather"}
	}
	if p.Main == nil {
		return nil, &MalformedPayloadError{Field: "main"}
	}
	if p.Wind == nil {
		return nil, &MalformedPayloadError{Field: "wind"}
	}
	if p.Clouds == nil {
		return nil, &MalformedPayloadError{Field: "clouds"}
	}
	if p.Sys == nil {
		return nil, &MalformedPayloadError{Field: "sys"}
	}

	return &Observation{
		LocationID:  locationID,
		Condition:   p.Weather[0].Main,
		Description: p.Weather[0].Description,
		ObservedAt:  time.Unix(p.Dt, 0).UTC(),
		Temperature: p.Main.Temp - kelvinOffset,
		FeelsLike:   p.Main.FeelsLike - kelvinOffset,
		MinTemp:     p.Main.TempMin - kelvinOffset,
		MaxTemp:     p.Main.TempMax - kelvinOffset,
		Pressure:    p.Main.Pressure,
		Humidity:    p.Main.Humidity,
		SeaLevel:    p.Main.SeaLevel,
		GroundLevel: p.Main.GrndLevel,
		WindDegrees: p.Wind.Deg,
		WindSpeed:   p.Wind.Speed,
		WindGust:    p.Wind.Gust,
		Rain:        p.Rain.lastHour(),
		Snow:        p.Snow.lastHour(),
		Cloudiness:  p.Clouds.All,
		Visibility:  p.Visibility,
		Sunrise:     time.Unix(p.Sys.Sunrise, 0).UTC(),
		Sunset:      time.Unix(p.Sys.Sunset, 0).UTC(),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ToForecastEntry converts one forecast slot into a ForecastEntry. Forecast
// temperatures are rounded to two decimal places; sunrise/sunset come from the
// enclosing city block.
func (s *ForecastSlot) ToForecastEntry(city *CityBlock, locationID int64) (*ForecastEntry, error) {
	if len(s.Weather) == 0 {
		return nil, &MalformedPayloadError{Field: "weather"}
	}
	if s.Main == nil {
		return nil, &MalformedPayloadError{Field: "main"}
	}
	if s.Wind == nil {
		return nil, &MalformedPayloadError{Field: "wind"}
	}
	if s.Clouds == nil {
		return nil, &MalformedPayloadError{Field: "clouds"}
	}
	if s.Sys == nil {
		return nil, &MalformedPayloadError{Field: "sys.pod"}
	}
	if city == nil {
		return nil, &MalformedPayloadError{Field: "city"}
	}

	return &ForecastEntry{
		LocationID:  locationID,
		Condition:   s.Weather[0].Main,
		Description: s.Weather[0].Description,
		ForecastAt:  time.Unix(s.Dt, 0).UTC(),
		Temperature: round2(s.Main.Temp - kelvinOffset),
		FeelsLike:   round2(s.Main.FeelsLike - kelvinOffset),
		MinTemp:     round2(s.Main.TempMin - kelvinOffset),
		MaxTemp:     round2(s.Main.TempMax - kelvinOffset),
		Pressure:    s.Main.Pressure,
		Humidity:    s.Main.Humidity,
		SeaLevel:    s.Main.SeaLevel,
		GroundLevel: s.Main.GrndLevel,
		WindDegrees: s.Wind.Deg,
		WindSpeed:   s.Wind.Speed,
		WindGust:    s.Wind.Gust,
		Rain:        s.Rain.threeHour(),
		Snow:        s.Snow.threeHour(),
		Cloudiness:  s.Clouds.All,
		Visibility:  s.Visibility,
		PartOfDay:   s.Sys.Pod,
		Sunrise:     time.Unix(city.Sunrise, 0).UTC(),
		Sunset:      time.Unix(city.Sunset, 0).UTC(),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (v *VolumeBlock) lastHour() *float64 {
	if v == nil {
		return nil
	}
	return v.OneHour
}

func (v *VolumeBlock) threeHour() *float64 {
	if v == nil {
		return nil
	}
	return v.ThreeHour
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
