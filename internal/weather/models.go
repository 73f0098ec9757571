package weather

import (
	"time"

	"github.com/i474232898/pitchside/internal/geo"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionClear        Condition = "clear"
	ConditionClouds       Condition = "clouds"
	ConditionRain         Condition = "rain"
	ConditionDrizzle      Condition = "drizzle"
	ConditionSnow         Condition = "snow"
	ConditionThunderstorm Condition = "thunderstorm"
	ConditionMist         Condition = "mist"
	ConditionUnknown      Condition = "unknown"
)

// DefaultVisibilityMeters is used when a provider omits visibility.
const DefaultVisibilityMeters = 10000

// DefaultHumidityPct is used when a provider omits humidity.
const DefaultHumidityPct = 50

// Current is the current observation at a point.
type Current struct {
	Name             string    `json:"name"`
	Country          string    `json:"country,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	TemperatureC     float64   `json:"temperatureC"`
	FeelsLikeC       float64   `json:"feelsLikeC"`
	HumidityPct      float64   `json:"humidityPercent"`
	PressureHpa      float64   `json:"pressureHpa"`
	WindSpeedMS      float64   `json:"windSpeed"`
	WindDeg          float64   `json:"windDeg"`
	VisibilityMeters float64   `json:"visibilityMeters"`
	Condition        Condition `json:"condition"`
	// Main is the provider's raw condition group (e.g. "Rain", "Clouds").
	Main        string    `json:"main"`
	Description string    `json:"description"`
	Sunrise     time.Time `json:"sunrise,omitempty"`
	Sunset      time.Time `json:"sunset,omitempty"`
}

// ForecastEntry is one step of the short-range forecast (3-hourly for OpenWeatherMap).
type ForecastEntry struct {
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperatureC"`
	Condition    Condition `json:"condition"`
	// PrecipProbability is the probability of precipitation in [0,1].
	PrecipProbability float64 `json:"pop"`
}

// AirQuality holds the provider's air quality index (1 = good ... 5 = very poor).
type AirQuality struct {
	AQI int `json:"aqi"`
}

// HourlySample is one past hourly observation using WMO weather codes.
type HourlySample struct {
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperatureC"`
	WeatherCode  int       `json:"weatherCode"`
}

// Condition maps the sample's WMO code to the normalized taxonomy.
func (h HourlySample) Condition() Condition {
	return ConditionFromWMO(h.WeatherCode)
}

// Report is what a current-and-forecast provider returns for a point.
type Report struct {
	Current    Current
	Forecast   []ForecastEntry
	AirQuality *AirQuality
	UVIndex    *float64
}

// History is what a history provider returns for a point.
type History struct {
	// DailyPrecipMm is ordered oldest first: [day before yesterday, yesterday, today].
	DailyPrecipMm []float64
	Hourly        []HourlySample
}

// RecentRainMm sums the precipitation of the two most recent full days.
func (h History) RecentRainMm() float64 {
	var total float64
	for i := 0; i < len(h.DailyPrecipMm) && i < 2; i++ {
		total += h.DailyPrecipMm[i]
	}
	return total
}

// Bundle is everything fetched for one grid cell. It is immutable once cached.
type Bundle struct {
	Key          GridKey         `json:"gridKey"`
	Point        geo.Point       `json:"point"`
	Current      Current         `json:"current"`
	Forecast     []ForecastEntry `json:"forecast"`
	AirQuality   *AirQuality     `json:"airQuality,omitempty"`
	UVIndex      *float64        `json:"uvIndex,omitempty"`
	RecentRainMm float64         `json:"recentRainMm"`
	PastHourly   []HourlySample  `json:"pastHourly"`
	FetchedAt    time.Time       `json:"fetchedAt"`
}
