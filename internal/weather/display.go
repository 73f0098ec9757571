package weather

import (
	"math"
	"slices"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const metersPerMile = 1609.34

var aqiLabels = []string{"Good", "Fair", "Moderate", "Poor", "Very Poor"}

var uvThresholds = []struct {
	max   float64
	label string
}{
	{2, "Low"},
	{5, "Moderate"},
	{7, "High"},
	{10, "Very High"},
}

// Display is the rounded, client-ready form of a current observation.
type Display struct {
	Name         string `json:"name"`
	Country      string `json:"country,omitempty"`
	TemperatureC int    `json:"temperatureC"`
	FeelsLikeC   int    `json:"feelsLikeC"`
	Description  string `json:"description"`
	HumidityPct  int    `json:"humidityPercent"`
	VisibilityMi int    `json:"visibilityMiles"`
	WindKmh      int    `json:"windKmh"`
	WindDeg      int    `json:"windDeg"`
	Icon         string `json:"icon"`
	Background   string `json:"background"`
}

// ToDisplay converts a current observation for rendering.
func ToDisplay(c Current) Display {
	visibility := c.VisibilityMeters
	if visibility <= 0 {
		visibility = DefaultVisibilityMeters
	}

	return Display{
		Name:         c.Name,
		Country:      c.Country,
		TemperatureC: roundInt(c.TemperatureC),
		FeelsLikeC:   roundInt(c.FeelsLikeC),
		Description:  cases.Title(language.English).String(c.Description),
		HumidityPct:  roundInt(c.HumidityPct),
		VisibilityMi: roundInt(visibility / metersPerMile),
		WindKmh:      roundInt(c.WindSpeedMS * 3.6),
		WindDeg:      roundInt(c.WindDeg),
		Icon:         IconKey(c.Condition),
		Background:   Background(c),
	}
}

// IsNight reports whether the observation falls outside daylight. Without sunrise
// and sunset it is treated as day.
func (c Current) IsNight() bool {
	if c.Sunrise.IsZero() || c.Sunset.IsZero() || c.Timestamp.IsZero() {
		return false
	}
	return c.Timestamp.Before(c.Sunrise) || c.Timestamp.After(c.Sunset)
}

// Background picks the backdrop key for a day/night and condition pair.
func Background(c Current) string {
	if c.IsNight() {
		switch c.Condition {
		case ConditionRain, ConditionDrizzle, ConditionThunderstorm:
			return "rainy_night"
		case ConditionClouds:
			return "cloudy_night"
		default:
			return "clear_night"
		}
	}

	switch c.Condition {
	case ConditionThunderstorm:
		return "thunderstorm"
	case ConditionRain, ConditionDrizzle:
		return "rainy_day"
	case ConditionSnow:
		return "snowy_day"
	case ConditionClouds:
		return "cloudy_day"
	default:
		return "sunny_day"
	}
}

// AirQualityLabel returns the label for an AQI of 1-5, or "" when unknown.
func AirQualityLabel(aq *AirQuality) string {
	if aq == nil || aq.AQI < 1 || aq.AQI > len(aqiLabels) {
		return ""
	}
	return aqiLabels[aq.AQI-1]
}

// UVLabel classifies a UV index. A nil index yields "Unknown".
func UVLabel(uv *float64) string {
	if uv == nil {
		return "Unknown"
	}
	for _, t := range uvThresholds {
		if *uv <= t.max {
			return t.label
		}
	}
	return "Extreme"
}

// RainLikelihood summarizes whether it is raining now and the chance of rain in the next forecast step.
type RainLikelihood struct {
	IsRaining bool   `json:"isRaining"`
	Percent   *int   `json:"percent,omitempty"`
	Label     string `json:"label,omitempty"`
}

// RainOutlook derives the rain likelihood from the current observation and the
// first forecast step that has not yet passed at now.
func RainOutlook(c Current, forecast []ForecastEntry, now time.Time) RainLikelihood {
	out := RainLikelihood{IsRaining: IsRaining(c.Main)}
	idx := slices.IndexFunc(forecast, func(f ForecastEntry) bool { return !f.Time.Before(now) })
	if idx < 0 {
		return out
	}

	pct := roundInt(forecast[idx].PrecipProbability * 100)
	out.Percent = &pct
	if pct >= 50 {
		out.Label = "Likely to Rain"
	} else {
		out.Label = "Unlikely to Rain"
	}
	return out
}

func roundInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}
