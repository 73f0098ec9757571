// Package condition estimates how wet and muddy a playing surface is from recent weather.
package condition

import (
	"math"
	"time"

	"github.com/i474232898/pitchside/internal/weather"
)

const (
	defaultMeanTempC    = 15
	defaultTotalHours   = 48
	dryingWindowHours   = 12
	wetnessRainMm       = 15
	muddinessRainMm     = 20
	humidityBaselinePct = 50
)

// Inputs are the weather signals the model combines.
type Inputs struct {
	IsRaining    bool
	HumidityPct  float64
	RecentRainMm float64
	PastHourly   []weather.HourlySample
}

// InputsFromBundle extracts model inputs from a cached weather bundle.
func InputsFromBundle(b *weather.Bundle) Inputs {
	humidity := b.Current.HumidityPct
	if math.IsNaN(humidity) {
		humidity = weather.DefaultHumidityPct
	}
	return Inputs{
		IsRaining:    weather.IsRaining(b.Current.Main),
		HumidityPct:  humidity,
		RecentRainMm: b.RecentRainMm,
		PastHourly:   b.PastHourly,
	}
}

// Score is a surface estimate. Both values are integers in [0,100].
type Score struct {
	WetnessPct   int `json:"wetness"`
	MuddinessPct int `json:"muddiness"`
}

// Compute scores the surface at now.
func Compute(in Inputs, now time.Time) Score {
	rainMm := finite(in.RecentRainMm)
	humidityFactor := clamp01((finite(in.HumidityPct) - humidityBaselinePct) / humidityBaselinePct)

	rainHours := countRainHours(in.PastHourly)
	since := hoursSinceRain(in.PastHourly, now)
	meanTemp := meanTemperature(in.PastHourly)
	totalHours := len(in.PastHourly)
	if totalHours == 0 {
		totalHours = defaultTotalHours
	}

	var current, drying float64
	if in.IsRaining {
		current = 1
	}
	if !math.IsInf(since, 1) {
		drying = clamp01(1 - since/dryingWindowHours)
	}

	wetness := 40*current +
		35*clamp01(rainMm/wetnessRainMm) +
		15*humidityFactor +
		10*drying

	muddiness := 45*clamp01(rainMm/muddinessRainMm) +
		25*clamp01(float64(rainHours)/float64(totalHours)) +
		15*clamp01((defaultMeanTempC-meanTemp)/defaultMeanTempC) +
		15*humidityFactor

	return Score{WetnessPct: percent(wetness), MuddinessPct: percent(muddiness)}
}

func countRainHours(samples []weather.HourlySample) int {
	n := 0
	for _, s := range samples {
		if s.Condition().IsRainLike() {
			n++
		}
	}
	return n
}

// hoursSinceRain walks back from the newest sample. It returns +Inf when no sample
// was rainy and never goes below zero, since samples may include later hours of today.
func hoursSinceRain(samples []weather.HourlySample, now time.Time) float64 {
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].Condition().IsRainLike() {
			return math.Max(0, now.Sub(samples[i].Time).Hours())
		}
	}
	return math.Inf(1)
}

func meanTemperature(samples []weather.HourlySample) float64 {
	if len(samples) == 0 {
		return defaultMeanTempC
	}
	var sum float64
	for _, s := range samples {
		sum += finite(s.TemperatureC)
	}
	return sum / float64(len(samples))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func percent(v float64) int {
	return int(math.Max(0, math.Min(100, math.Round(finite(v)))))
}
