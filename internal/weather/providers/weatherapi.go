package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/pitchside/internal/common"
	"github.com/i474232898/pitchside/internal/geo"
	"github.com/i474232898/pitchside/internal/weather"
)

// WeatherAPIProvider implements weather.Provider for WeatherAPI.com. One forecast call
// carries current conditions, hourly forecast, air quality and UV.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	http    *resilientClient
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, logger *zap.Logger) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		http:    newResilientClient("weatherapi", client, DefaultBackoff, logger),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPICondition struct {
	Text string `json:"text"`
	Code int    `json:"code"`
}

type weatherAPIPayload struct {
	Location struct {
		Name      string `json:"name"`
		Country   string `json:"country"`
		Localtime int64  `json:"localtime_epoch"`
	} `json:"location"`
	Current struct {
		LastUpdated int64               `json:"last_updated_epoch"`
		TempC       float64             `json:"temp_c"`
		FeelsLikeC  float64             `json:"feelslike_c"`
		Humidity    *float64            `json:"humidity"`
		WindKph     float64             `json:"wind_kph"`
		WindDegree  float64             `json:"wind_degree"`
		PressureMb  float64             `json:"pressure_mb"`
		VisKm       *float64            `json:"vis_km"`
		UV          *float64            `json:"uv"`
		Condition   weatherAPICondition `json:"condition"`
		AirQuality  struct {
			EPAIndex int `json:"us-epa-index"`
		} `json:"air_quality"`
	} `json:"current"`
	Forecast struct {
		Forecastday []struct {
			Hour []struct {
				TimeEpoch    int64               `json:"time_epoch"`
				TempC        float64             `json:"temp_c"`
				ChanceOfRain float64             `json:"chance_of_rain"`
				Condition    weatherAPICondition `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (p *WeatherAPIProvider) CurrentAndForecast(ctx context.Context, pt geo.Point) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("weatherapi api key is not configured")
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", fmt.Sprintf("%f,%f", pt.Lat, pt.Lng))
	values.Set("days", "2")
	values.Set("aqi", "yes")

	var payload weatherAPIPayload
	if err := p.http.getJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), &payload); err != nil {
		return weather.Report{}, err
	}

	c := payload.Current
	main := weatherAPIMain(c.Condition.Text)
	cur := weather.Current{
		Name:             payload.Location.Name,
		Country:          payload.Location.Country,
		Timestamp:        time.Unix(c.LastUpdated, 0).UTC(),
		TemperatureC:     c.TempC,
		FeelsLikeC:       c.FeelsLikeC,
		HumidityPct:      weather.DefaultHumidityPct,
		PressureHpa:      c.PressureMb,
		WindSpeedMS:      c.WindKph / 3.6,
		WindDeg:          c.WindDegree,
		VisibilityMeters: weather.DefaultVisibilityMeters,
		Condition:        weather.ConditionFromMain(main),
		Main:             main,
		Description:      c.Condition.Text,
	}
	if c.Humidity != nil {
		cur.HumidityPct = *c.Humidity
	}
	if c.VisKm != nil && *c.VisKm > 0 {
		cur.VisibilityMeters = *c.VisKm * 1000
	}

	report := weather.Report{Current: cur, UVIndex: c.UV}
	if idx := c.AirQuality.EPAIndex; idx > 0 {
		// The EPA scale runs to 6; the display scale stops at 5.
		report.AirQuality = &weather.AirQuality{AQI: common.ClampInt(idx, 1, 5)}
	}

	now := time.Unix(payload.Location.Localtime, 0)
	for _, day := range payload.Forecast.Forecastday {
		for _, h := range day.Hour {
			ts := time.Unix(h.TimeEpoch, 0)
			if ts.Before(now) {
				continue
			}
			report.Forecast = append(report.Forecast, weather.ForecastEntry{
				Time:              ts.UTC(),
				TemperatureC:      h.TempC,
				Condition:         weather.ConditionFromMain(weatherAPIMain(h.Condition.Text)),
				PrecipProbability: h.ChanceOfRain / 100,
			})
		}
	}
	return report, nil
}

// weatherAPIMain maps WeatherAPI.com's free-text condition onto an OpenWeatherMap style group.
func weatherAPIMain(text string) string {
	switch {
	case text == "":
		return ""
	case common.HasAny(text, "thunder"):
		return "Thunderstorm"
	case common.HasAny(text, "drizzle"):
		return "Drizzle"
	case common.HasAny(text, "rain", "shower"):
		return "Rain"
	case common.HasAny(text, "snow", "sleet", "blizzard", "ice pellets"):
		return "Snow"
	case common.HasAny(text, "cloud", "overcast"):
		return "Clouds"
	case common.HasAny(text, "sunny", "clear"):
		return "Clear"
	default:
		return "Mist"
	}
}
