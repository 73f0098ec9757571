package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/pitchside/internal/geo"
	"github.com/i474232898/pitchside/internal/weather"
)

const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoProvider implements weather.HistoryProvider for Open-Meteo. It needs no key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	http    *resilientClient
}

func NewOpenMeteoProvider(client *http.Client, logger *zap.Logger) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		http:    newResilientClient("openmeteo", client, DefaultBackoff, logger),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoPayload struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Daily            struct {
		Time             []string   `json:"time"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature2m []*float64 `json:"temperature_2m"`
		WeatherCode   []*int     `json:"weather_code"`
	} `json:"hourly"`
}

// History returns the last two days of daily precipitation plus today, and hourly
// temperature and weather codes over the same window. Hourly entries include the
// remaining hours of today.
func (p *OpenMeteoProvider) History(ctx context.Context, pt geo.Point) (weather.History, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", pt.Lat))
	values.Set("longitude", fmt.Sprintf("%f", pt.Lng))
	values.Set("daily", "precipitation_sum")
	values.Set("hourly", "temperature_2m,weather_code")
	values.Set("past_days", "2")
	values.Set("forecast_days", "1")
	values.Set("timezone", "auto")

	var payload openMeteoPayload
	if err := p.http.getJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), &payload); err != nil {
		return weather.History{}, err
	}
	return toHistory(payload), nil
}

func toHistory(payload openMeteoPayload) weather.History {
	loc := time.FixedZone("", payload.UTCOffsetSeconds)

	hist := weather.History{
		DailyPrecipMm: make([]float64, 0, len(payload.Daily.PrecipitationSum)),
		Hourly:        make([]weather.HourlySample, 0, len(payload.Hourly.Time)),
	}
	for _, v := range payload.Daily.PrecipitationSum {
		if v == nil {
			hist.DailyPrecipMm = append(hist.DailyPrecipMm, 0)
			continue
		}
		hist.DailyPrecipMm = append(hist.DailyPrecipMm, *v)
	}

	for i, raw := range payload.Hourly.Time {
		ts, err := time.ParseInLocation(openMeteoTimeLayout, raw, loc)
		if err != nil {
			continue
		}
		// Null entries are hours the model has not filled yet.
		if i >= len(payload.Hourly.Temperature2m) || i >= len(payload.Hourly.WeatherCode) {
			break
		}
		temp, code := payload.Hourly.Temperature2m[i], payload.Hourly.WeatherCode[i]
		if temp == nil || code == nil {
			continue
		}
		hist.Hourly = append(hist.Hourly, weather.HourlySample{
			Time:         ts.UTC(),
			TemperatureC: *temp,
			WeatherCode:  *code,
		})
	}
	return hist
}
