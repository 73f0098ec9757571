package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/pitchside/internal/geo"
	"github.com/i474232898/pitchside/internal/weather"
)

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap. It combines the
// current, 5-day/3-hour forecast, air pollution and UV index endpoints.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	http    *resilientClient
	logger  *zap.Logger
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, logger *zap.Logger) *OpenWeatherProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5",
		http:    newResilientClient("openweather", client, DefaultBackoff, logger),
		logger:  logger,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCurrentPayload struct {
	Dt      int64  `json:"dt"`
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64  `json:"temp"`
		FeelsLike float64  `json:"feels_like"`
		Pressure  float64  `json:"pressure"`
		Humidity  *float64 `json:"humidity"`
	} `json:"main"`
	Visibility *float64 `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

type owmForecastPayload struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

type owmAirPayload struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
	} `json:"list"`
}

type owmUVPayload struct {
	Value *float64 `json:"value"`
}

// CurrentAndForecast fetches all four endpoints concurrently. Current and forecast are
// required; air quality and UV are optional and left nil on failure.
func (p *OpenWeatherProvider) CurrentAndForecast(ctx context.Context, pt geo.Point) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("openweather api key is not configured")
	}

	var (
		cur   owmCurrentPayload
		fc    owmForecastPayload
		air   owmAirPayload
		uv    owmUVPayload
		airOK bool
		uvOK  bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := p.http.getJSON(gctx, p.endpoint("weather", pt, true), &cur); err != nil {
			return fmt.Errorf("current weather: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := p.http.getJSON(gctx, p.endpoint("forecast", pt, true), &fc); err != nil {
			return fmt.Errorf("forecast: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := p.http.getJSON(gctx, p.endpoint("air_pollution", pt, false), &air); err != nil {
			p.logger.Warn("air quality fetch failed", zap.Stringer("point", pt), zap.Error(err))
			return nil
		}
		airOK = true
		return nil
	})
	g.Go(func() error {
		if err := p.http.getJSON(gctx, p.endpoint("uvi", pt, false), &uv); err != nil {
			p.logger.Warn("uv index fetch failed", zap.Stringer("point", pt), zap.Error(err))
			return nil
		}
		uvOK = true
		return nil
	})

	if err := g.Wait(); err != nil {
		return weather.Report{}, err
	}

	report := weather.Report{
		Current:  toCurrent(cur),
		Forecast: toForecast(fc),
	}
	if airOK && len(air.List) > 0 && air.List[0].Main.AQI > 0 {
		report.AirQuality = &weather.AirQuality{AQI: air.List[0].Main.AQI}
	}
	if uvOK {
		report.UVIndex = uv.Value
	}
	return report, nil
}

func (p *OpenWeatherProvider) endpoint(path string, pt geo.Point, metric bool) string {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", pt.Lat))
	values.Set("lon", fmt.Sprintf("%f", pt.Lng))
	values.Set("appid", p.apiKey)
	if metric {
		values.Set("units", "metric")
	}
	return fmt.Sprintf("%s/%s?%s", p.baseURL, path, values.Encode())
}

func toCurrent(payload owmCurrentPayload) weather.Current {
	cur := weather.Current{
		Name:             payload.Name,
		Country:          payload.Sys.Country,
		Timestamp:        time.Unix(payload.Dt, 0).UTC(),
		TemperatureC:     payload.Main.Temp,
		FeelsLikeC:       payload.Main.FeelsLike,
		HumidityPct:      weather.DefaultHumidityPct,
		PressureHpa:      payload.Main.Pressure,
		WindSpeedMS:      payload.Wind.Speed,
		WindDeg:          payload.Wind.Deg,
		VisibilityMeters: weather.DefaultVisibilityMeters,
		Condition:        weather.ConditionUnknown,
	}
	if payload.Dt == 0 {
		cur.Timestamp = time.Now().UTC()
	}
	if payload.Main.Humidity != nil {
		cur.HumidityPct = *payload.Main.Humidity
	}
	if payload.Visibility != nil && *payload.Visibility > 0 {
		cur.VisibilityMeters = *payload.Visibility
	}
	if len(payload.Weather) > 0 {
		cur.Main = payload.Weather[0].Main
		cur.Description = payload.Weather[0].Description
		cur.Condition = weather.ConditionFromMain(cur.Main)
	}
	if payload.Sys.Sunrise > 0 {
		cur.Sunrise = time.Unix(payload.Sys.Sunrise, 0).UTC()
	}
	if payload.Sys.Sunset > 0 {
		cur.Sunset = time.Unix(payload.Sys.Sunset, 0).UTC()
	}
	return cur
}

func toForecast(payload owmForecastPayload) []weather.ForecastEntry {
	out := make([]weather.ForecastEntry, 0, len(payload.List))
	for _, item := range payload.List {
		cond := weather.ConditionUnknown
		if len(item.Weather) > 0 {
			cond = weather.ConditionFromMain(item.Weather[0].Main)
		}
		out = append(out, weather.ForecastEntry{
			Time:              time.Unix(item.Dt, 0).UTC(),
			TemperatureC:      item.Main.Temp,
			Condition:         cond,
			PrecipProbability: item.Pop,
		})
	}
	return out
}
