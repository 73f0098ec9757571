package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/pitchside/internal/geo"
	"github.com/i474232898/pitchside/internal/location"
	"github.com/i474232898/pitchside/internal/venue"
)

// Weather provider names accepted by WEATHER_PROVIDER.
const (
	ProviderOpenWeather = "openweather"
	ProviderWeatherAPI  = "weatherapi"
)

type AppConfig struct {
	Port     string
	LogLevel string

	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GoogleMapsAPIKey  string

	// WeatherProvider selects the current/forecast source.
	WeatherProvider string

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	LocationTimeout time.Duration
	Fallback        geo.Point
	IPLookupURL     string

	// Session retention.
	SessionMaxIdle       time.Duration
	SessionSweepInterval time.Duration
	MaxSessions          int // 0 = unlimited

	EnrichConcurrency int
}

// Load reads configuration from environment with sensible defaults.
// A missing .env file is not an error.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:              getenvDefault("PORT", "8080"),
		LogLevel:          strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIKey:     os.Getenv("WEATHERAPI_API_KEY"),
		GoogleMapsAPIKey:  os.Getenv("GOOGLE_MAPS_API_KEY"),
		WeatherProvider:   strings.ToLower(getenvDefault("WEATHER_PROVIDER", ProviderOpenWeather)),
		IPLookupURL:       getenvDefault("IP_LOOKUP_URL", "http://ip-api.com/json/{ip}"),
		MaxSessions:       getenvInt("SESSION_MAX", 1000),
		EnrichConcurrency: getenvInt("ENRICH_CONCURRENCY", venue.DefaultEnrichConcurrency),
	}

	switch cfg.WeatherProvider {
	case ProviderOpenWeather, ProviderWeatherAPI:
	default:
		return nil, fmt.Errorf("invalid WEATHER_PROVIDER %q: use %s or %s",
			cfg.WeatherProvider, ProviderOpenWeather, ProviderWeatherAPI)
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.LocationTimeout, err = getenvDuration("LOCATION_TIMEOUT", location.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.SessionMaxIdle, err = getenvDuration("SESSION_MAX_IDLE", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionSweepInterval, err = getenvDuration("SESSION_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	lat, err := getenvFloat("FALLBACK_LAT", location.DefaultFallback.Lat)
	if err != nil {
		return nil, err
	}
	lng, err := getenvFloat("FALLBACK_LNG", location.DefaultFallback.Lng)
	if err != nil {
		return nil, err
	}
	cfg.Fallback = geo.Point{Lat: lat, Lng: lng}
	if !cfg.Fallback.Valid() {
		return nil, fmt.Errorf("invalid fallback location %s", cfg.Fallback)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
