package weather

import (
	"context"

	"github.com/i474232898/pitchside/internal/geo"
)

// Provider abstracts a current-conditions and short-range forecast source (e.g. OpenWeatherMap).
type Provider interface {
	Name() string
	CurrentAndForecast(ctx context.Context, p geo.Point) (Report, error)
}

// HistoryProvider abstracts a source of recent hourly history and daily precipitation (e.g. Open-Meteo).
type HistoryProvider interface {
	Name() string
	History(ctx context.Context, p geo.Point) (History, error)
}

// NameResolver looks up a display name for a point when the weather provider gave none.
type NameResolver interface {
	ResolveName(ctx context.Context, p geo.Point) (string, error)
}
