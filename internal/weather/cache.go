package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/pitchside/internal/geo"
)

// GridPrecision is the number of decimal degrees kept in a grid key. Two decimals
// buckets points into cells of roughly 1.1 km of latitude.
const GridPrecision = 2

var gridScale = math.Pow(10, GridPrecision)

// ErrUnavailable is returned when no weather could be fetched for a point.
var ErrUnavailable = errors.New("weather unavailable")

// GridKey identifies one cache cell. Coordinates are stored as scaled integers so
// that keys compare exactly.
type GridKey struct {
	LatE int `json:"latE"`
	LngE int `json:"lngE"`
}

// GridKeyOf rounds p to GridPrecision decimals.
func GridKeyOf(p geo.Point) GridKey {
	return GridKey{
		LatE: int(math.Round(p.Lat * gridScale)),
		LngE: int(math.Round(p.Lng * gridScale)),
	}
}

func (k GridKey) String() string {
	return fmt.Sprintf("%.*f,%.*f", GridPrecision, float64(k.LatE)/gridScale, GridPrecision, float64(k.LngE)/gridScale)
}

// Cache holds one bundle per grid cell for the lifetime of a session. Entries are
// never evicted or refreshed. It also pins the display name seen on the first
// successful fetch.
type Cache struct {
	mu      sync.RWMutex
	bundles map[GridKey]*Bundle

	pinned     bool
	pinnedName string

	provider Provider
	history  HistoryProvider
	names    NameResolver
	logger   *zap.Logger
	now      func() time.Time
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithNameResolver sets the fallback used when the first bundle carries no place name.
func WithNameResolver(r NameResolver) CacheOption {
	return func(c *Cache) { c.names = r }
}

// WithClock overrides time.Now for FetchedAt stamps.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty session cache. history may be nil.
func NewCache(provider Provider, history HistoryProvider, logger *zap.Logger, opts ...CacheOption) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		bundles:  make(map[GridKey]*Bundle),
		provider: provider,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached bundle for p's cell without fetching.
func (c *Cache) Lookup(p geo.Point) (*Bundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bundles[GridKeyOf(p)]
	return b, ok
}

// Get returns the bundle for p's grid cell, fetching it on a miss.
//
// Two concurrent misses for the same cell both fetch; the later write replaces an
// equivalent bundle.
func (c *Cache) Get(ctx context.Context, p geo.Point) (*Bundle, error) {
	key := GridKeyOf(p)

	if b, ok := c.Lookup(p); ok {
		c.logger.Debug("weather cache hit", zap.Stringer("cell", key))
		return b, nil
	}

	c.logger.Debug("weather cache miss, fetching", zap.Stringer("cell", key))

	b, err := c.fetch(ctx, key, p)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.bundles[key] = b
	c.mu.Unlock()

	c.pin(ctx, b)
	return b, nil
}

func (c *Cache) fetch(ctx context.Context, key GridKey, p geo.Point) (*Bundle, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("%w: no weather provider configured", ErrUnavailable)
	}

	var (
		report Report
		hist   History
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.provider.CurrentAndForecast(gctx, p)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.provider.Name(), err)
		}
		report = r
		return nil
	})
	if c.history != nil {
		g.Go(func() error {
			h, err := c.history.History(gctx, p)
			if err != nil {
				// Missing history only weakens the condition estimate.
				c.logger.Warn("weather history fetch failed",
					zap.String("provider", c.history.Name()),
					zap.Stringer("cell", key),
					zap.Error(err))
				return nil
			}
			hist = h
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Error("weather fetch failed", zap.Stringer("cell", key), zap.Error(err))
		return nil, err
	}

	return &Bundle{
		Key:          key,
		Point:        p,
		Current:      report.Current,
		Forecast:     report.Forecast,
		AirQuality:   report.AirQuality,
		UVIndex:      report.UVIndex,
		RecentRainMm: hist.RecentRainMm(),
		PastHourly:   hist.Hourly,
		FetchedAt:    c.now().UTC(),
	}, nil
}

// pin captures the display name once, from the first successful fetch that
// yields a name. Unnamed cells leave the name unpinned so a later cell can pin it.
func (c *Cache) pin(ctx context.Context, b *Bundle) {
	c.mu.RLock()
	done := c.pinned
	c.mu.RUnlock()
	if done {
		return
	}

	name := b.Current.Name
	if name == "" && c.names != nil {
		resolved, err := c.names.ResolveName(ctx, b.Point)
		if err != nil {
			c.logger.Warn("display name lookup failed", zap.Stringer("cell", b.Key), zap.Error(err))
		}
		name = resolved
	}
	if name == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinned {
		return
	}
	c.pinned = true
	c.pinnedName = name
	c.logger.Info("pinned display name", zap.String("name", name), zap.Stringer("cell", b.Key))
}

// ApplyDisplay returns a copy of the bundle's current weather carrying the pinned name.
func (c *Cache) ApplyDisplay(b *Bundle) Current {
	cur := b.Current

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pinned {
		cur.Name = c.pinnedName
	}
	return cur
}

// PinnedName returns the captured display name and whether one has been captured.
func (c *Cache) PinnedName() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pinnedName, c.pinned
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bundles)
}
