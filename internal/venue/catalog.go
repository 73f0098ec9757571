package venue

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/pitchside/internal/common"
	"github.com/i474232898/pitchside/internal/geo"
)

const (
	MinSearchRadius = 100
	MaxSearchRadius = 10000

	// DefaultEnrichConcurrency bounds concurrent details calls per batch.
	DefaultEnrichConcurrency = 4
)

// variant is one keyword query issued for a search. Each nearby search is capped
// by the provider, so several phrasings widen recall.
type variant struct {
	keyword string
	sport   Sport
}

var searchVariants = []variant{
	{"football pitch", SportFootball},
	{"football recreation ground", SportFootball},
	{"cricket pitch", SportCricket},
	{"cricket club", SportCricket},
}

const excludedType = "stadium"

// Catalog is the session's ordered, de-duplicated list of venues.
type Catalog struct {
	mu     sync.RWMutex
	venues []Venue
	index  map[string]int

	provider    SearchProvider
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

// CatalogOption customizes a Catalog.
type CatalogOption func(*Catalog)

// WithEnrichConcurrency sets how many details calls one Enrich batch may run at once.
func WithEnrichConcurrency(n int) CatalogOption {
	return func(c *Catalog) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithCatalogClock overrides time.Now for opening-hours evaluation.
func WithCatalogClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) { c.now = now }
}

func NewCatalog(provider SearchProvider, logger *zap.Logger, opts ...CatalogOption) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{
		index:       make(map[string]int),
		provider:    provider,
		logger:      logger,
		concurrency: DefaultEnrichConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClampRadius rounds r and limits it to [MinSearchRadius, MaxSearchRadius].
func ClampRadius(r float64) int {
	switch {
	case math.IsNaN(r) || r < MinSearchRadius:
		return MinSearchRadius
	case r > MaxSearchRadius:
		return MaxSearchRadius
	}
	return common.ClampInt(int(math.Round(r)), MinSearchRadius, MaxSearchRadius)
}

// Search queries every keyword variant around center and appends venues not
// already known. It returns only the newly added venues, in merge order.
// Variant failures are logged and count as empty results.
func (c *Catalog) Search(ctx context.Context, center geo.Point, radiusMeters float64) []Venue {
	radius := ClampRadius(radiusMeters)

	batches := make([][]RawHit, len(searchVariants))
	var g errgroup.Group
	for i, v := range searchVariants {
		g.Go(func() error {
			hits, err := c.provider.SearchNearby(ctx, center, radius, v.keyword)
			if err != nil {
				c.logger.Warn("venue search variant failed",
					zap.String("keyword", v.keyword),
					zap.Stringer("center", center),
					zap.Error(err))
				return nil
			}
			batches[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	raw := mergeHits(batches)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		c.logger.Debug("discarding stale search results", zap.Stringer("center", center))
		return nil
	}

	var fresh []Venue
	for _, v := range raw {
		if _, known := c.index[v.PlaceID]; known {
			continue
		}
		c.index[v.PlaceID] = len(c.venues)
		c.venues = append(c.venues, v)
		fresh = append(fresh, v)
	}

	c.logger.Info("venue search merged",
		zap.Stringer("center", center),
		zap.Int("radius", radius),
		zap.Int("hits", len(raw)),
		zap.Int("added", len(fresh)))
	return fresh
}

// mergeHits flattens variant batches in order, drops stadiums and keeps the first
// occurrence of each placeId.
func mergeHits(batches [][]RawHit) []Venue {
	seen := make(map[string]struct{})
	var out []Venue
	for i, hits := range batches {
		sport := searchVariants[i].sport
		for _, h := range hits {
			if h.PlaceID == "" || slices.Contains(h.Types, excludedType) {
				continue
			}
			if _, dup := seen[h.PlaceID]; dup {
				continue
			}
			seen[h.PlaceID] = struct{}{}
			out = append(out, Venue{
				PlaceID:  h.PlaceID,
				Name:     h.Name,
				Sport:    sport,
				Location: h.Location,
				Address:  h.Address,
				Rating:   h.Rating,
				OpenNow:  h.OpenNow,
				PhotoURL: h.PhotoURL,
			})
		}
	}
	return out
}

// Enrich fetches opening hours for venues and merges them into the catalog in one
// step. A failed lookup leaves that venue unchanged. The whole batch is discarded
// if ctx was cancelled while it ran. It returns the number of venues updated.
func (c *Catalog) Enrich(ctx context.Context, venues []Venue) int {
	if len(venues) == 0 {
		return 0
	}

	results := make([]*Details, len(venues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, v := range venues {
		g.Go(func() error {
			d, err := c.provider.Details(gctx, v.PlaceID, EnrichFields)
			if err != nil {
				c.logger.Warn("opening hours lookup failed", zap.String("placeId", v.PlaceID), zap.Error(err))
				return nil
			}
			results[i] = d
			return nil
		})
	}
	_ = g.Wait()

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		c.logger.Debug("discarding stale enrichment batch", zap.Int("size", len(venues)))
		return 0
	}

	updated := 0
	for i, v := range venues {
		d := results[i]
		if d == nil {
			continue
		}
		idx, ok := c.index[v.PlaceID]
		if !ok {
			continue
		}
		c.venues[idx] = applyHours(c.venues[idx], d, now)
		updated++
	}
	return updated
}

func applyHours(v Venue, d *Details, now time.Time) Venue {
	if d.IsOpen != nil {
		open := *d.IsOpen
		v.OpenNow = &open
	}
	v.Periods = d.Periods
	v.ClosingSoon = v.OpenNow != nil && *v.OpenNow && ClosingSoon(d.Periods, now)
	v.ClosesAt = ""
	if h, ok := TodayHours(d.Periods, now); ok {
		v.ClosesAt = h.ClosesAt
	}
	return v
}

// Details returns the full details for a place, or nil when the provider fails.
func (c *Catalog) Details(ctx context.Context, placeID string) *Details {
	d, err := c.provider.Details(ctx, placeID, DetailsFields)
	if err != nil {
		c.logger.Warn("place details lookup failed", zap.String("placeId", placeID), zap.Error(err))
		return nil
	}
	return d
}

// Venues returns a snapshot of the catalog in insertion order.
func (c *Catalog) Venues() []Venue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.venues)
}

func (c *Catalog) Get(placeID string) (Venue, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.index[placeID]
	if !ok {
		return Venue{}, ErrNotFound
	}
	return c.venues[idx], nil
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.venues)
}
