// Package session ties the per-client caches together. Each Session owns its own
// coverage tracker, venue catalog, weather cache and condition cache.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/pitchside/internal/condition"
	"github.com/i474232898/pitchside/internal/coverage"
	"github.com/i474232898/pitchside/internal/geo"
	"github.com/i474232898/pitchside/internal/timeline"
	"github.com/i474232898/pitchside/internal/venue"
	"github.com/i474232898/pitchside/internal/weather"
)

// InitialSearchRadius is the radius searched around the origin when a session starts.
const InitialSearchRadius = 3000

// ErrStale is returned when a newer request superseded this one.
var ErrStale = errors.New("superseded by a newer request")

// Deps are the providers and settings shared by every session.
type Deps struct {
	Venues            venue.SearchProvider
	Weather           weather.Provider
	History           weather.HistoryProvider
	Names             weather.NameResolver
	EnrichConcurrency int
	Logger            *zap.Logger
	// Clock defaults to time.Now. Its location is used for opening hours and hour labels.
	Clock func() time.Time
}

type Session struct {
	ID        string
	Origin    geo.Point
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	coverage   *coverage.Tracker
	catalog    *venue.Catalog
	weather    *weather.Cache
	conditions *condition.Cache
	interest   Interest

	mu       sync.Mutex
	lastSeen time.Time

	logger *zap.Logger
	now    func() time.Time
}

// New creates a session around origin. Nothing is fetched until Start.
func New(origin geo.Point, deps Deps) *Session {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	id := uuid.NewString()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session", id))

	weatherOpts := []weather.CacheOption{weather.WithClock(now)}
	if deps.Names != nil {
		weatherOpts = append(weatherOpts, weather.WithNameResolver(deps.Names))
	}

	catalog := venue.NewCatalog(deps.Venues, logger,
		venue.WithEnrichConcurrency(deps.EnrichConcurrency),
		venue.WithCatalogClock(now))

	ctx, cancel := context.WithCancel(context.Background())
	created := now()
	return &Session{
		ID:         id,
		Origin:     origin,
		CreatedAt:  created,
		ctx:        ctx,
		cancel:     cancel,
		coverage:   coverage.NewTracker(),
		catalog:    catalog,
		weather:    weather.NewCache(deps.Weather, deps.History, logger, weatherOpts...),
		conditions: condition.NewCache(),
		lastSeen:   created,
		logger:     logger,
		now:        now,
	}
}

// Start fetches weather for the origin, which pins the display name, and runs the
// initial venue search. A weather failure is logged and does not stop the search.
func (s *Session) Start(ctx context.Context) {
	if _, err := s.weather.Get(ctx, s.Origin); err != nil {
		s.logger.Warn("initial weather fetch failed", zap.Error(err))
	}
	s.Search(s.Origin, InitialSearchRadius)
}

// Touch records activity for idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close cancels in-flight searches and enrichment. Their results are discarded.
func (s *Session) Close() {
	s.cancel()
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Wait blocks until background enrichment has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// IsCovered reports whether the viewport was already searched.
func (s *Session) IsCovered(v coverage.Viewport) bool {
	return s.coverage.IsCovered(v)
}

// Search records the area as covered, then searches it and returns venues not
// seen before. Opening hours for those venues are fetched in the background.
// The search runs on the session's context, so it completes even if the caller
// goes away, and is abandoned when the session ends.
func (s *Session) Search(center geo.Point, radiusMeters float64) []venue.Venue {
	radius := venue.ClampRadius(radiusMeters)
	s.coverage.RecordSearch(center, float64(radius))

	fresh := s.catalog.Search(s.ctx, center, float64(radius))
	if len(fresh) == 0 {
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		n := s.catalog.Enrich(s.ctx, fresh)
		s.logger.Debug("enrichment finished", zap.Int("batch", len(fresh)), zap.Int("updated", n))
	}()
	return fresh
}

// Venues lists the catalog through f. When from is set the list is sorted by
// distance from it.
func (s *Session) Venues(f venue.Filter, from *geo.Point) []venue.Ranked {
	list := f.Apply(s.catalog.Venues())
	if from != nil {
		return venue.SortByDistance(list, *from)
	}
	out := make([]venue.Ranked, len(list))
	for i, v := range list {
		out[i] = venue.Ranked{Venue: v}
	}
	return out
}

// VenueView is everything shown when a venue is opened.
type VenueView struct {
	venue.Ranked
	Details       *venue.Details `json:"details"`
	Today         *venue.Hours   `json:"today,omitempty"`
	DirectionsURL string         `json:"directionsUrl"`
}

// Venue returns the catalog entry for placeID decorated with its distance from
// the origin, today's hours and provider details. Missing details are tolerated.
func (s *Session) Venue(ctx context.Context, placeID string) (VenueView, error) {
	v, err := s.catalog.Get(placeID)
	if err != nil {
		return VenueView{}, err
	}

	view := VenueView{
		Ranked:        venue.Rank(v, s.Origin),
		Details:       s.catalog.Details(ctx, placeID),
		DirectionsURL: directionsURL(s.Origin, v.Location),
	}

	periods := v.Periods
	if d := view.Details; d != nil {
		if len(d.Periods) > 0 {
			periods = d.Periods
		}
		if d.MapsURL != "" {
			view.DirectionsURL = d.MapsURL
		}
	}
	if h, ok := venue.TodayHours(periods, s.now()); ok {
		view.Today = &h
	}
	return view, nil
}

func directionsURL(from, to geo.Point) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&origin=%f,%f&destination=%f,%f&travelmode=walking",
		from.Lat, from.Lng, to.Lat, to.Lng)
}

// Condition scores a venue's surface from the weather at its location. The first
// score computed for a venue is kept for the rest of the session.
func (s *Session) Condition(ctx context.Context, placeID string) (condition.Report, error) {
	v, err := s.catalog.Get(placeID)
	if err != nil {
		return condition.Report{}, err
	}

	if score, ok := s.conditions.Get(placeID); ok {
		return condition.Describe(score), nil
	}

	b, err := s.weather.Get(ctx, v.Location)
	if err != nil {
		return condition.Report{}, err
	}
	score := s.conditions.GetOrCompute(placeID, func() condition.Score {
		return condition.Compute(condition.InputsFromBundle(b), s.now())
	})
	return condition.Describe(score), nil
}

// WeatherView is the display form of the weather at a point.
type WeatherView struct {
	Cell       string                 `json:"cell"`
	Display    weather.Display        `json:"current"`
	AirQuality string                 `json:"airQuality,omitempty"`
	UVIndex    *float64               `json:"uvIndex,omitempty"`
	UVLabel    string                 `json:"uvLabel"`
	Rain       weather.RainLikelihood `json:"rain"`
	Timeline   []timeline.Slot        `json:"timeline"`
	FetchedAt  time.Time              `json:"fetchedAt"`
}

// Weather returns display weather for p. Each call supersedes earlier ones; if a
// newer call starts before this one's fetch completes, ErrStale is returned. The
// fetched bundle is cached either way.
func (s *Session) Weather(ctx context.Context, p geo.Point) (WeatherView, error) {
	token := s.interest.Next()

	b, err := s.weather.Get(ctx, p)
	if err != nil {
		return WeatherView{}, err
	}
	if !s.interest.Current(token) {
		return WeatherView{}, ErrStale
	}

	cur := s.weather.ApplyDisplay(b)
	now := s.now()
	return WeatherView{
		Cell:       b.Key.String(),
		Display:    weather.ToDisplay(cur),
		AirQuality: weather.AirQualityLabel(b.AirQuality),
		UVIndex:    b.UVIndex,
		UVLabel:    weather.UVLabel(b.UVIndex),
		Rain:       weather.RainOutlook(cur, b.Forecast, now),
		Timeline:   timeline.Build(cur, b.Forecast, b.PastHourly, now),
		FetchedAt:  b.FetchedAt,
	}, nil
}

// Stats summarizes the session's caches.
type Stats struct {
	Venues        int    `json:"venues"`
	SearchCircles int    `json:"searchCircles"`
	WeatherCells  int    `json:"weatherCells"`
	Conditions    int    `json:"conditions"`
	Place         string `json:"place,omitempty"`
}

func (s *Session) Stats() Stats {
	place, _ := s.weather.PinnedName()
	return Stats{
		Venues:        s.catalog.Len(),
		SearchCircles: s.coverage.Len(),
		WeatherCells:  s.weather.Len(),
		Conditions:    s.conditions.Len(),
		Place:         place,
	}
}
