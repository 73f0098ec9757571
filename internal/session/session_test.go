package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/pitchside/internal/coverage"
	"github.com/i474232898/pitchside/internal/geo"
	"github.com/i474232898/pitchside/internal/venue"
	"github.com/i474232898/pitchside/internal/weather"
)

var (
	origin = geo.Point{Lat: 51.52, Lng: -0.04}
	now    = time.Date(2026, 10, 16, 17, 0, 0, 0, time.UTC) // Friday
)

type fakeVenues struct {
	mu      sync.Mutex
	hits    map[string][]venue.RawHit
	details map[string]*venue.Details
	radii   []int
}

func (f *fakeVenues) SearchNearby(_ context.Context, _ geo.Point, radius int, keyword string) ([]venue.RawHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.radii = append(f.radii, radius)
	return f.hits[keyword], nil
}

func (f *fakeVenues) Details(_ context.Context, placeID string, _ []venue.DetailField) (*venue.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details[placeID], nil
}

type fakeWeather struct {
	mu    sync.Mutex
	calls int
	err   error
	// gate, when set, holds calls for the matching cell until closed.
	gate    map[weather.GridKey]chan struct{}
	entered chan weather.GridKey
}

func (f *fakeWeather) Name() string { return "fake" }

func (f *fakeWeather) CurrentAndForecast(ctx context.Context, p geo.Point) (weather.Report, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	gate := f.gate[weather.GridKeyOf(p)]
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- weather.GridKeyOf(p)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return weather.Report{}, ctx.Err()
		}
	}
	if err != nil {
		return weather.Report{}, err
	}
	return weather.Report{
		Current: weather.Current{
			Name:         "Mile End",
			TemperatureC: 14,
			HumidityPct:  40,
			Main:         "Clear",
			Condition:    weather.ConditionClear,
		},
	}, nil
}

func (f *fakeWeather) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func hit(id string, lat float64) venue.RawHit {
	return venue.RawHit{PlaceID: id, Name: "Ground " + id, Location: geo.Point{Lat: lat, Lng: -0.04}}
}

func newSession(v *fakeVenues, w *fakeWeather) *Session {
	return New(origin, Deps{
		Venues:  v,
		Weather: w,
		Clock:   func() time.Time { return now },
	})
}

func TestStartSearchesAroundOrigin(t *testing.T) {
	v := &fakeVenues{hits: map[string][]venue.RawHit{"football pitch": {hit("a", 51.53)}}}
	w := &fakeWeather{}
	s := newSession(v, w)
	defer s.Close()

	s.Start(context.Background())
	s.Wait()

	if s.Stats().Venues != 1 {
		t.Fatalf("expected one venue after start, got %+v", s.Stats())
	}
	for _, r := range v.radii {
		if r != InitialSearchRadius {
			t.Fatalf("expected initial radius %d, got %d", InitialSearchRadius, r)
		}
	}
	if !s.IsCovered(coverage.Viewport{Center: origin, VisibleRadiusMeters: 1000}) {
		t.Fatalf("origin should be covered after start")
	}
	if w.Calls() != 1 {
		t.Fatalf("expected one weather fetch, got %d", w.Calls())
	}
}

func TestStartToleratesWeatherFailure(t *testing.T) {
	v := &fakeVenues{hits: map[string][]venue.RawHit{"cricket club": {hit("c", 51.52)}}}
	s := newSession(v, &fakeWeather{err: errors.New("down")})
	defer s.Close()

	s.Start(context.Background())
	if s.Stats().Venues != 1 {
		t.Fatalf("search should run even when weather fails")
	}
}

func TestSearchReturnsOnlyNewVenuesAndEnriches(t *testing.T) {
	opens := venue.DayTime{Day: time.Friday, Hour: 9}
	closes := &venue.DayTime{Day: time.Friday, Hour: 18}
	isOpen := true
	v := &fakeVenues{
		hits: map[string][]venue.RawHit{"football pitch": {hit("a", 51.53), hit("b", 51.54)}},
		details: map[string]*venue.Details{
			"a": {IsOpen: &isOpen, Periods: []venue.Period{{Open: opens, Close: closes}}},
		},
	}
	s := newSession(v, &fakeWeather{})
	defer s.Close()

	if got := s.Search(origin, 2000); len(got) != 2 {
		t.Fatalf("expected 2 new venues, got %d", len(got))
	}
	if got := s.Search(origin, 2000); len(got) != 0 {
		t.Fatalf("second search should add nothing, got %d", len(got))
	}
	s.Wait()

	list := s.Venues(venue.Filter{}, &origin)
	if len(list) != 2 || list[0].PlaceID != "a" {
		t.Fatalf("unexpected ordering %+v", list)
	}
	if !list[0].ClosingSoon || list[0].ClosesAt != "6pm" {
		t.Fatalf("enrichment not applied: %+v", list[0].Venue)
	}
}

func TestSearchRecordsClampedRadius(t *testing.T) {
	s := newSession(&fakeVenues{}, &fakeWeather{})
	defer s.Close()

	s.Search(origin, 50000)
	if s.IsCovered(coverage.Viewport{Center: geo.Offset(origin, 20000, 0), VisibleRadiusMeters: 100}) {
		t.Fatalf("coverage should use the clamped radius")
	}
}

func TestVenueView(t *testing.T) {
	v := &fakeVenues{
		hits: map[string][]venue.RawHit{"football pitch": {hit("a", 51.53)}},
		details: map[string]*venue.Details{
			"a": {Website: "https://example.org", MapsURL: "https://maps.example/a"},
		},
	}
	s := newSession(v, &fakeWeather{})
	defer s.Close()
	s.Search(origin, 2000)
	s.Wait()

	view, err := s.Venue(context.Background(), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Details == nil || view.Details.Website != "https://example.org" {
		t.Fatalf("missing details %+v", view.Details)
	}
	if view.DirectionsURL != "https://maps.example/a" {
		t.Fatalf("expected provider maps url, got %q", view.DirectionsURL)
	}
	if view.DistanceKm < 1.0 || view.DistanceKm > 1.2 {
		t.Fatalf("unexpected distance %.2f", view.DistanceKm)
	}

	if _, err := s.Venue(context.Background(), "missing"); !errors.Is(err, venue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConditionIsComputedOnce(t *testing.T) {
	v := &fakeVenues{hits: map[string][]venue.RawHit{"football pitch": {hit("a", 51.53)}}}
	w := &fakeWeather{}
	s := newSession(v, w)
	defer s.Close()
	s.Search(origin, 2000)

	first, err := s.Condition(context.Background(), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.WetnessPct != 0 || first.WetnessLabel != "Bone Dry" {
		t.Fatalf("unexpected report %+v", first)
	}

	w.mu.Lock()
	w.err = errors.New("down")
	w.mu.Unlock()

	second, err := s.Condition(context.Background(), "a")
	if err != nil || second != first {
		t.Fatalf("expected cached report, got %+v, %v", second, err)
	}
	if w.Calls() != 1 {
		t.Fatalf("expected one weather fetch, got %d", w.Calls())
	}
	if _, err := s.Condition(context.Background(), "missing"); !errors.Is(err, venue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConditionWeatherFailure(t *testing.T) {
	v := &fakeVenues{hits: map[string][]venue.RawHit{"football pitch": {hit("a", 51.53)}}}
	s := newSession(v, &fakeWeather{err: errors.New("down")})
	defer s.Close()
	s.Search(origin, 2000)

	if _, err := s.Condition(context.Background(), "a"); !errors.Is(err, weather.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if s.Stats().Conditions != 0 {
		t.Fatalf("failed scores must not be cached")
	}
}

func TestWeatherView(t *testing.T) {
	s := newSession(&fakeVenues{}, &fakeWeather{})
	defer s.Close()

	view, err := s.Weather(context.Background(), origin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Display.Name != "Mile End" {
		t.Fatalf("expected pinned name, got %q", view.Display.Name)
	}
	if len(view.Timeline) != 5 {
		t.Fatalf("expected 5 timeline slots, got %d", len(view.Timeline))
	}
	if view.Cell != weather.GridKeyOf(origin).String() {
		t.Fatalf("unexpected cell %q", view.Cell)
	}
}

func TestOlderWeatherRequestIsStale(t *testing.T) {
	far := geo.Point{Lat: 53.48, Lng: -2.24}
	gate := make(chan struct{})
	w := &fakeWeather{
		gate:    map[weather.GridKey]chan struct{}{weather.GridKeyOf(origin): gate},
		entered: make(chan weather.GridKey, 4),
	}
	s := newSession(&fakeVenues{}, w)
	defer s.Close()

	errc := make(chan error, 1)
	go func() {
		_, err := s.Weather(context.Background(), origin)
		errc <- err
	}()
	<-w.entered

	if _, err := s.Weather(context.Background(), far); err != nil {
		t.Fatalf("latest request should succeed, got %v", err)
	}
	close(gate)

	if err := <-errc; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if s.Stats().WeatherCells != 2 {
		t.Fatalf("stale results are still cached, got %d cells", s.Stats().WeatherCells)
	}
}

func TestCloseDiscardsSearches(t *testing.T) {
	v := &fakeVenues{hits: map[string][]venue.RawHit{"football pitch": {hit("a", 51.53)}}}
	s := newSession(v, &fakeWeather{})
	s.Close()

	select {
	case <-s.Done():
	default:
		t.Fatalf("Done should be closed")
	}
	if got := s.Search(origin, 2000); len(got) != 0 {
		t.Fatalf("closed session should not add venues, got %d", len(got))
	}
}

func TestTouch(t *testing.T) {
	clock := now
	s := New(origin, Deps{Clock: func() time.Time { return clock }})
	defer s.Close()

	clock = clock.Add(time.Minute)
	s.Touch()
	if !s.LastSeen().Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected last seen %v", s.LastSeen())
	}
}
