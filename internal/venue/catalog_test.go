package venue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/pitchside/internal/geo"
)

type fakeSearch struct {
	mu        sync.Mutex
	hits      map[string][]RawHit
	fail      map[string]bool
	details   map[string]*Details
	detailErr map[string]error
	radii     []int

	// block holds Details calls until closed; started is closed on the first call.
	block       chan struct{}
	started     chan struct{}
	startedOnce sync.Once
}

func (f *fakeSearch) SearchNearby(_ context.Context, _ geo.Point, radius int, keyword string) ([]RawHit, error) {
	f.mu.Lock()
	f.radii = append(f.radii, radius)
	fail := f.fail[keyword]
	hits := f.hits[keyword]
	f.mu.Unlock()
	if fail {
		return nil, errors.New("quota exceeded")
	}
	return hits, nil
}

func (f *fakeSearch) Details(ctx context.Context, placeID string, _ []DetailField) (*Details, error) {
	if f.started != nil {
		f.startedOnce.Do(func() { close(f.started) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.detailErr[placeID]; err != nil {
		return nil, err
	}
	return f.details[placeID], nil
}

func hit(id string, types ...string) RawHit {
	return RawHit{PlaceID: id, Name: "Ground " + id, Location: geo.Point{Lat: 51.52, Lng: -0.04}, Types: types}
}

func boolPtr(b bool) *bool { return &b }

func placeIDs(vs []Venue) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.PlaceID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearchMergesVariantsInOrder(t *testing.T) {
	prov := &fakeSearch{hits: map[string][]RawHit{
		"football pitch":             {hit("a"), hit("b")},
		"football recreation ground": {hit("b"), hit("c")},
		"cricket pitch":              {hit("d"), hit("s", "stadium", "point_of_interest")},
		"cricket club":               {hit("a"), hit("e")},
	}}
	cat := NewCatalog(prov, nil)

	fresh := cat.Search(context.Background(), geo.Point{Lat: 51.52, Lng: -0.04}, 3000)

	if got, want := placeIDs(fresh), []string{"a", "b", "c", "d", "e"}; !equalIDs(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if v, _ := cat.Get("a"); v.Sport != SportFootball {
		t.Fatalf("first occurrence should win, got sport %q", v.Sport)
	}
	if v, _ := cat.Get("e"); v.Sport != SportCricket {
		t.Fatalf("expected cricket, got %q", v.Sport)
	}
	if _, err := cat.Get("s"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stadiums must be excluded")
	}
}

func TestSearchTwiceAddsNothing(t *testing.T) {
	prov := &fakeSearch{hits: map[string][]RawHit{
		"football pitch": {hit("a"), hit("b")},
		"cricket club":   {hit("c")},
	}}
	cat := NewCatalog(prov, nil)
	center := geo.Point{Lat: 51.52, Lng: -0.04}

	first := cat.Search(context.Background(), center, 3000)
	second := cat.Search(context.Background(), center, 3000)

	if len(first) != 3 {
		t.Fatalf("expected 3 fresh venues, got %d", len(first))
	}
	if len(second) != 0 {
		t.Fatalf("repeat search must add nothing, got %v", placeIDs(second))
	}
	if cat.Len() != 3 {
		t.Fatalf("expected 3 venues, got %d", cat.Len())
	}
}

func TestSearchVariantFailureIsIsolated(t *testing.T) {
	prov := &fakeSearch{
		hits: map[string][]RawHit{
			"football pitch": {hit("a")},
			"cricket pitch":  {hit("b")},
		},
		fail: map[string]bool{"football pitch": true},
	}
	cat := NewCatalog(prov, nil)

	fresh := cat.Search(context.Background(), geo.Point{}, 3000)
	if got := placeIDs(fresh); !equalIDs(got, []string{"b"}) {
		t.Fatalf("got %v", got)
	}
}

func TestSearchClampsRadius(t *testing.T) {
	cases := map[float64]int{50: 100, 100: 100, 2500.4: 2500, 2500.6: 2501, 25000: 10000}
	for in, want := range cases {
		if got := ClampRadius(in); got != want {
			t.Fatalf("ClampRadius(%v) = %d, want %d", in, got, want)
		}
	}

	prov := &fakeSearch{}
	NewCatalog(prov, nil).Search(context.Background(), geo.Point{}, 50000)
	for _, r := range prov.radii {
		if r != MaxSearchRadius {
			t.Fatalf("expected every variant to use the clamped radius, got %d", r)
		}
	}
	if len(prov.radii) != len(searchVariants) {
		t.Fatalf("expected %d variant queries, got %d", len(searchVariants), len(prov.radii))
	}
}

func TestEnrichMergesHoursAndIsolatesFailures(t *testing.T) {
	// Friday 18:00; "a" closes at 19:00 today.
	now := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)
	prov := &fakeSearch{
		hits: map[string][]RawHit{"football pitch": {
			{PlaceID: "a", Name: "A"},
			{PlaceID: "b", Name: "B", OpenNow: boolPtr(true)},
			{PlaceID: "c", Name: "C", OpenNow: boolPtr(false)},
		}},
		details: map[string]*Details{
			"a": {IsOpen: boolPtr(true), Periods: []Period{
				{Open: DayTime{Day: time.Friday, Hour: 9}, Close: &DayTime{Day: time.Friday, Hour: 19}},
			}},
			"b": {Periods: []Period{{Open: DayTime{Day: time.Sunday}}}},
		},
		detailErr: map[string]error{"c": errors.New("timeout")},
	}
	cat := NewCatalog(prov, nil, WithCatalogClock(func() time.Time { return now }))

	fresh := cat.Search(context.Background(), geo.Point{}, 3000)
	if n := cat.Enrich(context.Background(), fresh); n != 2 {
		t.Fatalf("expected 2 venues updated, got %d", n)
	}

	a, _ := cat.Get("a")
	if a.OpenNow == nil || !*a.OpenNow || !a.ClosingSoon || a.ClosesAt != "7pm" {
		t.Fatalf("unexpected enrichment for a: %+v", a)
	}

	b, _ := cat.Get("b")
	if b.OpenNow == nil || !*b.OpenNow {
		t.Fatalf("unknown open state must keep the previous value, got %+v", b.OpenNow)
	}
	if b.ClosingSoon {
		t.Fatalf("24/7 venues never close soon")
	}

	c, _ := cat.Get("c")
	if c.OpenNow == nil || *c.OpenNow || c.Periods != nil {
		t.Fatalf("failed lookup must leave the venue unchanged, got %+v", c)
	}
	if cat.Len() != 3 {
		t.Fatalf("enrichment must not add or drop venues")
	}
}

func TestEnrichDiscardedWhenCancelledMidBatch(t *testing.T) {
	prov := &fakeSearch{
		hits:    map[string][]RawHit{"football pitch": {hit("a")}},
		details: map[string]*Details{"a": {IsOpen: boolPtr(true)}},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	cat := NewCatalog(prov, nil)
	fresh := cat.Search(context.Background(), geo.Point{}, 3000)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() { done <- cat.Enrich(ctx, fresh) }()
	<-prov.started

	cancel()
	close(prov.block)

	if n := <-done; n != 0 {
		t.Fatalf("stale batch must be discarded, updated %d", n)
	}
	a, err := cat.Get("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.OpenNow != nil {
		t.Fatalf("stale enrichment leaked into the catalog: %+v", a)
	}
}

func TestEnrichDiscardedWhenCancelled(t *testing.T) {
	prov := &fakeSearch{
		hits:    map[string][]RawHit{"football pitch": {hit("a")}},
		details: map[string]*Details{"a": {IsOpen: boolPtr(true)}},
	}
	cat := NewCatalog(prov, nil)
	fresh := cat.Search(context.Background(), geo.Point{}, 3000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if n := cat.Enrich(ctx, fresh); n != 0 {
		t.Fatalf("cancelled batch must be discarded, updated %d", n)
	}
}

func TestVenuesReturnsSnapshot(t *testing.T) {
	prov := &fakeSearch{hits: map[string][]RawHit{"football pitch": {hit("a")}}}
	cat := NewCatalog(prov, nil)
	cat.Search(context.Background(), geo.Point{}, 3000)

	vs := cat.Venues()
	vs[0].Name = "changed"
	if v, _ := cat.Get("a"); v.Name == "changed" {
		t.Fatalf("Venues must return a copy")
	}
}
