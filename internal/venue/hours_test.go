package venue

import (
	"testing"
	"time"

	"github.com/i474232898/pitchside/internal/geo"
)

var weekday = []Period{
	{Open: DayTime{Day: time.Friday, Hour: 7}, Close: &DayTime{Day: time.Friday, Hour: 21, Minute: 30}},
	{Open: DayTime{Day: time.Saturday, Hour: 8, Minute: 15}, Close: &DayTime{Day: time.Sunday, Hour: 1}},
}

func TestFormatTime(t *testing.T) {
	cases := []struct {
		in   DayTime
		want string
	}{
		{DayTime{Hour: 0}, "12am"},
		{DayTime{Hour: 7}, "7am"},
		{DayTime{Hour: 12}, "12pm"},
		{DayTime{Hour: 19, Minute: 30}, "7:30pm"},
		{DayTime{Hour: 9, Minute: 5}, "9:05am"},
	}
	for _, tc := range cases {
		if got := FormatTime(tc.in); got != tc.want {
			t.Fatalf("FormatTime(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTodayHours(t *testing.T) {
	friday := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	h, ok := TodayHours(weekday, friday)
	if !ok || h.OpensAt != "7am" || h.ClosesAt != "9:30pm" {
		t.Fatalf("unexpected hours %+v", h)
	}

	if _, ok := TodayHours(weekday, friday.AddDate(0, 0, 3)); ok {
		t.Fatalf("monday has no period")
	}
	if _, ok := TodayHours(nil, friday); ok {
		t.Fatalf("no periods means no hours")
	}

	h, ok = TodayHours([]Period{{Open: DayTime{Day: time.Sunday}}}, friday)
	if !ok || h.OpensAt != "Open 24hrs" || h.ClosesAt != "" {
		t.Fatalf("unexpected 24/7 hours %+v", h)
	}
}

func TestClosingSoon(t *testing.T) {
	at := func(day, hour, min int) time.Time {
		return time.Date(2026, 10, day, hour, min, 0, 0, time.UTC)
	}

	if !ClosingSoon(weekday, at(16, 20, 0)) {
		t.Fatalf("closing at 21:30 is within 90 minutes of 20:00")
	}
	if ClosingSoon(weekday, at(16, 19, 59)) {
		t.Fatalf("91 minutes before close is not soon")
	}
	if !ClosingSoon(weekday, at(16, 20, 0)) || ClosingSoon(weekday, at(16, 21, 30)) {
		t.Fatalf("closed venues are not closing soon")
	}
	if !ClosingSoon(weekday, at(17, 23, 45)) {
		t.Fatalf("saturday closes at 1am sunday")
	}
	if ClosingSoon([]Period{{Open: DayTime{Day: time.Sunday}}}, at(16, 23, 59)) {
		t.Fatalf("24/7 venues never close soon")
	}
}

func TestFilterAndSort(t *testing.T) {
	origin := geo.Point{Lat: 51.52, Lng: -0.04}
	venues := []Venue{
		{PlaceID: "far", Name: "Victoria Park Cricket", Sport: SportCricket, Location: geo.Point{Lat: 51.54, Lng: -0.04}, OpenNow: boolPtr(true)},
		{PlaceID: "near", Name: "Mile End Pitches", Sport: SportFootball, Location: geo.Point{Lat: 51.521, Lng: -0.04}, OpenNow: boolPtr(true)},
		{PlaceID: "shut", Name: "Stepney Green", Sport: SportFootball, Location: geo.Point{Lat: 51.52, Lng: -0.04}, OpenNow: boolPtr(false)},
		{PlaceID: "unknown", Name: "Bow Rec", Sport: SportFootball, Location: geo.Point{Lat: 51.53, Lng: -0.02}},
	}

	football := Filter{Sports: []Sport{SportFootball}}.Apply(venues)
	if len(football) != 3 {
		t.Fatalf("expected 3 football venues, got %d", len(football))
	}
	open := Filter{OpenOnly: true}.Apply(venues)
	if got := placeIDs(open); !equalIDs(got, []string{"far", "near"}) {
		t.Fatalf("open filter got %v", got)
	}
	if got := placeIDs(Filter{Query: "  mile "}.Apply(venues)); !equalIDs(got, []string{"near"}) {
		t.Fatalf("query filter got %v", got)
	}

	ranked := SortByDistance(venues, origin)
	if ranked[0].PlaceID != "shut" || ranked[1].PlaceID != "near" {
		t.Fatalf("unexpected order %s, %s", ranked[0].PlaceID, ranked[1].PlaceID)
	}
	if ranked[1].Distance != "111m" || ranked[1].WalkingMinutes != 1 {
		t.Fatalf("unexpected decoration %+v", ranked[1])
	}
}
