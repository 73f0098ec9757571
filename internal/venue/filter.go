package venue

import (
	"slices"
	"strings"

	"github.com/i474232898/pitchside/internal/common"
	"github.com/i474232898/pitchside/internal/geo"
)

// Filter narrows a venue list. Zero values match everything.
type Filter struct {
	Sports   []Sport
	OpenOnly bool
	Query    string
}

func (f Filter) Match(v Venue) bool {
	if len(f.Sports) > 0 && !slices.Contains(f.Sports, v.Sport) {
		return false
	}
	if f.OpenOnly && (v.OpenNow == nil || !*v.OpenNow) {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" && !common.HasAny(v.Name, q) {
		return false
	}
	return true
}

func (f Filter) Apply(venues []Venue) []Venue {
	out := make([]Venue, 0, len(venues))
	for _, v := range venues {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

// Ranked is a venue with its distance from a reference point.
type Ranked struct {
	Venue
	DistanceKm     float64 `json:"distanceKm"`
	Distance       string  `json:"distance"`
	WalkingMinutes int     `json:"walkingMinutes"`
}

// Rank decorates v with its distance and walking time from `from`.
func Rank(v Venue, from geo.Point) Ranked {
	km := geo.DistanceKm(from, v.Location)
	return Ranked{
		Venue:          v,
		DistanceKm:     km,
		Distance:       geo.FormatDistance(km),
		WalkingMinutes: geo.WalkingMinutes(km),
	}
}

// SortByDistance ranks venues nearest first. Ties keep catalog order.
func SortByDistance(venues []Venue, from geo.Point) []Ranked {
	out := make([]Ranked, len(venues))
	for i, v := range venues {
		out[i] = Rank(v, from)
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}
		return 0
	})
	return out
}
