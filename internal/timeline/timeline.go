// Package timeline builds the five-slot hourly strip shown next to current weather.
package timeline

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/i474232898/pitchside/internal/weather"
)

// SlotCount is the fixed length of a timeline: two past, current, two future.
const SlotCount = 5

// pastCutoff excludes samples too close to now to count as "before".
const pastCutoff = 30 * time.Minute

// Slot is one entry of the strip.
type Slot struct {
	Time      time.Time `json:"time"`
	HourLabel string    `json:"hour"`
	IconKey   string    `json:"icon"`
	TempC     int       `json:"tempC"`
	Current   bool      `json:"isCurrent"`
}

// point is a sample or forecast entry reduced to what a slot needs.
type point struct {
	at   time.Time
	cond weather.Condition
	temp float64
}

// Build returns exactly SlotCount slots around now. Hour labels use now's location.
func Build(cur weather.Current, forecast []weather.ForecastEntry, past []weather.HourlySample, now time.Time) []Slot {
	loc := now.Location()
	hour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, loc)

	slots := make([]Slot, 0, SlotCount)

	before := pickPast(cur.Condition, past, now)
	if len(before) < 2 {
		before = []point{
			{at: hour.Add(-2 * time.Hour), cond: cur.Condition, temp: cur.TemperatureC},
			{at: hour.Add(-time.Hour), cond: cur.Condition, temp: cur.TemperatureC},
		}
	}
	for _, p := range before {
		slots = append(slots, newSlot(p, loc, false))
	}

	slots = append(slots, newSlot(point{at: hour, cond: cur.Condition, temp: cur.TemperatureC}, loc, true))

	after := pickFuture(cur.Condition, forecast, hour)
	if len(after) < 2 {
		after = []point{
			{at: hour.Add(time.Hour), cond: weather.ConditionRain, temp: cur.TemperatureC},
			{at: hour.Add(2 * time.Hour), cond: weather.ConditionClouds, temp: cur.TemperatureC + 1},
		}
	}
	for _, p := range after {
		slots = append(slots, newSlot(p, loc, false))
	}
	return slots
}

// pickPast prefers the two most recent condition changes, walking back from the
// current condition, then fills with the most recent samples.
func pickPast(current weather.Condition, past []weather.HourlySample, now time.Time) []point {
	cutoff := now.Add(-pastCutoff)
	var valid []point
	for _, s := range past {
		if s.Time.Before(cutoff) {
			valid = append(valid, point{at: s.Time, cond: s.Condition(), temp: s.TemperatureC})
		}
	}
	slices.SortStableFunc(valid, func(a, b point) int { return a.at.Compare(b.at) })

	chosen := make([]point, 0, 2)
	picked := make(map[int]bool)
	last := current
	for i := len(valid) - 1; i >= 0 && len(chosen) < 2; i-- {
		if valid[i].cond != last {
			chosen = append(chosen, valid[i])
			picked[i] = true
			last = valid[i].cond
		}
	}
	for i := len(valid) - 1; i >= 0 && len(chosen) < 2; i-- {
		if !picked[i] {
			chosen = append(chosen, valid[i])
			picked[i] = true
		}
	}

	slices.SortFunc(chosen, func(a, b point) int { return a.at.Compare(b.at) })
	return chosen
}

// pickFuture prefers the next two condition changes, then fills forward. Only
// entries after hour count, and at least two are needed. A cached forecast ages,
// so its early entries may already be in the past.
func pickFuture(current weather.Condition, all []weather.ForecastEntry, hour time.Time) []point {
	var forecast []weather.ForecastEntry
	for _, f := range all {
		if f.Time.After(hour) {
			forecast = append(forecast, f)
		}
	}
	if len(forecast) < 2 {
		return nil
	}

	chosen := make([]point, 0, 2)
	picked := make(map[int]bool)
	last := current
	for i, f := range forecast {
		if len(chosen) == 2 {
			break
		}
		if f.Condition != last {
			chosen = append(chosen, point{at: f.Time, cond: f.Condition, temp: f.TemperatureC})
			picked[i] = true
			last = f.Condition
		}
	}
	for i, f := range forecast {
		if len(chosen) == 2 {
			break
		}
		if !picked[i] {
			chosen = append(chosen, point{at: f.Time, cond: f.Condition, temp: f.TemperatureC})
			picked[i] = true
		}
	}

	slices.SortFunc(chosen, func(a, b point) int { return a.at.Compare(b.at) })
	return chosen
}

func newSlot(p point, loc *time.Location, current bool) Slot {
	t := p.at.In(loc)
	return Slot{
		Time:      t,
		HourLabel: fmt.Sprintf("%02d:00", t.Hour()),
		IconKey:   weather.IconKey(p.cond),
		TempC:     int(math.Round(p.temp)),
		Current:   current,
	}
}
