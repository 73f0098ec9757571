package venue

import (
	"fmt"
	"time"
)

const closingSoonWindow = 90 * time.Minute

// DayTime is a weekly time of day as reported by the places provider.
type DayTime struct {
	Day    time.Weekday `json:"day"`
	Hour   int          `json:"hours"`
	Minute int          `json:"minutes"`
}

// Period is one opening interval. Close is nil for a place that never closes.
type Period struct {
	Open  DayTime  `json:"open"`
	Close *DayTime `json:"close,omitempty"`
}

// Hours is today's opening window in display form.
type Hours struct {
	OpensAt  string `json:"opensAt"`
	ClosesAt string `json:"closesAt,omitempty"`
}

// AlwaysOpen reports whether periods describe a 24/7 place.
func AlwaysOpen(periods []Period) bool {
	return len(periods) == 1 && periods[0].Close == nil
}

func todayPeriod(periods []Period, now time.Time) (Period, bool) {
	for _, p := range periods {
		if p.Open.Day == now.Weekday() {
			return p, true
		}
	}
	return Period{}, false
}

// TodayHours returns the opening window for now's weekday.
func TodayHours(periods []Period, now time.Time) (Hours, bool) {
	if len(periods) == 0 {
		return Hours{}, false
	}
	if AlwaysOpen(periods) {
		return Hours{OpensAt: "Open 24hrs"}, true
	}

	p, ok := todayPeriod(periods, now)
	if !ok {
		return Hours{}, false
	}
	h := Hours{OpensAt: FormatTime(p.Open)}
	if p.Close != nil {
		h.ClosesAt = FormatTime(*p.Close)
	}
	return h, true
}

// ClosingSoon reports whether today's period closes within the next 90 minutes.
func ClosingSoon(periods []Period, now time.Time) bool {
	if len(periods) == 0 || AlwaysOpen(periods) {
		return false
	}
	p, ok := todayPeriod(periods, now)
	if !ok || p.Close == nil {
		return false
	}

	closeAt := time.Date(now.Year(), now.Month(), now.Day(), p.Close.Hour, p.Close.Minute, 0, 0, now.Location())
	if p.Close.Day != p.Open.Day {
		// Closes after midnight.
		closeAt = closeAt.AddDate(0, 0, 1)
	}

	diff := closeAt.Sub(now)
	return diff > 0 && diff <= closingSoonWindow
}

// FormatTime renders a time of day as "7pm" or "7:30pm".
func FormatTime(t DayTime) string {
	suffix := "am"
	if t.Hour >= 12 {
		suffix = "pm"
	}
	h := t.Hour
	switch {
	case h == 0:
		h = 12
	case h > 12:
		h -= 12
	}
	if t.Minute == 0 {
		return fmt.Sprintf("%d%s", h, suffix)
	}
	return fmt.Sprintf("%d:%02d%s", h, t.Minute, suffix)
}
