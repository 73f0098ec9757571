package condition

// Kind selects the label vocabulary.
type Kind int

const (
	Wetness Kind = iota
	Muddiness
)

var labelThresholds = []int{15, 30, 50, 70}

var labels = map[Kind][]string{
	Wetness:   {"Bone Dry", "Probably Fine", "Possibly Damp", "Likely Wet", "Definitely Wet"},
	Muddiness: {"Firm Ground", "Probably Fine", "Possibly Muddy", "Likely Muddy", "Definitely Muddy"},
}

// Label names a percentage for the given kind.
func Label(pct int, kind Kind) string {
	names, ok := labels[kind]
	if !ok {
		names = labels[Muddiness]
	}
	for i, t := range labelThresholds {
		if pct < t {
			return names[i]
		}
	}
	return names[len(names)-1]
}

// Band is a traffic-light grouping for rendering a percentage.
type Band string

const (
	BandGood     Band = "good"
	BandModerate Band = "moderate"
	BandPoor     Band = "poor"
)

func ColorBand(pct int) Band {
	switch {
	case pct < 30:
		return BandGood
	case pct < 60:
		return BandModerate
	default:
		return BandPoor
	}
}

// Report is a score with its labels and bands, ready for display.
type Report struct {
	Score
	WetnessLabel   string `json:"wetnessLabel"`
	MuddinessLabel string `json:"muddinessLabel"`
	WetnessBand    Band   `json:"wetnessBand"`
	MuddinessBand  Band   `json:"muddinessBand"`
}

func Describe(s Score) Report {
	return Report{
		Score:          s,
		WetnessLabel:   Label(s.WetnessPct, Wetness),
		MuddinessLabel: Label(s.MuddinessPct, Muddiness),
		WetnessBand:    ColorBand(s.WetnessPct),
		MuddinessBand:  ColorBand(s.MuddinessPct),
	}
}
