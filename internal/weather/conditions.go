package weather

import (
	"strings"

	"github.com/i474232898/pitchside/internal/common"
)

// ConditionFromWMO maps Open-Meteo WMO weather codes onto the normalized taxonomy.
// Unlisted codes fall back to clouds.
func ConditionFromWMO(code int) Condition {
	switch code {
	case 0:
		return ConditionClear
	case 1, 2, 3, 45, 48:
		return ConditionClouds
	case 51, 53, 55, 56, 57, 61, 63, 65, 66, 67, 80, 81, 82:
		return ConditionRain
	case 71, 73, 75, 77, 85, 86:
		return ConditionSnow
	case 95, 96, 99:
		return ConditionThunderstorm
	default:
		return ConditionClouds
	}
}

// ConditionFromMain maps an OpenWeatherMap "main" group onto the normalized taxonomy.
func ConditionFromMain(main string) Condition {
	switch strings.ToLower(main) {
	case "clear":
		return ConditionClear
	case "clouds":
		return ConditionClouds
	case "rain":
		return ConditionRain
	case "drizzle":
		return ConditionDrizzle
	case "snow":
		return ConditionSnow
	case "thunderstorm":
		return ConditionThunderstorm
	case "":
		return ConditionUnknown
	default:
		return ConditionMist
	}
}

// IsRaining reports whether a provider condition group describes falling rain.
func IsRaining(main string) bool {
	return common.HasAny(strings.ToLower(main), "rain", "drizzle", "thunderstorm")
}

// IsRainLike reports whether a normalized condition counts as a rain hour.
func (c Condition) IsRainLike() bool {
	return c == ConditionRain || c == ConditionThunderstorm
}

// IconKey maps a condition to the icon set used by the client.
func IconKey(c Condition) string {
	switch c {
	case ConditionClear:
		return "sunny"
	case ConditionClouds:
		return "cloudy"
	case ConditionRain, ConditionDrizzle:
		return "raining"
	case ConditionSnow:
		return "snowing"
	case ConditionThunderstorm:
		return "hail"
	default:
		return "sunny-cloudy"
	}
}
