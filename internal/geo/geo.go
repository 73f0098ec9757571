package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for haversine distances.
	EarthRadiusMeters = 6371000.0
	// EarthRadiusKm is EarthRadiusMeters expressed in kilometres.
	EarthRadiusKm = 6371.0

	metersPerDegreeLat = 111320.0
	walkingSpeedKmh    = 5.0
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) String() string {
	return fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lng)
}

// Valid reports whether the point lies within the legal latitude/longitude range.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// DistanceMeters returns the great-circle distance between a and b in metres.
func DistanceMeters(a, b Point) float64 {
	return haversine(a, b) * EarthRadiusMeters
}

// DistanceKm returns the great-circle distance between a and b in kilometres.
func DistanceKm(a, b Point) float64 {
	return haversine(a, b) * EarthRadiusKm
}

// haversine returns the central angle between a and b in radians.
func haversine(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Offset projects p by distanceMeters along bearingRadians (0 = north, π/2 = east).
//
// It uses a planar approximation with longitude scaled by cos(latitude). The error is
// negligible at city scale but the result is not meaningful near the poles or for
// distances beyond roughly 50 km.
func Offset(p Point, distanceMeters, bearingRadians float64) Point {
	return Point{
		Lat: p.Lat + distanceMeters*math.Cos(bearingRadians)/metersPerDegreeLat,
		Lng: p.Lng + distanceMeters*math.Sin(bearingRadians)/(metersPerDegreeLat*math.Cos(toRad(p.Lat))),
	}
}

// WalkingMinutes estimates walking time at 5 km/h.
func WalkingMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm / walkingSpeedKmh * 60))
}

// FormatDistance renders a distance for list display: metres below 1 km, else km with one decimal.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1fkm", km)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
