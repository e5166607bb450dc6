package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)

// HaversineDistance calculates the great-circle distance between two points
// in meters. Symmetric, and zero when both points coincide.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Bearing calculates the initial bearing (forward azimuth) from point 1 to point 2.
// Returns bearing in degrees (0-360), where 0 is North, 90 is East, etc.
// Used to backfill bearing for fixes whose provider did not report one.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lonDiff := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x)

	bearingDeg := bearing * 180 / math.Pi
	return math.Mod(bearingDeg+360, 360)
}
