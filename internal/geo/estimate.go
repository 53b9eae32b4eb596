// Package geo estimates travel costs from coordinates alone. It is the
// fallback used whenever the routing provider has no trustworthy answer.
package geo

import (
	"math"

	"collection-route-service/internal/domain"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
	EarthRadiusMeters = 6371000.0
	// UrbanSpeedMps is an average city driving speed (30 km/h).
	UrbanSpeedMps = 8.33
	// OverheadFactor inflates straight-line travel time for turns and signals.
	OverheadFactor = 1.2
)

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Estimate approximates the road distance and travel duration between a and b.
// It never fails and is symmetric in its arguments.
func Estimate(a, b domain.Coordinates) (distanceMeters, durationSeconds float64) {
	distanceMeters = Haversine(a, b)
	durationSeconds = distanceMeters / UrbanSpeedMps * OverheadFactor
	return distanceMeters, durationSeconds
}
