// Package geofence classifies position samples against safe zones.
//
// The evaluator is pure and stateless: identical inputs return
// bit-identical results, which the alert engine relies on for stable
// transition detection. It is safe for concurrent use.
package geofence

import (
	"math"

	"safeband/internal/geofence/models"
)

// earthRadiusMeters is the mean Earth radius used by the Haversine
// formula.
const earthRadiusMeters = 6371000.0

// Evaluation is the result of classifying one sample against one zone.
type Evaluation struct {
	IsInside       bool    `json:"is_inside"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Evaluate classifies a sample against a circular zone. Inputs are
// validated; a sample exactly on the boundary counts as inside.
func Evaluate(center models.LatLng, radiusMeters float64, sample models.LatLng) (Evaluation, error) {
	if err := center.Validate(); err != nil {
		return Evaluation{}, err
	}
	if err := sample.Validate(); err != nil {
		return Evaluation{}, err
	}
	distance := DistanceMeters(center, sample)
	return Evaluation{
		IsInside:       distance <= radiusMeters,
		DistanceMeters: distance,
	}, nil
}

// DistanceMeters computes the great-circle distance between two points
// via the Haversine formula.
func DistanceMeters(a, b models.LatLng) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
