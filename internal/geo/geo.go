// Package geo provides the geospatial primitives used by the restaurant
// search: great-circle distance and bounding-box derivation.
package geo

import (
	"fmt"
	"math"
)

const (
	// earthRadiusKm is the mean Earth radius used for haversine distances.
	earthRadiusKm = 6367.0

	// kmPerDegreeLat is the approximate north-south extent of one degree of
	// latitude. The east-west extent of one degree of longitude is this value
	// compressed by cos(latitude).
	kmPerDegreeLat = 111.32

	// minCosLat guards the longitude-delta division near the poles. Geocoding
	// is restricted to Spain, so any latitude this close to ±90° is bogus
	// input rather than a real search center.
	minCosLat = 1e-6
)

// Point is a WGS-84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// BoundingBox is an axis-aligned latitude/longitude rectangle approximating
// a circular search radius around a center point.
type BoundingBox struct {
	LatMin float64
	LatMax float64
	LngMin float64
	LngMax float64
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// BoundingBoxAround derives the bounding box covering radiusKm around center.
// The longitude delta grows with latitude to compensate for meridian
// convergence. Returns an error for non-positive radii and for near-polar
// centers where the longitude delta would blow up.
func BoundingBoxAround(center Point, radiusKm float64) (BoundingBox, error) {
	if radiusKm <= 0 {
		return BoundingBox{}, fmt.Errorf("geo: bounding box: radius must be positive, got %g", radiusKm)
	}

	cosLat := math.Cos(radians(center.Lat))
	if cosLat < minCosLat {
		return BoundingBox{}, fmt.Errorf("geo: bounding box: latitude %g too close to a pole", center.Lat)
	}

	deltaLat := radiusKm / kmPerDegreeLat
	deltaLng := radiusKm / (kmPerDegreeLat * cosLat)

	return BoundingBox{
		LatMin: center.Lat - deltaLat,
		LatMax: center.Lat + deltaLat,
		LngMin: center.Lng - deltaLng,
		LngMax: center.Lng + deltaLng,
	}, nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
