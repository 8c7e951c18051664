package geo

import "math"

const earthRadiusMeters = 6371000.0

// a WGS84 coordinate pair
type Point struct {
	Latitude  float64
	Longitude float64
}

// a latitude/longitude rectangle used as a cheap SQL prefilter
// before exact distance checks
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// returns the great-circle distance between two points in meters
func Distance(a, b Point) float64 {
	latA := a.Latitude * math.Pi / 180
	latB := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// reports whether b is within radius meters of a. The boundary is
// inclusive: a point exactly at the radius is within.
func WithinRadius(a, b Point, radiusMeters float64) bool {
	return Distance(a, b) <= radiusMeters
}

// returns a bounding box that fully contains the circle of the given
// radius around the center. Slightly oversized near the poles, which is
// fine for a prefilter.
func BoxAround(center Point, radiusMeters float64) BoundingBox {
	dLat := radiusMeters / earthRadiusMeters * 180 / math.Pi
	dLng := dLat / math.Cos(center.Latitude*math.Pi/180)

	return BoundingBox{
		MinLat: center.Latitude - dLat,
		MaxLat: center.Latitude + dLat,
		MinLng: center.Longitude - dLng,
		MaxLng: center.Longitude + dLng,
	}
}
