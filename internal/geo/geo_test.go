package geo

import (
	"math"
	"testing"
)

// verifies the haversine distance against a known Montreal landmark pair
func TestDistance(t *testing.T) {
	// Place Ville-Marie to the Olympic Stadium, roughly 5.5 km
	a := Point{Latitude: 45.5017, Longitude: -73.5673}
	b := Point{Latitude: 45.5579, Longitude: -73.5515}

	d := Distance(a, b)

	if d < 5000 || d > 6500 {
		t.Errorf("Expected distance around 5.5km, got %.0fm", d)
	}
}

func TestDistanceZero(t *testing.T) {
	p := Point{Latitude: 45.5, Longitude: -73.56}

	if d := Distance(p, p); d != 0 {
		t.Errorf("Expected zero distance, got %f", d)
	}
}

// verifies the radius boundary is inclusive: a point exactly at the
// radius is within, one meter beyond is not
func TestWithinRadiusBoundary(t *testing.T) {
	center := Point{Latitude: 45.5017, Longitude: -73.5673}

	// move due north by exactly 250m
	dLat := 250.0 / earthRadiusMeters * 180 / math.Pi
	atBoundary := Point{Latitude: center.Latitude + dLat, Longitude: center.Longitude}

	d := Distance(center, atBoundary)
	if !WithinRadius(center, atBoundary, d) {
		t.Error("Point exactly at the radius should be within")
	}

	if WithinRadius(center, atBoundary, d-1) {
		t.Error("Point one meter beyond the radius should be excluded")
	}
}

func TestBoxAroundContainsCircle(t *testing.T) {
	center := Point{Latitude: 45.5017, Longitude: -73.5673}
	box := BoxAround(center, 250)

	if box.MinLat >= center.Latitude || box.MaxLat <= center.Latitude {
		t.Error("Box should straddle the center latitude")
	}

	// boundary points in the four cardinal directions must fall inside the box
	dLat := 250.0 / earthRadiusMeters * 180 / math.Pi
	north := Point{Latitude: center.Latitude + dLat, Longitude: center.Longitude}
	south := Point{Latitude: center.Latitude - dLat, Longitude: center.Longitude}

	for _, p := range []Point{north, south} {
		if p.Latitude < box.MinLat || p.Latitude > box.MaxLat {
			t.Errorf("Point %+v outside box %+v", p, box)
		}
	}
}
