package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRadiusQuery(t *testing.T) {
	query := RadiusQuery(38.897, -77.036, 10)

	assert.Equal(t, -77.036, query.CenterLng)
	assert.Equal(t, 38.897, query.CenterLat)
	assert.Equal(t, 10.0/3963, query.Radius)
	assert.InDelta(t, 0.002523, query.Radius, 0.000001)
}

func TestGeoQueryContains(t *testing.T) {
	// One degree of latitude is roughly 69 miles.
	query := RadiusQuery(40, -75, 10)

	assert.True(t, query.Contains(40, -75))
	assert.True(t, query.Contains(40.1, -75))  // ~6.9 miles north
	assert.False(t, query.Contains(40.5, -75)) // ~35 miles north
	assert.False(t, query.Contains(40, -74))   // ~53 miles east
}

func TestGeoQueryBoundingBox(t *testing.T) {
	query := RadiusQuery(40, -75, 10)

	minLat, maxLat, minLng, maxLng := query.BoundingBox()

	assert.Less(t, minLat, 40.0)
	assert.Greater(t, maxLat, 40.0)
	assert.Less(t, minLng, -75.0)
	assert.Greater(t, maxLng, -75.0)

	// Any point the exact check accepts must fall inside the prefilter box.
	for _, point := range [][2]float64{{40.1, -75}, {40, -75.1}, {39.9, -74.9}} {
		if query.Contains(point[0], point[1]) {
			assert.GreaterOrEqual(t, point[0], minLat)
			assert.LessOrEqual(t, point[0], maxLat)
			assert.GreaterOrEqual(t, point[1], minLng)
			assert.LessOrEqual(t, point[1], maxLng)
		}
	}

	// Near the poles the longitude span degenerates to the full circle.
	_, _, minLng, maxLng = RadiusQuery(89.99, 0, 100).BoundingBox()
	assert.Equal(t, -180.0, minLng)
	assert.Equal(t, 180.0, maxLng)
}
