package geocode

import "math"

// Earth's mean radius in miles. Dividing a surface distance by this gives the
// equivalent central angle in radians.
const earthRadiusMiles = 3963

// GeoQuery selects points within a spherical cap centered at
// (CenterLng, CenterLat). Coordinate order follows the standard geospatial
// point convention of longitude first.
type GeoQuery struct {
	CenterLng float64
	CenterLat float64

	// Angular radius in radians.
	Radius float64
}

func RadiusQuery(lat, lng, distanceMiles float64) GeoQuery {
	return GeoQuery{
		CenterLng: lng,
		CenterLat: lat,
		Radius:    distanceMiles / earthRadiusMiles,
	}
}

// BoundingBox returns a latitude/longitude rectangle enclosing the cap,
// usable as a cheap sql prefilter before the exact Contains check. The
// longitude span widens toward the poles; near the poles it degenerates to
// the full circle.
func (q GeoQuery) BoundingBox() (minLat, maxLat, minLng, maxLng float64) {
	deltaLat := q.Radius * 180 / math.Pi

	minLat = q.CenterLat - deltaLat
	maxLat = q.CenterLat + deltaLat

	cosLat := math.Cos(q.CenterLat * math.Pi / 180)
	if cosLat <= 0 {
		return minLat, maxLat, -180, 180
	}

	deltaLng := deltaLat / cosLat
	if deltaLng >= 180 {
		return minLat, maxLat, -180, 180
	}

	return minLat, maxLat, q.CenterLng - deltaLng, q.CenterLng + deltaLng
}

// Contains reports whether the point lies within the cap, comparing the
// great-circle central angle between the point and the center against the
// angular radius.
func (q GeoQuery) Contains(lat, lng float64) bool {
	return centralAngle(q.CenterLat, q.CenterLng, lat, lng) <= q.Radius
}

func centralAngle(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lng2 - lng1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
