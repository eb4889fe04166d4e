package geo

import "math"

const earthRadiusMeters = 6_371_000.0

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// EquirectangularDist returns an approximate distance in meters.
// ~3x faster than Haversine and accurate to <0.1% over city-sized spans.
// Use for candidate filtering and comparisons, not for reported distances.
func EquirectangularDist(lat1, lon1, lat2, lon2 float64) float64 {
	x := (lon2 - lon1) * math.Cos((lat1+lat2)/2*math.Pi/180) * math.Pi / 180
	y := (lat2 - lat1) * math.Pi / 180
	return math.Sqrt(x*x+y*y) * earthRadiusMeters
}

// degToMeters converts degree-scaled equirectangular distances to meters.
const degToMeters = math.Pi / 180 * earthRadiusMeters

// Equirectangular projects lon/lat points onto a local plane in meters,
// centred on Origin. Distances are exact Euclidean distances in the plane,
// which keeps the bounding-box lower bounds of a spatial index admissible.
type Equirectangular struct {
	Origin Point // lon/lat
	cosLat float64
}

// NewEquirectangular returns a projection centred on origin (lon/lat).
func NewEquirectangular(origin Point) Equirectangular {
	return Equirectangular{
		Origin: origin,
		cosLat: math.Cos(origin.Y * math.Pi / 180),
	}
}

// Forward projects a lon/lat point to planar meters.
func (e Equirectangular) Forward(ll Point) Point {
	return Point{
		X: (ll.X - e.Origin.X) * e.cosLat * degToMeters,
		Y: (ll.Y - e.Origin.Y) * degToMeters,
	}
}

// Inverse maps planar meters back to lon/lat.
func (e Equirectangular) Inverse(xy Point) Point {
	lon := e.Origin.X
	if e.cosLat != 0 {
		lon += xy.X / (e.cosLat * degToMeters)
	}
	return Point{X: lon, Y: e.Origin.Y + xy.Y/degToMeters}
}
