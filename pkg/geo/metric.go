package geo

import "math"

// Metric returns the distance between two points. Spatial indexes prune
// with Metric(p, extent.Clamp(p)), so a Metric must be monotonic in the
// per-axis separation of its arguments for pruning to stay exact.
//
// NaN coordinates give undefined (but non-panicking) results.
type Metric func(a, b Point) float64

// SquaredEuclidean is the default planar metric. Results are squared
// units: compare against squared radii.
func SquaredEuclidean(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// Euclidean is the linear planar metric.
func Euclidean(a, b Point) float64 {
	return math.Sqrt(SquaredEuclidean(a, b))
}

// GreatCircle is the haversine distance in meters between lon/lat points.
// The box bound it yields is approximate for extents spanning many degrees
// of latitude; pre-project with Equirectangular when exact results matter.
func GreatCircle(a, b Point) float64 {
	return Haversine(a.Y, a.X, b.Y, b.X)
}

// PointSegmentDistance returns the distance under m from p to the closest
// point of segment ab, and the projection ratio of that point along ab
// (0 at a, 1 at b). The projection is computed in the coordinate plane.
func PointSegmentDistance(m Metric, p, a, b Point) (dist float64, t float64) {
	d := b.Sub(a)
	lenSq := d.X*d.X + d.Y*d.Y

	// Degenerate segment: t stays 0 and the result is the distance to a.
	if lenSq > 0 {
		ap := p.Sub(a)
		t = (ap.X*d.X + ap.Y*d.Y) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	return m(p, a.Lerp(b, t)), t
}

// ExtentDistance returns the distance under m from p to the nearest point of
// e, 0 when p is inside or on the boundary. No point inside e is closer to p.
func ExtentDistance(m Metric, p Point, e Extent) float64 {
	if e.Contains(p) {
		return 0
	}
	return m(p, e.Clamp(p))
}
