package geo

import "math"

// Point is a 2D coordinate. Geographic data keeps longitude in X and
// latitude in Y; projected data keeps planar meters.
type Point struct {
	X float64
	Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Lerp returns the point at parameter t on the line from p to q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + t*(q.X-p.X), p.Y + t*(q.Y-p.Y)}
}

// Extent is an axis-aligned bounding rectangle.
type Extent struct {
	Min Point
	Max Point
}

// ExtentOf returns the bounding box of two points.
func ExtentOf(a, b Point) Extent {
	return Extent{
		Min: Point{math.Min(a.X, b.X), math.Min(a.Y, b.Y)},
		Max: Point{math.Max(a.X, b.X), math.Max(a.Y, b.Y)},
	}
}

// Union returns the smallest extent containing both e and o.
func (e Extent) Union(o Extent) Extent {
	return Extent{
		Min: Point{math.Min(e.Min.X, o.Min.X), math.Min(e.Min.Y, o.Min.Y)},
		Max: Point{math.Max(e.Max.X, o.Max.X), math.Max(e.Max.Y, o.Max.Y)},
	}
}

// Contains reports whether p lies inside or on the boundary of e.
func (e Extent) Contains(p Point) bool {
	return p.X >= e.Min.X && p.X <= e.Max.X && p.Y >= e.Min.Y && p.Y <= e.Max.Y
}

// ContainsExtent reports whether o lies fully inside e.
func (e Extent) ContainsExtent(o Extent) bool {
	return e.Contains(o.Min) && e.Contains(o.Max)
}

// Clamp returns the point of e closest to p, clamping each axis independently.
func (e Extent) Clamp(p Point) Point {
	return Point{clamp(p.X, e.Min.X, e.Max.X), clamp(p.Y, e.Min.Y, e.Max.Y)}
}

// Center returns the midpoint of e.
func (e Extent) Center() Point {
	return Point{(e.Min.X + e.Max.X) / 2, (e.Min.Y + e.Max.Y) / 2}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
