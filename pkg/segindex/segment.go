// Package segindex indexes 2D line segments for exact nearest-segment and
// radius queries.
//
// Two backings share one query contract: Tree, a bounding volume hierarchy
// built by pairing adjacent segments bottom-up, and RTree, built on
// github.com/tidwall/rtree. Both are immutable once built and safe for
// concurrent queries without locking.
//
// Distances are expressed in the units of the configured geo.Metric. The
// default, geo.SquaredEuclidean, returns squared distances, so radii passed
// to Within must be squared too.
//
// Coordinates are assumed finite. NaN coordinates do not panic but make
// query results undefined.
package segindex

import "trip_viewer/pkg/geo"

// Segment is one indexed line segment with its caller payload.
type Segment[T any] struct {
	P0, P1 geo.Point
	// Index is the segment's position in its source polyline: the segment
	// runs from vertex Index to vertex Index+1.
	Index   int
	Payload T
}

// Extent returns the bounding box of the segment.
func (s Segment[T]) Extent() geo.Extent {
	return geo.ExtentOf(s.P0, s.P1)
}

// Leaf wraps an indexed segment.
type Leaf[T any] struct {
	Segment[T]
	Extent geo.Extent
}

// Result is a query hit.
type Result[T any] struct {
	Leaf     *Leaf[T]
	Distance float64 // in Metric units
}

// Index is the query surface shared by Tree and RTree.
type Index[T any] interface {
	// Nearest returns the segment closest to p. ok is false when the index
	// is empty or p has a NaN coordinate.
	Nearest(p geo.Point) (r Result[T], ok bool)
	// Within returns every segment whose distance to p is strictly less
	// than maxDistance, in no particular order.
	Within(p geo.Point, maxDistance float64) []Result[T]
	// Len returns the number of indexed segments.
	Len() int
}

// Options configures index construction.
type Options struct {
	// Metric is the distance metric. Nil selects geo.SquaredEuclidean.
	Metric geo.Metric
}

func buildOptions(opts []Options) Options {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Metric == nil {
		o.Metric = geo.SquaredEuclidean
	}
	return o
}

func newLeaves[T any](segments []Segment[T]) []Leaf[T] {
	leaves := make([]Leaf[T], len(segments))
	for i, s := range segments {
		leaves[i] = Leaf[T]{Segment: s, Extent: s.Extent()}
	}
	return leaves
}

// distance returns the exact metric distance from p to the leaf's segment.
func (l *Leaf[T]) distance(m geo.Metric, p geo.Point) float64 {
	d, _ := geo.PointSegmentDistance(m, p, l.P0, l.P1)
	return d
}
