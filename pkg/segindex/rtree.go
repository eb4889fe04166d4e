package segindex

import (
	"math"

	"github.com/tidwall/rtree"

	"trip_viewer/pkg/geo"
)

// RTree answers the same queries as Tree on top of an R-tree. The search is
// the same branch and bound: the library's best-first Nearby traversal is
// scored with the extent lower bound for nodes and the exact segment
// distance for items, so items surface in non-decreasing exact distance.
type RTree[T any] struct {
	tr     rtree.RTreeG[int32] // item data is the leaf index
	leaves []Leaf[T]
	metric geo.Metric
}

// BuildRTree constructs an R-tree backed index over segments.
func BuildRTree[T any](segments []Segment[T], opts ...Options) *RTree[T] {
	o := buildOptions(opts)
	t := &RTree[T]{
		leaves: newLeaves(segments),
		metric: o.Metric,
	}
	for i := range t.leaves {
		e := t.leaves[i].Extent
		t.tr.Insert([2]float64{e.Min.X, e.Min.Y}, [2]float64{e.Max.X, e.Max.Y}, int32(i))
	}
	return t
}

// Len returns the number of indexed segments.
func (t *RTree[T]) Len() int { return len(t.leaves) }

// Leaves returns the leaves in input order. The slice must not be modified.
func (t *RTree[T]) Leaves() []Leaf[T] { return t.leaves }

// Nearest returns the segment closest to p.
func (t *RTree[T]) Nearest(p geo.Point) (Result[T], bool) {
	var res Result[T]
	found := false
	t.tr.Nearby(t.scorer(p), func(_, _ [2]float64, idx int32, dist float64) bool {
		if math.IsNaN(dist) {
			return false
		}
		res = Result[T]{Leaf: &t.leaves[idx], Distance: dist}
		found = true
		return false
	})
	return res, found
}

// Within returns every segment whose distance to p is strictly less than
// maxDistance.
func (t *RTree[T]) Within(p geo.Point, maxDistance float64) []Result[T] {
	if len(t.leaves) == 0 || !(maxDistance > 0) {
		return nil
	}

	var results []Result[T]
	t.tr.Nearby(t.scorer(p), func(_, _ [2]float64, idx int32, dist float64) bool {
		if !(dist < maxDistance) {
			return false
		}
		results = append(results, Result[T]{Leaf: &t.leaves[idx], Distance: dist})
		return true
	})
	return results
}

func (t *RTree[T]) scorer(p geo.Point) func(min, max [2]float64, idx int32, item bool) float64 {
	return func(min, max [2]float64, idx int32, item bool) float64 {
		if item {
			return t.leaves[idx].distance(t.metric, p)
		}
		e := geo.Extent{Min: geo.Point{X: min[0], Y: min[1]}, Max: geo.Point{X: max[0], Y: max[1]}}
		return geo.ExtentDistance(t.metric, p, e)
	}
}
