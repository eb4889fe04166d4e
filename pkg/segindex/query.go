package segindex

import (
	"math"

	"trip_viewer/pkg/geo"
	"trip_viewer/pkg/pqueue"
)

// frontierItem is an open node in the nearest search, keyed by the lower
// bound of its distance to the query point.
type frontierItem struct {
	node  int32
	bound float64
}

func frontierLess(a, b frontierItem) bool { return a.bound < b.bound }

// Nearest returns the segment closest to p by branch and bound: nodes are
// expanded in order of their extent's lower bound, and the search stops once
// the smallest open bound cannot beat the best exact distance found. The
// result is exact. Ties resolve to the same leaf on every call.
func (t *Tree[T]) Nearest(p geo.Point) (Result[T], bool) {
	if t.root == noChild {
		return Result[T]{}, false
	}

	best := math.Inf(1)
	bestLeaf := noChild

	frontier := pqueue.NewWithCapacity(frontierLess, 64)
	frontier.Push(frontierItem{node: t.root, bound: t.bound(p, t.root)})

	for {
		item, ok := frontier.Pop()
		if !ok || item.bound >= best {
			break
		}

		n := &t.nodes[item.node]
		if n.isLeaf() {
			d := t.leaves[item.node].distance(t.metric, p)
			if d < best {
				best = d
				bestLeaf = item.node
			}
			continue
		}

		for _, c := range n.children {
			frontier.Push(frontierItem{node: c, bound: t.bound(p, c)})
		}
	}

	if bestLeaf == noChild {
		// Only reachable with NaN input.
		return Result[T]{}, false
	}
	return Result[T]{Leaf: &t.leaves[bestLeaf], Distance: best}, true
}

// Within returns every segment whose distance to p is strictly less than
// maxDistance. A subtree is skipped when its lower bound reaches
// maxDistance. Results are unordered; maxDistance <= 0 matches nothing.
func (t *Tree[T]) Within(p geo.Point, maxDistance float64) []Result[T] {
	if t.root == noChild || !(maxDistance > 0) {
		return nil
	}

	var results []Result[T]
	stack := make([]int32, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t.bound(p, idx) >= maxDistance {
			continue
		}

		n := &t.nodes[idx]
		if n.isLeaf() {
			leaf := &t.leaves[idx]
			if d := leaf.distance(t.metric, p); d < maxDistance {
				results = append(results, Result[T]{Leaf: leaf, Distance: d})
			}
			continue
		}

		stack = append(stack, n.children[0], n.children[1])
	}

	return results
}

// bound is the admissible lower bound from p to anything under node idx.
func (t *Tree[T]) bound(p geo.Point, idx int32) float64 {
	return geo.ExtentDistance(t.metric, p, t.nodes[idx].extent)
}
