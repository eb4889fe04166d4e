package segindex

import "trip_viewer/pkg/geo"

const noChild = int32(-1)

// node is a BVH node. Leaves occupy node indices [0, len(leaves)) and share
// their index with the leaf slice; internal nodes follow, root last.
type node struct {
	extent   geo.Extent
	children [2]int32 // noChild for leaves
}

func (n *node) isLeaf() bool { return n.children[0] == noChild }

// Tree is a bounding volume hierarchy over line segments. It is never
// modified after Build.
type Tree[T any] struct {
	leaves []Leaf[T]
	nodes  []node
	root   int32 // noChild when empty
	metric geo.Metric
}

// Info contains structural information about a tree.
type Info struct {
	NNodes   int // total nodes, leaves included
	NLeaves  int
	MaxDepth int // root has depth 0
}

// Build constructs a tree over segments. Adjacent nodes are paired in input
// order, level by level, with an odd trailing node carried up unchanged, so
// construction is O(n) and never fails. No spatial sorting is done: partition
// quality only affects query speed, never correctness. An empty input yields
// an empty tree.
func Build[T any](segments []Segment[T], opts ...Options) *Tree[T] {
	o := buildOptions(opts)
	t := &Tree[T]{
		leaves: newLeaves(segments),
		root:   noChild,
		metric: o.Metric,
	}
	n := len(t.leaves)
	if n == 0 {
		return t
	}

	t.nodes = make([]node, n, 2*n-1)
	level := make([]int32, n)
	for i := range t.leaves {
		t.nodes[i] = node{extent: t.leaves[i].Extent, children: [2]int32{noChild, noChild}}
		level[i] = int32(i)
	}

	// Pair in place: the next level overwrites the front of the current one.
	for len(level) > 1 {
		next := level[:0]
		i := 0
		for ; i+1 < len(level); i += 2 {
			a, b := level[i], level[i+1]
			t.nodes = append(t.nodes, node{
				extent:   t.nodes[a].extent.Union(t.nodes[b].extent),
				children: [2]int32{a, b},
			})
			next = append(next, int32(len(t.nodes)-1))
		}
		if i < len(level) {
			next = append(next, level[i])
		}
		level = next
	}

	t.root = level[0]
	return t
}

// Len returns the number of indexed segments.
func (t *Tree[T]) Len() int { return len(t.leaves) }

// Leaves returns the leaves in input order. The slice must not be modified.
func (t *Tree[T]) Leaves() []Leaf[T] { return t.leaves }

// Metric returns the metric the tree was built with.
func (t *Tree[T]) Metric() geo.Metric { return t.metric }

// Extent returns the bounding box of all segments. ok is false for an empty
// tree.
func (t *Tree[T]) Extent() (e geo.Extent, ok bool) {
	if t.root == noChild {
		return e, false
	}
	return t.nodes[t.root].extent, true
}

// Info returns basic structural information about the tree.
func (t *Tree[T]) Info() Info {
	info := Info{NNodes: len(t.nodes), NLeaves: len(t.leaves)}
	if t.root == noChild {
		return info
	}

	type item struct {
		node  int32
		depth int
	}
	stack := []item{{t.root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.depth > info.MaxDepth {
			info.MaxDepth = it.depth
		}
		n := &t.nodes[it.node]
		if n.isLeaf() {
			continue
		}
		stack = append(stack, item{n.children[0], it.depth + 1}, item{n.children[1], it.depth + 1})
	}
	return info
}
