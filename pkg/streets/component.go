package streets

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient, max rank ~30 for realistic networks
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in x's set.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

// LargestComponent returns the streets of the largest connected network,
// where streets connect through shared OSM nodes. Clipping an extract to a
// bounding box leaves small disconnected fragments at its edges; this drops
// them. Input order is preserved.
func LargestComponent(streets []Street) []Street {
	if len(streets) == 0 {
		return nil
	}

	// Compact OSM node IDs to dense indices.
	index := make(map[int64]uint32)
	for _, s := range streets {
		for _, id := range s.NodeIDs {
			if _, ok := index[id]; !ok {
				index[id] = uint32(len(index))
			}
		}
	}

	uf := NewUnionFind(uint32(len(index)))
	for _, s := range streets {
		for i := 1; i < len(s.NodeIDs); i++ {
			uf.Union(index[s.NodeIDs[i-1]], index[s.NodeIDs[i]])
		}
	}

	// Find the representative with the largest size. Ties go to the
	// component of the earliest street.
	var bestRoot, bestSize uint32
	for _, s := range streets {
		if len(s.NodeIDs) == 0 {
			continue
		}
		root := uf.Find(index[s.NodeIDs[0]])
		if size := uf.size[root]; size > bestSize {
			bestRoot = root
			bestSize = size
		}
	}

	out := make([]Street, 0, len(streets))
	for _, s := range streets {
		if len(s.NodeIDs) > 0 && uf.Find(index[s.NodeIDs[0]]) == bestRoot {
			out = append(out, s)
		}
	}
	return out
}
