package streets

import (
	"testing"

	"trip_viewer/pkg/geo"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	// Initially all separate.
	for i := range uint32(5) {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}

	if !uf.Union(0, 1) {
		t.Error("Union(0, 1) should merge")
	}
	if uf.Union(1, 0) {
		t.Error("Union(1, 0) should report already merged")
	}
	uf.Union(2, 3)
	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}

	uf.Union(1, 3)
	if uf.Find(0) != uf.Find(3) {
		t.Error("0 and 3 should now be in same set")
	}
	if uf.Size(2) != 4 {
		t.Errorf("Size(2) = %d, want 4", uf.Size(2))
	}
	if uf.Size(4) != 1 {
		t.Errorf("Size(4) = %d, want 1", uf.Size(4))
	}
}

func street(wayID int64, nodes ...int64) Street {
	pts := make([]geo.Point, len(nodes))
	for i, n := range nodes {
		pts[i] = geo.Point{X: float64(n), Y: 0}
	}
	return Street{WayID: wayID, NodeIDs: nodes, Points: pts}
}

func TestLargestComponent(t *testing.T) {
	// Network 1: ways 1, 2, 3 joined at nodes 20 and 30 (5 nodes).
	// Network 2: way 4 (2 nodes).
	in := []Street{
		street(4, 90, 91),
		street(1, 10, 20),
		street(2, 20, 30, 40),
		street(3, 30, 50),
	}

	got := LargestComponent(in)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []int64{1, 2, 3} {
		if got[i].WayID != want {
			t.Errorf("got[%d].WayID = %d, want %d", i, got[i].WayID, want)
		}
	}
}

func TestLargestComponentTie(t *testing.T) {
	in := []Street{street(1, 1, 2), street(2, 3, 4)}
	got := LargestComponent(in)
	if len(got) != 1 || got[0].WayID != 1 {
		t.Errorf("tie should keep the earliest street's network, got %+v", got)
	}
}

func TestLargestComponentEmpty(t *testing.T) {
	if got := LargestComponent(nil); got != nil {
		t.Errorf("LargestComponent(nil) = %v, want nil", got)
	}
}
