package osm

import (
	"reflect"
	"testing"

	"github.com/paulmach/osm"
)

func TestIsStreet(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{
			name: "residential road",
			tags: osm.Tags{{Key: "highway", Value: "residential"}},
			want: true,
		},
		{
			name: "footway",
			tags: osm.Tags{{Key: "highway", Value: "footway"}},
			want: true,
		},
		{
			name: "private service road is still drawn",
			tags: osm.Tags{
				{Key: "highway", Value: "service"},
				{Key: "access", Value: "private"},
			},
			want: true,
		},
		{
			name: "area=yes (pedestrian plaza)",
			tags: osm.Tags{
				{Key: "highway", Value: "pedestrian"},
				{Key: "area", Value: "yes"},
			},
			want: false,
		},
		{
			name: "construction",
			tags: osm.Tags{{Key: "highway", Value: "construction"}},
			want: false,
		},
		{
			name: "bus stop node tag",
			tags: osm.Tags{{Key: "highway", Value: "bus_stop"}},
			want: false,
		},
		{
			name: "no highway tag",
			tags: osm.Tags{{Key: "name", Value: "Some Street"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isStreet(tt.tags); got != tt.want {
				t.Errorf("isStreet() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirectionFlags(t *testing.T) {
	tests := []struct {
		name         string
		tags         osm.Tags
		wantForward  bool
		wantBackward bool
	}{
		{
			name:         "default bidirectional",
			tags:         osm.Tags{{Key: "highway", Value: "residential"}},
			wantForward:  true,
			wantBackward: true,
		},
		{
			name:         "motorway implied oneway",
			tags:         osm.Tags{{Key: "highway", Value: "motorway"}},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "roundabout implied oneway",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "junction", Value: "roundabout"},
			},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "explicit oneway=yes",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "yes"},
			},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "explicit oneway=-1 (reverse)",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "-1"},
			},
			wantForward:  false,
			wantBackward: true,
		},
		{
			name: "explicit oneway=no overrides implied",
			tags: osm.Tags{
				{Key: "highway", Value: "motorway"},
				{Key: "oneway", Value: "no"},
			},
			wantForward:  true,
			wantBackward: true,
		},
		{
			name: "oneway=reversible shown as two-way",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "reversible"},
			},
			wantForward:  true,
			wantBackward: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := directionFlags(tt.tags)
			if fwd != tt.wantForward || bwd != tt.wantBackward {
				t.Errorf("directionFlags() = (%v, %v), want (%v, %v)", fwd, bwd, tt.wantForward, tt.wantBackward)
			}
		})
	}
}

func TestClipWay(t *testing.T) {
	// Nodes 1..6 along a line of longitude 103.80..103.85; node 4 has no
	// coordinates in the extract.
	res := &ParseResult{
		NodeLat: map[osm.NodeID]float64{1: 1.30, 2: 1.30, 3: 1.30, 5: 1.30, 6: 1.30},
		NodeLon: map[osm.NodeID]float64{1: 103.80, 2: 103.81, 3: 103.82, 5: 103.84, 6: 103.85},
	}
	way := RawWay{ID: 42, Name: "Orchard Road", NodeIDs: []osm.NodeID{1, 2, 3, 4, 5, 6}}

	tests := []struct {
		name string
		bbox BBox
		want [][]osm.NodeID
	}{
		{
			name: "split at missing node",
			want: [][]osm.NodeID{{1, 2, 3}, {5, 6}},
		},
		{
			name: "bbox drops the west end and the single-node run",
			bbox: BBox{MinLat: 1.0, MaxLat: 2.0, MinLng: 103.815, MaxLng: 104.0},
			want: [][]osm.NodeID{{5, 6}},
		},
		{
			name: "bbox outside everything",
			bbox: BBox{MinLat: 50, MaxLat: 51, MinLng: 0, MaxLng: 1},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := clipWay(way, res, tt.bbox)
			var got [][]osm.NodeID
			for _, r := range runs {
				if r.ID != way.ID || r.Name != way.Name {
					t.Errorf("run lost way attributes: %+v", r)
				}
				got = append(got, r.NodeIDs)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("clipWay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBBoxContains(t *testing.T) {
	b := BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
	if !b.Contains(1.3, 103.8) {
		t.Error("expected Singapore CBD inside bbox")
	}
	if b.Contains(3.1, 101.7) {
		t.Error("expected Kuala Lumpur outside bbox")
	}
	if b.IsZero() || !(BBox{}).IsZero() {
		t.Error("IsZero mismatch")
	}
}
