// Package streets holds the street network shown on the map: extraction
// from parsed OSM ways, cleanup, and the preprocessed cache file.
package streets

import (
	"github.com/paulmach/osm"

	"trip_viewer/pkg/geo"
	osmparser "trip_viewer/pkg/osm"
)

// Street is one drawable street polyline.
type Street struct {
	WayID   int64
	Name    string
	Highway string
	Oneway  bool
	NodeIDs []int64     // OSM node per point
	Points  []geo.Point // lon/lat
}

// Build converts parsed OSM ways into streets, in parse order.
func Build(result *osmparser.ParseResult) []Street {
	out := make([]Street, 0, len(result.Ways))
	for _, w := range result.Ways {
		s := Street{
			WayID:   int64(w.ID),
			Name:    w.Name,
			Highway: w.Highway,
			Oneway:  w.Forward != w.Backward,
			NodeIDs: make([]int64, len(w.NodeIDs)),
			Points:  make([]geo.Point, len(w.NodeIDs)),
		}
		for i, id := range w.NodeIDs {
			s.NodeIDs[i] = int64(id)
			s.Points[i] = geo.Point{X: result.NodeLon[id], Y: result.NodeLat[id]}
		}
		out = append(out, s)
	}
	return out
}

// FeatureID returns the OSM feature reference, e.g. "way/123".
func (s *Street) FeatureID() string {
	return osm.WayID(s.WayID).FeatureID().String()
}

// Extent returns the lon/lat bounding box of the street.
func (s *Street) Extent() geo.Extent {
	if len(s.Points) == 0 {
		return geo.Extent{}
	}
	e := geo.ExtentOf(s.Points[0], s.Points[0])
	for _, p := range s.Points[1:] {
		e = e.Union(geo.ExtentOf(p, p))
	}
	return e
}

// LengthMeters returns the street's great-circle length.
func (s *Street) LengthMeters() float64 {
	var total float64
	for i := 1; i < len(s.Points); i++ {
		a, b := s.Points[i-1], s.Points[i]
		total += geo.Haversine(a.Y, a.X, b.Y, b.X)
	}
	return total
}
