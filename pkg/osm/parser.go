package osm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

// RawWay is a street way, or the part of one inside the bounding box.
type RawWay struct {
	ID       osm.WayID
	Name     string
	Highway  string
	Forward  bool
	Backward bool
	NodeIDs  []osm.NodeID
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Ways    []RawWay
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// streetHighways lists highway tag values drawn as streets on the map.
var streetHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
	"pedestrian":     true,
	"track":          true,
	"cycleway":       true,
	"footway":        true,
	"path":           true,
}

// isStreet returns true if the way should be indexed as a street.
func isStreet(tags osm.Tags) bool {
	if !streetHighways[tags.Find("highway")] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Direction changes over the day; still a street, shown as two-way.
		forward = true
		backward = true
	}

	return forward, backward
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, ways are clipped to runs of nodes inside the box.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, clip ways to this bounding box
}

// Parse reads an OSM PBF file and returns its street ways.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []RawWay

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isStreet(w.Tags) || len(w.Nodes) < 2 {
			continue
		}

		fwd, bwd := directionFlags(w.Tags)
		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, RawWay{
			ID:       w.ID,
			Name:     w.Tags.Find("name"),
			Highway:  w.Tags.Find("highway"),
			Forward:  fwd,
			Backward: bwd,
			NodeIDs:  nodeIDs,
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(nodeLat))

	result := &ParseResult{NodeLat: nodeLat, NodeLon: nodeLon}
	var split int
	for _, w := range ways {
		runs := clipWay(w, result, opt.BBox)
		if len(runs) != 1 {
			split++
		}
		result.Ways = append(result.Ways, runs...)
	}

	if split > 0 {
		log.Printf("Clipped or split %d ways at missing nodes or the bounding box", split)
	}
	log.Printf("Kept %d street ways", len(result.Ways))

	return result, nil
}

// clipWay splits w into runs of consecutive nodes that have coordinates and
// lie inside bbox (when set). Runs shorter than two nodes are dropped.
func clipWay(w RawWay, res *ParseResult, bbox BBox) []RawWay {
	useBBox := !bbox.IsZero()
	var runs []RawWay
	start := 0

	flush := func(end int) {
		if end-start >= 2 {
			run := w
			run.NodeIDs = w.NodeIDs[start:end:end]
			runs = append(runs, run)
		}
	}

	for i, id := range w.NodeIDs {
		lat, ok := res.NodeLat[id]
		keep := ok && (!useBBox || bbox.Contains(lat, res.NodeLon[id]))
		if !keep {
			flush(i)
			start = i + 1
		}
	}
	flush(len(w.NodeIDs))

	return runs
}
