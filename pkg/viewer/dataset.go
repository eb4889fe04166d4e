// Package viewer answers map interaction queries: which street was clicked,
// which trips pass near a point and which videos cover it.
package viewer

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"trip_viewer/pkg/feature"
	"trip_viewer/pkg/geo"
	"trip_viewer/pkg/segindex"
	"trip_viewer/pkg/streets"
)

var (
	// ErrPointTooFar is returned when the nearest street is beyond the snap
	// limit.
	ErrPointTooFar = errors.New("point too far from street")
	// ErrNoData is returned when there is nothing to query.
	ErrNoData = errors.New("no data loaded")
)

// TooFarError reports how far the nearest street was. It matches
// ErrPointTooFar with errors.Is.
type TooFarError struct {
	DistanceMeters float64
	LimitMeters    float64
}

func (e *TooFarError) Error() string {
	return fmt.Sprintf("%v: nearest street %.1fm away, limit %.1fm", ErrPointTooFar, e.DistanceMeters, e.LimitMeters)
}

func (e *TooFarError) Is(target error) bool { return target == ErrPointTooFar }

// Index backends.
const (
	BackendBVH   = "bvh"
	BackendRTree = "rtree"
)

// Config holds dataset options.
type Config struct {
	Backend         string  // BackendBVH or BackendRTree
	MaxSnapMeters   float64 // default SelectStreet limit
	HitRadiusMeters float64 // default HitTracks/VideoCoverage radius
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:         BackendBVH,
		MaxSnapMeters:   500,
		HitRadiusMeters: 25,
	}
}

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// lineRef locates a segment's polyline within a track.
type lineRef struct {
	track int32
	line  int32
}

// Dataset is an immutable snapshot of streets, trips and videos with their
// spatial indexes. All vertices are projected to local meters around the
// centre of the data, so index distances are squared meters.
type Dataset struct {
	cfg     Config
	proj    geo.Equirectangular
	streets []streets.Street
	trips   []feature.Track
	videos  []feature.Track

	streetIdx segindex.Index[int32]
	tripIdx   segindex.Index[lineRef]
	videoIdx  segindex.Index[lineRef]
}

// NewDataset projects the data and builds one index per layer.
func NewDataset(cfg Config, sts []streets.Street, trips, videos []feature.Track) (*Dataset, error) {
	def := DefaultConfig()
	if cfg.Backend == "" {
		cfg.Backend = def.Backend
	}
	if cfg.Backend != BackendBVH && cfg.Backend != BackendRTree {
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
	if cfg.MaxSnapMeters <= 0 {
		cfg.MaxSnapMeters = def.MaxSnapMeters
	}
	if cfg.HitRadiusMeters <= 0 {
		cfg.HitRadiusMeters = def.HitRadiusMeters
	}

	d := &Dataset{
		cfg:     cfg,
		proj:    geo.NewEquirectangular(dataCenter(sts, trips, videos)),
		streets: sts,
		trips:   trips,
		videos:  videos,
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		d.streetIdx = buildIndex(cfg.Backend, d.streetSegments())
	}()

	go func() {
		defer wg.Done()
		d.tripIdx = buildIndex(cfg.Backend, d.trackSegments(trips))
	}()

	go func() {
		defer wg.Done()
		d.videoIdx = buildIndex(cfg.Backend, d.trackSegments(videos))
	}()

	wg.Wait()
	return d, nil
}

func buildIndex[T any](backend string, segs []segindex.Segment[T]) segindex.Index[T] {
	if backend == BackendRTree {
		return segindex.BuildRTree(segs)
	}
	return segindex.Build(segs)
}

func (d *Dataset) streetSegments() []segindex.Segment[int32] {
	var segs []segindex.Segment[int32]
	for i := range d.streets {
		pts := d.streets[i].Points
		for k := 0; k+1 < len(pts); k++ {
			segs = append(segs, segindex.Segment[int32]{
				P0:      d.proj.Forward(pts[k]),
				P1:      d.proj.Forward(pts[k+1]),
				Index:   k,
				Payload: int32(i),
			})
		}
	}
	return segs
}

func (d *Dataset) trackSegments(tracks []feature.Track) []segindex.Segment[lineRef] {
	var segs []segindex.Segment[lineRef]
	for ti := range tracks {
		for li, line := range tracks[ti].Lines {
			ref := lineRef{track: int32(ti), line: int32(li)}
			for k := 0; k+1 < len(line); k++ {
				segs = append(segs, segindex.Segment[lineRef]{
					P0:      d.proj.Forward(line[k].Point),
					P1:      d.proj.Forward(line[k+1].Point),
					Index:   k,
					Payload: ref,
				})
			}
		}
	}
	return segs
}

// dataCenter returns the centre of the lon/lat extent of all vertices, or
// the origin when there are none.
func dataCenter(sts []streets.Street, trips, videos []feature.Track) geo.Point {
	var (
		e    geo.Extent
		seen bool
	)
	add := func(p geo.Point) {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return
		}
		if !seen {
			e, seen = geo.ExtentOf(p, p), true
			return
		}
		e = e.Union(geo.ExtentOf(p, p))
	}
	for i := range sts {
		for _, p := range sts[i].Points {
			add(p)
		}
	}
	for _, tracks := range [][]feature.Track{trips, videos} {
		for i := range tracks {
			for _, line := range tracks[i].Lines {
				for _, p := range line {
					add(p.Point)
				}
			}
		}
	}
	if !seen {
		return geo.Point{}
	}
	return e.Center()
}

// Stats summarises the dataset.
type Stats struct {
	Backend        string
	Streets        int
	StreetSegments int
	Trips          int
	TripSegments   int
	Videos         int
	VideoSegments  int
}

// Stats returns dataset counts.
func (d *Dataset) Stats() Stats {
	return Stats{
		Backend:        d.cfg.Backend,
		Streets:        len(d.streets),
		StreetSegments: d.streetIdx.Len(),
		Trips:          len(d.trips),
		TripSegments:   d.tripIdx.Len(),
		Videos:         len(d.videos),
		VideoSegments:  d.videoIdx.Len(),
	}
}

// Config returns the dataset's effective configuration.
func (d *Dataset) Config() Config { return d.cfg }

// project converts a query point to local meters.
func (d *Dataset) project(p LatLng) geo.Point {
	return d.proj.Forward(geo.Point{X: p.Lng, Y: p.Lat})
}

// unproject converts local meters back to a coordinate.
func (d *Dataset) unproject(p geo.Point) LatLng {
	ll := d.proj.Inverse(p)
	return LatLng{Lat: ll.Y, Lng: ll.X}
}
