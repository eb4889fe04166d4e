package viewer

import (
	"cmp"
	"context"
	"maps"
	"math"
	"slices"
	"time"

	"trip_viewer/pkg/feature"
	"trip_viewer/pkg/geo"
	"trip_viewer/pkg/segindex"
	"trip_viewer/pkg/streets"
)

// Viewer is the interface for map interaction queries.
type Viewer interface {
	SelectStreet(ctx context.Context, p LatLng, maxMeters float64) (*StreetMatch, error)
	HitTracks(ctx context.Context, p LatLng, radiusMeters float64) ([]TrackHit, error)
	VideoCoverage(ctx context.Context, p LatLng, radiusMeters float64) ([]VideoHit, error)
	Stats() Stats
}

// StreetMatch is the street closest to a query point.
type StreetMatch struct {
	Street         *streets.Street
	SegmentIndex   int     // segment runs from vertex SegmentIndex to SegmentIndex+1
	Ratio          float64 // 0.0 = at the segment start, 1.0 = at its end
	DistanceMeters float64
	Snapped        LatLng
}

// TrackHit is the closest point of one track to a query point.
type TrackHit struct {
	Track          *feature.Track
	Line           int
	SegmentIndex   int
	Ratio          float64
	DistanceMeters float64
	Snapped        LatLng
	Time           time.Time // zero when the track has no timestamps there
}

// VideoHit is a video passing near a query point.
type VideoHit struct {
	TrackHit
	Offset    time.Duration // seek position from the start of the video
	HasOffset bool
}

// SelectStreet returns the street nearest to p. maxMeters <= 0 uses the
// configured snap limit.
func (d *Dataset) SelectStreet(ctx context.Context, p LatLng, maxMeters float64) (*StreetMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxMeters <= 0 {
		maxMeters = d.cfg.MaxSnapMeters
	}
	if d.streetIdx.Len() == 0 {
		return nil, ErrNoData
	}

	q := d.project(p)
	r, ok := d.streetIdx.Nearest(q)
	if !ok {
		return nil, ErrNoData
	}

	dist := math.Sqrt(r.Distance)
	if dist > maxMeters {
		return nil, &TooFarError{DistanceMeters: dist, LimitMeters: maxMeters}
	}

	_, t := geo.PointSegmentDistance(geo.SquaredEuclidean, q, r.Leaf.P0, r.Leaf.P1)
	return &StreetMatch{
		Street:         &d.streets[r.Leaf.Payload],
		SegmentIndex:   r.Leaf.Index,
		Ratio:          t,
		DistanceMeters: dist,
		Snapped:        d.unproject(r.Leaf.P0.Lerp(r.Leaf.P1, t)),
	}, nil
}

// StreetsWithin returns the streets passing strictly within radiusMeters of
// p, one match per street at its closest segment, nearest first.
// radiusMeters <= 0 uses the configured hit radius.
func (d *Dataset) StreetsWithin(ctx context.Context, p LatLng, radiusMeters float64) ([]StreetMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	radiusMeters = d.radius(radiusMeters)
	q := d.project(p)
	results := d.streetIdx.Within(q, radiusMeters*radiusMeters)
	if len(results) == 0 {
		return nil, nil
	}

	best := make(map[int32]segindex.Result[int32], len(results))
	for _, r := range results {
		cur, ok := best[r.Leaf.Payload]
		if !ok || r.Distance < cur.Distance || (r.Distance == cur.Distance && r.Leaf.Index < cur.Leaf.Index) {
			best[r.Leaf.Payload] = r
		}
	}

	// Visit streets in slice order so the stable sort below leaves clipped
	// runs of one way in input order on equal distance.
	out := make([]StreetMatch, 0, len(best))
	for _, si := range slices.Sorted(maps.Keys(best)) {
		r := best[si]
		_, t := geo.PointSegmentDistance(geo.SquaredEuclidean, q, r.Leaf.P0, r.Leaf.P1)
		out = append(out, StreetMatch{
			Street:         &d.streets[si],
			SegmentIndex:   r.Leaf.Index,
			Ratio:          t,
			DistanceMeters: math.Sqrt(r.Distance),
			Snapped:        d.unproject(r.Leaf.P0.Lerp(r.Leaf.P1, t)),
		})
	}
	slices.SortStableFunc(out, func(a, b StreetMatch) int {
		if c := cmp.Compare(a.DistanceMeters, b.DistanceMeters); c != 0 {
			return c
		}
		return cmp.Compare(a.Street.WayID, b.Street.WayID)
	})
	return out, nil
}

// HitTracks returns the trips passing strictly within radiusMeters of p, one
// hit per trip at its closest segment, nearest first. radiusMeters <= 0 uses
// the configured hit radius.
func (d *Dataset) HitTracks(ctx context.Context, p LatLng, radiusMeters float64) ([]TrackHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.hits(d.tripIdx, d.trips, p, d.radius(radiusMeters)), nil
}

// VideoCoverage returns the videos passing strictly within radiusMeters of p,
// nearest first, with the seek offset of the closest point.
func (d *Dataset) VideoCoverage(ctx context.Context, p LatLng, radiusMeters float64) ([]VideoHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := d.hits(d.videoIdx, d.videos, p, d.radius(radiusMeters))
	if len(hits) == 0 {
		return nil, nil
	}
	out := make([]VideoHit, len(hits))
	for i, h := range hits {
		out[i] = VideoHit{TrackHit: h}
		if start := h.Track.Start(); !h.Time.IsZero() && !start.IsZero() {
			out[i].Offset = h.Time.Sub(start)
			out[i].HasOffset = true
		}
	}
	return out, nil
}

func (d *Dataset) radius(meters float64) float64 {
	if meters <= 0 {
		return d.cfg.HitRadiusMeters
	}
	return meters
}

// hits runs a radius query and keeps the closest segment per track.
func (d *Dataset) hits(idx segindex.Index[lineRef], tracks []feature.Track, p LatLng, radiusMeters float64) []TrackHit {
	q := d.project(p)
	results := idx.Within(q, radiusMeters*radiusMeters)
	if len(results) == 0 {
		return nil
	}

	best := make(map[int32]segindex.Result[lineRef], len(results))
	for _, r := range results {
		cur, ok := best[r.Leaf.Payload.track]
		if !ok || closer(r, cur) {
			best[r.Leaf.Payload.track] = r
		}
	}

	out := make([]TrackHit, 0, len(best))
	for _, ti := range slices.Sorted(maps.Keys(best)) {
		r := best[ti]
		tr := &tracks[ti]
		_, t := geo.PointSegmentDistance(geo.SquaredEuclidean, q, r.Leaf.P0, r.Leaf.P1)
		h := TrackHit{
			Track:          tr,
			Line:           int(r.Leaf.Payload.line),
			SegmentIndex:   r.Leaf.Index,
			Ratio:          t,
			DistanceMeters: math.Sqrt(r.Distance),
			Snapped:        d.unproject(r.Leaf.P0.Lerp(r.Leaf.P1, t)),
		}
		if ts, ok := tr.TimeAt(h.Line, h.SegmentIndex, t); ok {
			h.Time = ts
		}
		out = append(out, h)
	}

	slices.SortStableFunc(out, func(a, b TrackHit) int {
		if c := cmp.Compare(a.DistanceMeters, b.DistanceMeters); c != 0 {
			return c
		}
		return cmp.Compare(a.Track.ID, b.Track.ID)
	})
	return out
}

// closer orders results by distance, then by position along the track.
func closer(a, b segindex.Result[lineRef]) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if a.Leaf.Payload.line != b.Leaf.Payload.line {
		return a.Leaf.Payload.line < b.Leaf.Payload.line
	}
	return a.Leaf.Index < b.Leaf.Index
}
