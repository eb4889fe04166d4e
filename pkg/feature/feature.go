// Package feature loads trips and videos: timestamped polylines stored as
// GeoJSON feature collections.
package feature

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"trip_viewer/pkg/geo"
)

// ErrUnsupportedGeometry is returned for features that are not line strings.
var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// Kind tells trips and videos apart.
type Kind string

const (
	KindTrip  Kind = "trip"
	KindVideo Kind = "video"
)

// TimedPoint is a lon/lat vertex with an optional timestamp.
type TimedPoint struct {
	geo.Point
	Time time.Time // zero when unknown
}

// Track is one trip or video path. A MultiLineString feature yields a track
// with several lines.
type Track struct {
	ID     string
	Kind   Kind
	Name   string
	URL    string // video source; empty for trips
	TripID string // trip a video was recorded on
	Lines  [][]TimedPoint
}

// Start returns the first known timestamp, or the zero time.
func (t *Track) Start() time.Time {
	for _, line := range t.Lines {
		for _, p := range line {
			if !p.Time.IsZero() {
				return p.Time
			}
		}
	}
	return time.Time{}
}

// Duration returns the time between the first and last known timestamps.
func (t *Track) Duration() time.Duration {
	start := t.Start()
	if start.IsZero() {
		return 0
	}
	var end time.Time
	for _, line := range t.Lines {
		for _, p := range line {
			if !p.Time.IsZero() {
				end = p.Time
			}
		}
	}
	return end.Sub(start)
}

// TimeAt interpolates the timestamp at ratio ratio along the segment starting
// at vertex index of the given line. Returns false when either end of the
// segment has no timestamp or the position is out of range.
func (t *Track) TimeAt(line, index int, ratio float64) (time.Time, bool) {
	if line < 0 || line >= len(t.Lines) {
		return time.Time{}, false
	}
	pts := t.Lines[line]
	if index < 0 || index+1 >= len(pts) {
		return time.Time{}, false
	}
	a, b := pts[index].Time, pts[index+1].Time
	if a.IsZero() || b.IsZero() {
		return time.Time{}, false
	}
	ratio = max(0, min(1, ratio))
	return a.Add(time.Duration(float64(b.Sub(a)) * ratio)), true
}

// LoadStats counts what LoadTracks kept and skipped.
type LoadStats struct {
	Tracks  int
	Skipped int
}

// LoadTracks decodes a GeoJSON FeatureCollection. LineString and
// MultiLineString features become tracks; other features are skipped.
func LoadTracks(r io.Reader, kind Kind) ([]Track, LoadStats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("read: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("decode feature collection: %w", err)
	}

	var stats LoadStats
	tracks := make([]Track, 0, len(fc.Features))
	for i, f := range fc.Features {
		tr, err := trackFromFeature(f, kind)
		if err != nil {
			if errors.Is(err, ErrUnsupportedGeometry) {
				stats.Skipped++
				continue
			}
			return nil, stats, fmt.Errorf("feature %d: %w", i, err)
		}
		if tr.ID == "" {
			tr.ID = fmt.Sprintf("%s/%d", kind, i)
		}
		tracks = append(tracks, tr)
	}
	stats.Tracks = len(tracks)
	return tracks, stats, nil
}

// LoadTracksFile loads a GeoJSON file and logs what it read.
func LoadTracksFile(path string, kind Kind) ([]Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	tracks, stats, err := LoadTracks(f, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("Loaded %d %ss from %s (%d features skipped)", stats.Tracks, kind, path, stats.Skipped)
	return tracks, nil
}

func trackFromFeature(f *geojson.Feature, kind Kind) (Track, error) {
	var lines []orb.LineString
	switch g := f.Geometry.(type) {
	case orb.LineString:
		lines = []orb.LineString{g}
	case orb.MultiLineString:
		lines = g
	default:
		return Track{}, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, f.Geometry)
	}

	tr := Track{
		ID:     featureID(f),
		Kind:   kind,
		Name:   f.Properties.MustString("name", ""),
		URL:    f.Properties.MustString("url", ""),
		TripID: f.Properties.MustString("trip_id", ""),
	}

	times, err := vertexTimes(f.Properties, lines)
	if err != nil {
		return Track{}, err
	}

	for li, ls := range lines {
		if len(ls) < 2 {
			continue
		}
		pts := make([]TimedPoint, len(ls))
		for k, p := range ls {
			pts[k] = TimedPoint{Point: geo.Point{X: p.Lon(), Y: p.Lat()}}
			if times != nil {
				pts[k].Time = times[li][k]
			}
		}
		tr.Lines = append(tr.Lines, pts)
	}
	if len(tr.Lines) == 0 {
		return Track{}, fmt.Errorf("%w: no line with two or more vertices", ErrUnsupportedGeometry)
	}
	return tr, nil
}

func featureID(f *geojson.Feature) string {
	if f.ID != nil {
		return fmt.Sprint(f.ID)
	}
	return f.Properties.MustString("id", "")
}

// vertexTimes reads per-vertex timestamps from the "coordTimes" property
// (RFC 3339 strings) or the "times" property (epoch milliseconds). Both may be
// a flat list for a LineString or a list of lists for a MultiLineString.
// Returns nil when neither is present.
func vertexTimes(props geojson.Properties, lines []orb.LineString) ([][]time.Time, error) {
	raw, ok := props["coordTimes"]
	parse := parseRFC3339
	if !ok {
		raw, ok = props["times"]
		parse = parseEpochMillis
	}
	if !ok || raw == nil {
		return nil, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("timestamps: expected array, got %T", raw)
	}

	nested := len(list) > 0
	for _, v := range list {
		if _, isList := v.([]any); !isList {
			nested = false
			break
		}
	}
	perLine := [][]any{list}
	if nested {
		perLine = make([][]any, len(list))
		for i, v := range list {
			perLine[i] = v.([]any)
		}
	}

	if len(perLine) != len(lines) {
		return nil, fmt.Errorf("timestamps: %d lists for %d lines", len(perLine), len(lines))
	}
	out := make([][]time.Time, len(lines))
	for i, vals := range perLine {
		if len(vals) != len(lines[i]) {
			return nil, fmt.Errorf("timestamps: line %d has %d values for %d vertices", i, len(vals), len(lines[i]))
		}
		out[i] = make([]time.Time, len(vals))
		for k, v := range vals {
			ts, err := parse(v)
			if err != nil {
				return nil, fmt.Errorf("timestamps: line %d vertex %d: %w", i, k, err)
			}
			out[i][k] = ts
		}
	}
	return out, nil
}

func parseRFC3339(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected string, got %T", v)
	}
	return time.Parse(time.RFC3339, s)
}

func parseEpochMillis(v any) (time.Time, error) {
	ms, ok := v.(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("expected number, got %T", v)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}
