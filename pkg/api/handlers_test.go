package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trip_viewer/pkg/feature"
	"trip_viewer/pkg/geo"
	"trip_viewer/pkg/streets"
	"trip_viewer/pkg/viewer"
)

// mockViewer implements viewer.Viewer for testing.
type mockViewer struct {
	match  *viewer.StreetMatch
	hits   []viewer.TrackHit
	videos []viewer.VideoHit
	stats  viewer.Stats
	err    error

	gotRadius float64
}

func (m *mockViewer) SelectStreet(ctx context.Context, p viewer.LatLng, maxMeters float64) (*viewer.StreetMatch, error) {
	m.gotRadius = maxMeters
	return m.match, m.err
}

func (m *mockViewer) HitTracks(ctx context.Context, p viewer.LatLng, radiusMeters float64) ([]viewer.TrackHit, error) {
	m.gotRadius = radiusMeters
	return m.hits, m.err
}

func (m *mockViewer) VideoCoverage(ctx context.Context, p viewer.LatLng, radiusMeters float64) ([]viewer.VideoHit, error) {
	m.gotRadius = radiusMeters
	return m.videos, m.err
}

func (m *mockViewer) Stats() viewer.Stats { return m.stats }

var testTrip = &feature.Track{
	ID:   "t1",
	Name: "Morning ride",
	Lines: [][]feature.TimedPoint{{
		{Point: geo.Point{X: 103.8, Y: 1.3}},
		{Point: geo.Point{X: 103.85, Y: 1.35}},
	}},
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleSelectStreet_Success(t *testing.T) {
	mock := &mockViewer{
		match: &viewer.StreetMatch{
			Street: &streets.Street{
				WayID:   42,
				Name:    "Main Street",
				Highway: "residential",
				Points:  []geo.Point{{X: 103.8, Y: 1.3}, {X: 103.85, Y: 1.35}},
			},
			SegmentIndex:   0,
			Ratio:          0.5,
			DistanceMeters: 12.5,
			Snapped:        viewer.LatLng{Lat: 1.325, Lng: 103.825},
		},
	}
	h := NewHandlers(mock)

	w := httptest.NewRecorder()
	h.HandleSelectStreet(w, postJSON("/api/v1/streets/select", `{"point":{"lat":1.3,"lng":103.8},"radius_meters":50}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}
	if mock.gotRadius != 50 {
		t.Errorf("radius = %f, want 50", mock.gotRadius)
	}

	var resp StreetResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.WayID != 42 || resp.FeatureID != "way/42" || resp.Name != "Main Street" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.DistanceMeters != 12.5 || resp.Ratio != 0.5 {
		t.Errorf("DistanceMeters = %f, Ratio = %f", resp.DistanceMeters, resp.Ratio)
	}
	// lat 1.3 lng 103.8 -> lat 1.35 lng 103.85
	if resp.Polyline != "_||F_mpxRowHowH" {
		t.Errorf("Polyline = %q", resp.Polyline)
	}
}

func TestHandleSelectStreet_InvalidJSON(t *testing.T) {
	h := NewHandlers(&mockViewer{})

	w := httptest.NewRecorder()
	h.HandleSelectStreet(w, postJSON("/api/v1/streets/select", "not json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSelectStreet_MissingContentType(t *testing.T) {
	h := NewHandlers(&mockViewer{})

	req := httptest.NewRequest("POST", "/api/v1/streets/select", strings.NewReader(`{"point":{"lat":1.3,"lng":103.8}}`))
	w := httptest.NewRecorder()
	h.HandleSelectStreet(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSelectStreet_BadInput(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"lat out of range", `{"point":{"lat":91.0,"lng":103.8}}`, "point"},
		{"lng out of range", `{"point":{"lat":1.3,"lng":-181}}`, "point"},
		{"negative radius", `{"point":{"lat":1.3,"lng":103.8},"radius_meters":-1}`, "radius_meters"},
		{"radius too large", `{"point":{"lat":1.3,"lng":103.8},"radius_meters":100000}`, "radius_meters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&mockViewer{})
			w := httptest.NewRecorder()
			h.HandleSelectStreet(w, postJSON("/api/v1/streets/select", tt.body))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			var resp ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Field != tt.field {
				t.Errorf("field = %q, want %q", resp.Field, tt.field)
			}
		})
	}
}

func TestHandleSelectStreet_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"too far", &viewer.TooFarError{DistanceMeters: 812, LimitMeters: 500}, http.StatusUnprocessableEntity, "point_too_far_from_street"},
		{"too far sentinel", viewer.ErrPointTooFar, http.StatusUnprocessableEntity, "point_too_far_from_street"},
		{"no data", viewer.ErrNoData, http.StatusServiceUnavailable, "no_data"},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable, "request_timeout"},
		{"other", errTest, http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&mockViewer{err: tt.err})
			w := httptest.NewRecorder()
			h.HandleSelectStreet(w, postJSON("/api/v1/streets/select", `{"point":{"lat":1.3,"lng":103.8}}`))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error != tt.code {
				t.Errorf("error = %q, want %q", resp.Error, tt.code)
			}
		})
	}

	// Distance is reported for TooFarError.
	h := NewHandlers(&mockViewer{err: &viewer.TooFarError{DistanceMeters: 812, LimitMeters: 500}})
	w := httptest.NewRecorder()
	h.HandleSelectStreet(w, postJSON("/api/v1/streets/select", `{"point":{"lat":1.3,"lng":103.8}}`))
	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.DistanceMeters != 812 {
		t.Errorf("DistanceMeters = %f, want 812", resp.DistanceMeters)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("boom")

func TestHandleTripHits(t *testing.T) {
	when := time.Date(2024, 5, 1, 8, 0, 50, 0, time.UTC)
	mock := &mockViewer{hits: []viewer.TrackHit{
		{Track: testTrip, Ratio: 0.25, DistanceMeters: 11, Time: when},
	}}
	h := NewHandlers(mock)

	w := httptest.NewRecorder()
	h.HandleTripHits(w, postJSON("/api/v1/trips/hits", `{"point":{"lat":1.3,"lng":103.8}}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}
	if mock.gotRadius != 0 {
		t.Errorf("radius = %f, want 0 (server default)", mock.gotRadius)
	}

	var resp TrackHitsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Hits) != 1 {
		t.Fatalf("Hits length = %d, want 1", len(resp.Hits))
	}
	hit := resp.Hits[0]
	if hit.ID != "t1" || hit.Name != "Morning ride" || hit.Ratio != 0.25 {
		t.Errorf("hit = %+v", hit)
	}
	if hit.Time != "2024-05-01T08:00:50Z" {
		t.Errorf("Time = %q", hit.Time)
	}
	if len(hit.Polylines) != 1 || hit.Polylines[0] != "_||F_mpxRowHowH" {
		t.Errorf("Polylines = %v", hit.Polylines)
	}
}

func TestHandleTripHits_EmptyIsArray(t *testing.T) {
	h := NewHandlers(&mockViewer{})

	w := httptest.NewRecorder()
	h.HandleTripHits(w, postJSON("/api/v1/trips/hits", `{"point":{"lat":1.3,"lng":103.8}}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"hits":[]}` {
		t.Errorf("body = %s, want {\"hits\":[]}", got)
	}
}

func TestHandleVideoCoverage(t *testing.T) {
	video := &feature.Track{ID: "v1", Kind: feature.KindVideo, URL: "https://example.com/v.mp4", TripID: "t1", Lines: testTrip.Lines}
	mock := &mockViewer{videos: []viewer.VideoHit{
		{TrackHit: viewer.TrackHit{Track: video}, Offset: 50 * time.Second, HasOffset: true},
		{TrackHit: viewer.TrackHit{Track: &feature.Track{ID: "v2"}}},
	}}
	h := NewHandlers(mock)

	w := httptest.NewRecorder()
	h.HandleVideoCoverage(w, postJSON("/api/v1/videos/coverage", `{"point":{"lat":1.3,"lng":103.8},"radius_meters":30}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}

	var resp VideoCoverageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Videos) != 2 {
		t.Fatalf("Videos length = %d, want 2", len(resp.Videos))
	}
	v := resp.Videos[0]
	if v.ID != "v1" || v.URL != "https://example.com/v.mp4" || v.TripID != "t1" {
		t.Errorf("video = %+v", v)
	}
	if v.OffsetSeconds == nil || *v.OffsetSeconds != 50 {
		t.Errorf("OffsetSeconds = %v, want 50", v.OffsetSeconds)
	}
	if resp.Videos[1].OffsetSeconds != nil {
		t.Errorf("untimed video should have no offset, got %v", *resp.Videos[1].OffsetSeconds)
	}
}

func TestHandleTripHitsKML(t *testing.T) {
	mock := &mockViewer{hits: []viewer.TrackHit{{Track: testTrip}}}
	h := NewHandlers(mock)

	w := httptest.NewRecorder()
	h.HandleTripHitsKML(w, postJSON("/api/v1/trips/hits.kml", `{"point":{"lat":1.3,"lng":103.8}}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.google-earth.kml+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"<Placemark>", "<name>t1</name>", "<LineString>", "103.8,1.3"} {
		if !strings.Contains(body, want) {
			t.Errorf("KML missing %q:\n%s", want, body)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	h := NewHandlers(&mockViewer{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want 'ok'", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	mock := &mockViewer{stats: viewer.Stats{Backend: "bvh", Streets: 500000, StreetSegments: 2000000, Trips: 12}}
	h := NewHandlers(mock)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()

	h.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp StatsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Streets != 500000 || resp.StreetSegments != 2000000 || resp.Trips != 12 || resp.Backend != "bvh" {
		t.Errorf("resp = %+v", resp)
	}
}
