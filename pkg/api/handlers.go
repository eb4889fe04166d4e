package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"time"

	"github.com/twpayne/go-polyline"

	"trip_viewer/pkg/feature"
	"trip_viewer/pkg/geo"
	"trip_viewer/pkg/viewer"
)

// maxRadiusMeters caps client-supplied radii.
const maxRadiusMeters = 5000.0

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	viewer viewer.Viewer
}

// NewHandlers creates handlers backed by v.
func NewHandlers(v viewer.Viewer) *Handlers {
	return &Handlers{viewer: v}
}

// HandleSelectStreet handles POST /api/v1/streets/select.
func (h *Handlers) HandleSelectStreet(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePointRequest(w, r)
	if !ok {
		return
	}

	m, err := h.viewer.SelectStreet(r.Context(), toLatLng(req.Point), req.RadiusMeters)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	s := m.Street
	writeJSON(w, StreetResponse{
		WayID:          s.WayID,
		FeatureID:      s.FeatureID(),
		Name:           s.Name,
		Highway:        s.Highway,
		Oneway:         s.Oneway,
		LengthMeters:   s.LengthMeters(),
		DistanceMeters: m.DistanceMeters,
		SegmentIndex:   m.SegmentIndex,
		Ratio:          m.Ratio,
		Snapped:        fromLatLng(m.Snapped),
		Polyline:       encodePoints(s.Points),
	})
}

// HandleTripHits handles POST /api/v1/trips/hits.
func (h *Handlers) HandleTripHits(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePointRequest(w, r)
	if !ok {
		return
	}

	hits, err := h.viewer.HitTracks(r.Context(), toLatLng(req.Point), req.RadiusMeters)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	resp := TrackHitsResponse{Hits: make([]TrackHitJSON, len(hits))}
	for i, hit := range hits {
		resp.Hits[i] = trackHitJSON(hit)
	}
	writeJSON(w, resp)
}

// HandleVideoCoverage handles POST /api/v1/videos/coverage.
func (h *Handlers) HandleVideoCoverage(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePointRequest(w, r)
	if !ok {
		return
	}

	hits, err := h.viewer.VideoCoverage(r.Context(), toLatLng(req.Point), req.RadiusMeters)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	resp := VideoCoverageResponse{Videos: make([]VideoHitJSON, len(hits))}
	for i, hit := range hits {
		v := VideoHitJSON{
			TrackHitJSON: trackHitJSON(hit.TrackHit),
			URL:          hit.Track.URL,
			TripID:       hit.Track.TripID,
		}
		if hit.HasOffset {
			secs := hit.Offset.Seconds()
			v.OffsetSeconds = &secs
		}
		resp.Videos[i] = v
	}
	writeJSON(w, resp)
}

// HandleTripHitsKML handles POST /api/v1/trips/hits.kml.
func (h *Handlers) HandleTripHitsKML(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePointRequest(w, r)
	if !ok {
		return
	}

	hits, err := h.viewer.HitTracks(r.Context(), toLatLng(req.Point), req.RadiusMeters)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	writeHitsKML(w, hits)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	s := h.viewer.Stats()
	writeJSON(w, StatsResponse{
		Backend:        s.Backend,
		Streets:        s.Streets,
		StreetSegments: s.StreetSegments,
		Trips:          s.Trips,
		TripSegments:   s.TripSegments,
		Videos:         s.Videos,
		VideoSegments:  s.VideoSegments,
	})
}

// decodePointRequest parses and validates a point query body, writing the
// error response itself when it fails.
func decodePointRequest(w http.ResponseWriter, r *http.Request) (PointRequest, bool) {
	var req PointRequest

	// Enforce Content-Type.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return req, false
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return req, false
	}

	if err := validateCoord(req.Point); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "point")
		return req, false
	}
	if math.IsNaN(req.RadiusMeters) || req.RadiusMeters < 0 || req.RadiusMeters > maxRadiusMeters {
		writeError(w, http.StatusBadRequest, "invalid_radius", "radius_meters")
		return req, false
	}
	return req, true
}

func writeQueryError(w http.ResponseWriter, err error) {
	var tooFar *viewer.TooFarError
	switch {
	case errors.As(err, &tooFar):
		writeJSONStatus(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:          "point_too_far_from_street",
			DistanceMeters: tooFar.DistanceMeters,
		})
	case errors.Is(err, viewer.ErrPointTooFar):
		writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_street", "")
	case errors.Is(err, viewer.ErrNoData):
		writeError(w, http.StatusServiceUnavailable, "no_data", "")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func trackHitJSON(hit viewer.TrackHit) TrackHitJSON {
	out := TrackHitJSON{
		ID:             hit.Track.ID,
		Name:           hit.Track.Name,
		Line:           hit.Line,
		SegmentIndex:   hit.SegmentIndex,
		Ratio:          hit.Ratio,
		DistanceMeters: hit.DistanceMeters,
		Snapped:        fromLatLng(hit.Snapped),
		Polylines:      make([]string, len(hit.Track.Lines)),
	}
	if !hit.Time.IsZero() {
		out.Time = hit.Time.UTC().Format(time.RFC3339)
	}
	for i, line := range hit.Track.Lines {
		out.Polylines[i] = encodeTimedPoints(line)
	}
	return out
}

// encodePoints encodes lon/lat points as a Google polyline.
func encodePoints(pts []geo.Point) string {
	coords := make([][]float64, len(pts))
	for i, p := range pts {
		coords[i] = []float64{p.Y, p.X}
	}
	return string(polyline.EncodeCoords(coords))
}

func encodeTimedPoints(pts []feature.TimedPoint) string {
	coords := make([][]float64, len(pts))
	for i, p := range pts {
		coords[i] = []float64{p.Y, p.X}
	}
	return string(polyline.EncodeCoords(coords))
}

func toLatLng(ll LatLngJSON) viewer.LatLng {
	return viewer.LatLng{Lat: ll.Lat, Lng: ll.Lng}
}

func fromLatLng(ll viewer.LatLng) LatLngJSON {
	return LatLngJSON{Lat: ll.Lat, Lng: ll.Lng}
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSONStatus(w, status, ErrorResponse{Error: code, Field: field})
}
