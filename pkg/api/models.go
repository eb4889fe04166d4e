package api

// PointRequest is the JSON body for the point query endpoints.
type PointRequest struct {
	Point        LatLngJSON `json:"point"`
	RadiusMeters float64    `json:"radius_meters,omitempty"` // 0 = server default
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StreetResponse is the JSON response for POST /api/v1/streets/select.
type StreetResponse struct {
	WayID          int64      `json:"way_id"`
	FeatureID      string     `json:"feature_id"`
	Name           string     `json:"name,omitempty"`
	Highway        string     `json:"highway"`
	Oneway         bool       `json:"oneway"`
	LengthMeters   float64    `json:"length_meters"`
	DistanceMeters float64    `json:"distance_meters"`
	SegmentIndex   int        `json:"segment_index"`
	Ratio          float64    `json:"ratio"`
	Snapped        LatLngJSON `json:"snapped"`
	Polyline       string     `json:"polyline"` // Google encoded polyline
}

// TrackHitJSON is one trip or video near the query point.
type TrackHitJSON struct {
	ID             string     `json:"id"`
	Name           string     `json:"name,omitempty"`
	Line           int        `json:"line"`
	SegmentIndex   int        `json:"segment_index"`
	Ratio          float64    `json:"ratio"`
	DistanceMeters float64    `json:"distance_meters"`
	Snapped        LatLngJSON `json:"snapped"`
	Time           string     `json:"time,omitempty"` // RFC 3339
	Polylines      []string   `json:"polylines"`
}

// TrackHitsResponse is the JSON response for POST /api/v1/trips/hits.
type TrackHitsResponse struct {
	Hits []TrackHitJSON `json:"hits"`
}

// VideoHitJSON is one video covering the query point.
type VideoHitJSON struct {
	TrackHitJSON
	URL           string   `json:"url,omitempty"`
	TripID        string   `json:"trip_id,omitempty"`
	OffsetSeconds *float64 `json:"offset_seconds,omitempty"`
}

// VideoCoverageResponse is the JSON response for POST /api/v1/videos/coverage.
type VideoCoverageResponse struct {
	Videos []VideoHitJSON `json:"videos"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error          string  `json:"error"`
	Field          string  `json:"field,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Backend        string `json:"backend"`
	Streets        int    `json:"streets"`
	StreetSegments int    `json:"street_segments"`
	Trips          int    `json:"trips"`
	TripSegments   int    `json:"trip_segments"`
	Videos         int    `json:"videos"`
	VideoSegments  int    `json:"video_segments"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
