package viewer

import (
	"context"
	"sync/atomic"
)

// Store holds the current dataset. Swap replaces it atomically; queries
// already running keep the dataset they started with.
type Store struct {
	cur atomic.Pointer[Dataset]
}

// NewStore creates a store serving d, which may be nil.
func NewStore(d *Dataset) *Store {
	s := &Store{}
	if d != nil {
		s.cur.Store(d)
	}
	return s
}

// Load returns the current dataset, or nil.
func (s *Store) Load() *Dataset { return s.cur.Load() }

// Swap installs d and returns the previous dataset.
func (s *Store) Swap(d *Dataset) *Dataset { return s.cur.Swap(d) }

// SelectStreet implements Viewer.
func (s *Store) SelectStreet(ctx context.Context, p LatLng, maxMeters float64) (*StreetMatch, error) {
	d := s.cur.Load()
	if d == nil {
		return nil, ErrNoData
	}
	return d.SelectStreet(ctx, p, maxMeters)
}

// HitTracks implements Viewer.
func (s *Store) HitTracks(ctx context.Context, p LatLng, radiusMeters float64) ([]TrackHit, error) {
	d := s.cur.Load()
	if d == nil {
		return nil, ErrNoData
	}
	return d.HitTracks(ctx, p, radiusMeters)
}

// VideoCoverage implements Viewer.
func (s *Store) VideoCoverage(ctx context.Context, p LatLng, radiusMeters float64) ([]VideoHit, error) {
	d := s.cur.Load()
	if d == nil {
		return nil, ErrNoData
	}
	return d.VideoCoverage(ctx, p, radiusMeters)
}

// Stats implements Viewer.
func (s *Store) Stats() Stats {
	d := s.cur.Load()
	if d == nil {
		return Stats{}
	}
	return d.Stats()
}

var (
	_ Viewer = (*Dataset)(nil)
	_ Viewer = (*Store)(nil)
)
