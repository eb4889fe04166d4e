package api

import (
	"io"
	"log"
	"time"

	"github.com/twpayne/go-kml"

	"trip_viewer/pkg/viewer"
)

// writeHitsKML writes one placemark per hit track, each line as a
// LineString, for download into desktop GIS tools.
func writeHitsKML(w io.Writer, hits []viewer.TrackHit) {
	doc := kml.Document(kml.Name("Trip hits"))
	for _, hit := range hits {
		pm := kml.Placemark(kml.Name(hit.Track.ID))
		if hit.Track.Name != "" {
			pm.Add(kml.Description(hit.Track.Name))
		}
		if !hit.Time.IsZero() {
			pm.Add(kml.TimeStamp(kml.When(hit.Time.UTC().Truncate(time.Second))))
		}

		geom := kml.MultiGeometry()
		for _, line := range hit.Track.Lines {
			coords := make([]kml.Coordinate, len(line))
			for i, p := range line {
				coords[i] = kml.Coordinate{Lon: p.X, Lat: p.Y}
			}
			geom.Add(kml.LineString(kml.Coordinates(coords...)))
		}
		pm.Add(geom)
		doc.Add(pm)
	}

	if err := kml.KML(doc).WriteIndent(w, "", "  "); err != nil {
		log.Printf("write KML: %v", err)
	}
}
