package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trip_viewer/pkg/api"
	"trip_viewer/pkg/feature"
	"trip_viewer/pkg/streets"
	"trip_viewer/pkg/viewer"
)

// sources names the files a dataset is loaded from.
type sources struct {
	streets string
	trips   string
	videos  string
}

func main() {
	_ = godotenv.Load(".env")

	def := viewer.DefaultConfig()
	streetsPath := flag.String("streets", envString("TRIP_VIEWER_STREETS", "streets.bin"), "Path to preprocessed streets binary")
	tripsPath := flag.String("trips", envString("TRIP_VIEWER_TRIPS", ""), "Path to trips GeoJSON (optional)")
	videosPath := flag.String("videos", envString("TRIP_VIEWER_VIDEOS", ""), "Path to videos GeoJSON (optional)")
	backend := flag.String("index", envString("TRIP_VIEWER_INDEX", def.Backend), "Spatial index backend: bvh or rtree")
	snap := flag.Float64("max-snap", envFloat("TRIP_VIEWER_MAX_SNAP_METERS", def.MaxSnapMeters), "Default street selection limit in meters")
	hit := flag.Float64("hit-radius", envFloat("TRIP_VIEWER_HIT_RADIUS_METERS", def.HitRadiusMeters), "Default trip/video hit radius in meters")
	port := flag.Int("port", int(envFloat("TRIP_VIEWER_PORT", 8080)), "HTTP port")
	corsOrigin := flag.String("cors-origin", envString("TRIP_VIEWER_CORS_ORIGIN", ""), "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	cfg := viewer.Config{Backend: *backend, MaxSnapMeters: *snap, HitRadiusMeters: *hit}
	src := sources{streets: *streetsPath, trips: *tripsPath, videos: *videosPath}

	d, err := load(cfg, src)
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}
	store := viewer.NewStore(d)

	// Reload data on SIGHUP. Queries in flight finish on the old dataset.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			log.Println("Received SIGHUP, reloading data...")
			d, err := load(cfg, src)
			if err != nil {
				log.Printf("Reload failed, keeping current data: %v", err)
				continue
			}
			store.Swap(d)
		}
	}()

	// Setup HTTP server.
	addr := fmt.Sprintf(":%d", *port)
	srvCfg := api.DefaultConfig(addr)
	srvCfg.CORSOrigin = *corsOrigin

	handlers := api.NewHandlers(store)
	srv := api.NewServer(srvCfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}

// load reads all sources and builds a dataset.
func load(cfg viewer.Config, src sources) (*viewer.Dataset, error) {
	start := time.Now()

	log.Printf("Loading streets from %s...", src.streets)
	sts, err := streets.ReadBinary(src.streets)
	if err != nil {
		return nil, fmt.Errorf("streets: %w", err)
	}

	var trips, videos []feature.Track
	if src.trips != "" {
		if trips, err = feature.LoadTracksFile(src.trips, feature.KindTrip); err != nil {
			return nil, fmt.Errorf("trips: %w", err)
		}
	}
	if src.videos != "" {
		if videos, err = feature.LoadTracksFile(src.videos, feature.KindVideo); err != nil {
			return nil, fmt.Errorf("videos: %w", err)
		}
	}

	log.Printf("Building %s spatial indexes...", cfg.Backend)
	d, err := viewer.NewDataset(cfg, sts, trips, videos)
	if err != nil {
		return nil, err
	}

	s := d.Stats()
	log.Printf("Loaded: %d streets (%d segments), %d trips (%d segments), %d videos (%d segments)",
		s.Streets, s.StreetSegments, s.Trips, s.TripSegments, s.Videos, s.VideoSegments)
	log.Printf("Ready in %s", time.Since(start).Round(time.Millisecond))
	return d, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Ignoring %s=%q: %v", key, v, err)
		return def
	}
	return f
}
