package main

import (
	"context"
	"flag"
	"log"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"trip_viewer/pkg/streets"
	"trip_viewer/pkg/viewer"
)

type backendResult struct {
	dataset *viewer.Dataset
	build   time.Duration
	query   time.Duration
	matches []int64 // selected WayID per query, 0 when none
	hits    []int   // street hit count per query
}

func main() {
	streetsPath := flag.String("streets", "streets.bin", "Path to preprocessed streets binary")
	n := flag.Int("n", 10000, "Number of random query points")
	radius := flag.Float64("radius", 50, "Street selection limit in meters")
	seed := flag.Uint64("seed", 1, "Random seed")
	flag.Parse()

	if *n <= 0 {
		log.Fatal("--n must be positive")
	}

	sts, err := streets.ReadBinary(*streetsPath)
	if err != nil {
		log.Fatalf("Failed to load streets: %v", err)
	}
	if len(sts) == 0 {
		log.Fatal("No streets to compare")
	}

	ext := sts[0].Extent()
	for i := range sts {
		ext = ext.Union(sts[i].Extent())
	}
	rng := rand.New(rand.NewPCG(*seed, *seed))
	points := make([]viewer.LatLng, *n)
	for i := range points {
		points[i] = viewer.LatLng{
			Lat: ext.Min.Y + rng.Float64()*(ext.Max.Y-ext.Min.Y),
			Lng: ext.Min.X + rng.Float64()*(ext.Max.X-ext.Min.X),
		}
	}
	log.Printf("Comparing backends on %d streets, %d query points", len(sts), len(points))

	var bvh, rt backendResult
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		bvh = run(viewer.BackendBVH, sts, points, *radius)
	}()

	go func() {
		defer wg.Done()
		rt = run(viewer.BackendRTree, sts, points, *radius)
	}()

	wg.Wait()

	for _, r := range []struct {
		name string
		res  backendResult
	}{{viewer.BackendBVH, bvh}, {viewer.BackendRTree, rt}} {
		log.Printf("%-5s build %s, %s per query", r.name, r.res.build.Round(time.Millisecond), (r.res.query / time.Duration(len(points))).Round(time.Nanosecond))
	}

	// Nearest ties may legitimately resolve to different streets, so only
	// count mismatches whose distances differ.
	var mismatches int
	for i, p := range points {
		if bvh.matches[i] == rt.matches[i] && bvh.hits[i] == rt.hits[i] {
			continue
		}
		a, errA := bvh.dataset.SelectStreet(context.Background(), p, *radius)
		b, errB := rt.dataset.SelectStreet(context.Background(), p, *radius)
		if (errA == nil) != (errB == nil) || (errA == nil && a.DistanceMeters != b.DistanceMeters) || bvh.hits[i] != rt.hits[i] {
			mismatches++
			if mismatches <= 10 {
				log.Printf("Mismatch at %.6f,%.6f: bvh way %d (%d hits), rtree way %d (%d hits)",
					p.Lat, p.Lng, bvh.matches[i], bvh.hits[i], rt.matches[i], rt.hits[i])
			}
		}
	}
	if mismatches > 0 {
		log.Printf("%d of %d queries differ", mismatches, len(points))
		os.Exit(1)
	}
	log.Println("Backends agree on all queries")
}

func run(backend string, sts []streets.Street, points []viewer.LatLng, radius float64) backendResult {
	cfg := viewer.DefaultConfig()
	cfg.Backend = backend
	cfg.MaxSnapMeters = radius

	start := time.Now()
	d, err := viewer.NewDataset(cfg, sts, nil, nil)
	if err != nil {
		log.Fatalf("Failed to build %s dataset: %v", backend, err)
	}
	res := backendResult{
		dataset: d,
		build:   time.Since(start),
		matches: make([]int64, len(points)),
		hits:    make([]int, len(points)),
	}

	ctx := context.Background()
	start = time.Now()
	for i, p := range points {
		if m, err := d.SelectStreet(ctx, p, radius); err == nil {
			res.matches[i] = m.Street.WayID
		}
		within, _ := d.StreetsWithin(ctx, p, radius)
		res.hits[i] = len(within)
	}
	res.query = time.Since(start)
	return res
}
