package segindex

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip_viewer/pkg/geo"
)

const distTolerance = 1e-9

// bruteNearest scans every segment.
func bruteNearest(m geo.Metric, segs []Segment[int], p geo.Point) float64 {
	best := math.Inf(1)
	for _, s := range segs {
		d, _ := geo.PointSegmentDistance(m, p, s.P0, s.P1)
		best = math.Min(best, d)
	}
	return best
}

// bruteWithin returns the payloads of all segments strictly within r.
func bruteWithin(m geo.Metric, segs []Segment[int], p geo.Point, r float64) []int {
	var out []int
	for _, s := range segs {
		if d, _ := geo.PointSegmentDistance(m, p, s.P0, s.P1); d < r {
			out = append(out, s.Payload)
		}
	}
	sort.Ints(out)
	return out
}

func payloads(results []Result[int]) []int {
	var out []int
	for _, r := range results {
		out = append(out, r.Leaf.Payload)
	}
	sort.Ints(out)
	return out
}

// backends builds every index implementation over the same segments.
func backends(segs []Segment[int], opts ...Options) map[string]Index[int] {
	return map[string]Index[int]{
		"bvh":   Build(segs, opts...),
		"rtree": BuildRTree(segs, opts...),
	}
}

func TestTwoStreetScenario(t *testing.T) {
	segs := []Segment[int]{
		{P0: geo.Point{X: 0, Y: 0}, P1: geo.Point{X: 10, Y: 0}, Payload: 'A'},
		{P0: geo.Point{X: 0, Y: 5}, P1: geo.Point{X: 10, Y: 5}, Payload: 'B'},
	}

	for name, idx := range backends(segs) {
		t.Run(name+"/nearest squared", func(t *testing.T) {
			res, ok := idx.Nearest(geo.Point{X: 5, Y: 1})
			require.True(t, ok)
			assert.Equal(t, 'A', rune(res.Leaf.Payload))
			assert.Equal(t, 1.0, res.Distance)
		})
	}

	for name, idx := range backends(segs, Options{Metric: geo.Euclidean}) {
		t.Run(name+"/within linear", func(t *testing.T) {
			p := geo.Point{X: 5, Y: 2}
			assert.Equal(t, []int{'A'}, payloads(idx.Within(p, 3)), "B at exactly 3 is excluded")
			assert.Equal(t, []int{'A', 'B'}, payloads(idx.Within(p, 3.5)))
		})
	}
}

func TestNearestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for _, n := range []int{1, 2, 3, 17, 250, 2000} {
		segs := randomSegments(rng, n)
		for _, metric := range []geo.Metric{geo.SquaredEuclidean, geo.Euclidean} {
			for name, idx := range backends(segs, Options{Metric: metric}) {
				for q := 0; q < 200; q++ {
					p := geo.Point{X: rng.Float64()*1200 - 100, Y: rng.Float64()*1200 - 100}
					want := bruteNearest(metric, segs, p)

					res, ok := idx.Nearest(p)
					require.True(t, ok, "%s n=%d", name, n)
					require.InDelta(t, want, res.Distance, distTolerance, "%s n=%d p=%v", name, n, p)

					exact := res.Leaf.distance(metric, p)
					require.InDelta(t, want, exact, distTolerance, "returned leaf must realise the minimum")
				}
			}
		}
	}
}

func TestWithinMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	segs := randomSegments(rng, 1500)

	radii := []float64{0, 1, 25, 400, 2500, 40_000, math.Inf(1)}
	for name, idx := range backends(segs) {
		for q := 0; q < 60; q++ {
			p := geo.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}
			for _, r := range radii {
				got := idx.Within(p, r)
				assert.Equal(t, bruteWithin(geo.SquaredEuclidean, segs, p, r), payloads(got), "%s r=%v", name, r)
				for _, res := range got {
					assert.Less(t, res.Distance, r)
				}
			}
		}

		p := geo.Point{X: 500, Y: 500}
		assert.Empty(t, idx.Within(p, 0), "%s: r=0 matches nothing", name)
		assert.Empty(t, idx.Within(p, -5), "%s: negative radius matches nothing", name)
		assert.Len(t, idx.Within(p, math.Inf(1)), len(segs), "%s: r=+Inf matches everything", name)
	}
}

func TestQueriesOnEmptyIndex(t *testing.T) {
	for name, idx := range backends(nil) {
		t.Run(name, func(t *testing.T) {
			_, ok := idx.Nearest(geo.Point{X: 1, Y: 1})
			assert.False(t, ok)
			assert.Empty(t, idx.Within(geo.Point{X: 1, Y: 1}, math.Inf(1)))
			assert.Zero(t, idx.Len())
		})
	}
}

func TestDegenerateSegment(t *testing.T) {
	segs := []Segment[int]{
		{P0: geo.Point{X: 2, Y: 2}, P1: geo.Point{X: 2, Y: 2}, Payload: 1},
		{P0: geo.Point{X: 20, Y: 0}, P1: geo.Point{X: 30, Y: 0}, Payload: 2},
	}

	for name, idx := range backends(segs) {
		t.Run(name, func(t *testing.T) {
			res, ok := idx.Nearest(geo.Point{X: 5, Y: 6})
			require.True(t, ok)
			assert.Equal(t, 1, res.Leaf.Payload)
			assert.Equal(t, 25.0, res.Distance)

			assert.Equal(t, []int{1}, payloads(idx.Within(geo.Point{X: 2, Y: 3}, 2)))
		})
	}
}

func TestNearestIsDeterministic(t *testing.T) {
	// Four identical segments tie for every query.
	segs := make([]Segment[int], 4)
	for i := range segs {
		segs[i] = Segment[int]{P0: geo.Point{X: 0, Y: 0}, P1: geo.Point{X: 1, Y: 0}, Payload: i}
	}

	for name, idx := range backends(segs) {
		first, ok := idx.Nearest(geo.Point{X: 0.5, Y: 1})
		require.True(t, ok)
		for i := 0; i < 20; i++ {
			res, _ := idx.Nearest(geo.Point{X: 0.5, Y: 1})
			assert.Same(t, first.Leaf, res.Leaf, name)
		}
	}
}

func TestNaNQueryDoesNotPanic(t *testing.T) {
	segs := randomSegments(rand.New(rand.NewSource(5)), 50)
	nan := geo.Point{X: math.NaN(), Y: 3}

	for _, idx := range backends(segs) {
		assert.NotPanics(t, func() {
			idx.Nearest(nan)
			idx.Within(nan, 100)
			idx.Within(geo.Point{X: 1, Y: 1}, math.NaN())
		})
	}
}

func TestNearestNaNReportsNoResult(t *testing.T) {
	segs := randomSegments(rand.New(rand.NewSource(6)), 50)

	for name, idx := range backends(segs) {
		for _, p := range []geo.Point{{X: math.NaN(), Y: 3}, {X: 3, Y: math.NaN()}} {
			r, ok := idx.Nearest(p)
			assert.False(t, ok, "%s: Nearest(%v)", name, p)
			assert.Nil(t, r.Leaf, name)
		}
	}
}

func TestConcurrentQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	segs := randomSegments(rng, 3000)

	queries := make([]geo.Point, 64)
	want := make([]float64, len(queries))
	for i := range queries {
		queries[i] = geo.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}
		want[i] = bruteNearest(geo.SquaredEuclidean, segs, queries[i])
	}

	for name, idx := range backends(segs) {
		var wg sync.WaitGroup
		errs := make(chan string, len(queries))
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i, p := range queries {
					res, ok := idx.Nearest(p)
					if !ok || math.Abs(res.Distance-want[i]) > distTolerance {
						errs <- name
						return
					}
					idx.Within(p, 900)
				}
			}()
		}
		wg.Wait()
		close(errs)
		for e := range errs {
			t.Errorf("%s: concurrent query returned a wrong result", e)
		}
	}
}

func BenchmarkNearest(b *testing.B) {
	rng := rand.New(rand.NewSource(4))
	segs := randomSegments(rng, 100_000)
	tree := Build(segs)
	p := geo.Point{X: 500, Y: 500}

	for b.Loop() {
		tree.Nearest(p)
	}
}

func BenchmarkNearestRTree(b *testing.B) {
	rng := rand.New(rand.NewSource(4))
	segs := randomSegments(rng, 100_000)
	tree := BuildRTree(segs)
	p := geo.Point{X: 500, Y: 500}

	for b.Loop() {
		tree.Nearest(p)
	}
}

func BenchmarkWithin(b *testing.B) {
	rng := rand.New(rand.NewSource(4))
	segs := randomSegments(rng, 100_000)
	tree := Build(segs)
	p := geo.Point{X: 500, Y: 500}

	for b.Loop() {
		tree.Within(p, 2500)
	}
}
