package flashcard

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

type fuzzRange struct {
	start, end float64
	factor     float64
}

var fuzzRanges = []fuzzRange{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.10},
	{20.0, math.Inf(1), 0.05},
}

func fuzzDelta(interval float64) float64 {
	delta := 1.0
	for _, r := range fuzzRanges {
		delta += r.factor * math.Max(math.Min(interval, r.end)-r.start, 0)
	}
	return delta
}

// fuzzSeed derives the random source from the review itself so that the
// same (state, grade, now) always lands on the same day.
func fuzzSeed(now time.Time, reps int, difficulty, stability float64) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d_%d_%.6f", now.UnixMilli(), reps, difficulty*stability)
	return int64(h.Sum64())
}

// applyFuzz spreads intervals of 2.5 days or more over a small window
// around interval. Shorter intervals are returned unchanged.
func applyFuzz(interval, maxIvl int, seed int64) int {
	if float64(interval) < 2.5 {
		return interval
	}
	ivl := float64(interval)
	delta := fuzzDelta(ivl)

	lo := max(2, int(math.Round(ivl-delta)))
	hi := min(int(math.Round(ivl+delta)), maxIvl)
	lo = min(lo, hi)

	rng := rand.New(rand.NewSource(seed))
	fuzzed := int(rng.Float64()*float64(hi-lo+1)) + lo
	return min(fuzzed, hi)
}
