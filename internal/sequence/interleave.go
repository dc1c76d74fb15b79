package sequence

import (
	"math"
	"math/rand/v2"
)

// minDueWeight keeps an object that is ahead of schedule selectable, just unlikely.
const minDueWeight = 0.05

// Interleave merges the per-object groups into one sequence. At each position
// an object is drawn with weight proportional to its remaining occurrences,
// scaled by how far it lags its even-spread schedule: an object that has
// already used up its due count is rarely picked, one that is behind is
// favored. This spreads every object across the whole timeline.
func Interleave(groups [][]Slot, rng *rand.Rand) []Slot {
	total := 0
	for _, g := range groups {
		total += len(g)
	}

	out := make([]Slot, 0, total)
	placed := make([]int, len(groups))
	weights := make([]float64, len(groups))

	for t := 0; t < total; t++ {
		sum := 0.0
		for gi, g := range groups {
			remaining := len(g) - placed[gi]
			if remaining == 0 {
				weights[gi] = 0
				continue
			}
			due := float64(len(g))*float64(t+1)/float64(total) - float64(placed[gi])
			weights[gi] = float64(remaining) * math.Max(1+due, minDueWeight)
			sum += weights[gi]
		}

		pick := pickWeighted(weights, sum, rng)
		out = append(out, groups[pick][placed[pick]])
		placed[pick]++
	}

	return out
}

func pickWeighted(weights []float64, sum float64, rng *rand.Rand) int {
	r := rng.Float64() * sum
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if r < w {
			return i
		}
		r -= w
	}
	// Rounding can leave r just above the final weight.
	return last
}
