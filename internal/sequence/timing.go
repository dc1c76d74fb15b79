package sequence

import (
	"math/rand/v2"
	"time"

	"github.com/Veraticus/p300-cit/internal/model"
)

// uniformDuration draws uniformly from [lo, hi] at nanosecond resolution.
func uniformDuration(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int64N(int64(hi-lo)+1))
}

// AssignTiming draws ISI and ITI independently for every trial.
func AssignTiming(trials []model.Trial, isiLo, isiHi, itiLo, itiHi time.Duration, rng *rand.Rand) {
	for i := range trials {
		trials[i].ISIDuration = uniformDuration(rng, isiLo, isiHi)
		trials[i].ITIDuration = uniformDuration(rng, itiLo, itiHi)
	}
}

// Partition numbers trials and slices them into contiguous blocks. Block
// boundaries are positional only.
func Partition(trials []model.Trial, blockSize int) {
	for i := range trials {
		trials[i].TrialIndex = i + 1
		trials[i].BlockIndex = i/blockSize + 1
	}
}

// NumBlocks is the number of blocks total trials occupy.
func NumBlocks(total, blockSize int) int {
	return (total + blockSize - 1) / blockSize
}
