package sequence

import "math/rand/v2"

// seedStream separates the two PCG state words derived from one seed.
const seedStream = 0x9e3779b97f4a7c15

// NewRand returns a generator fully determined by seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^seedStream))
}
