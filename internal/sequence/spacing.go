package sequence

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/Veraticus/p300-cit/internal/common"
)

// Spacing enforces a minimum positional distance between equal keys. Two
// positions i < j holding the same key violate the constraint when j-i < Gap.
// Negative keys are unconstrained. A Gap of 0 or 1 disables the check.
type Spacing struct {
	// Label names a key in error messages.
	Label func(key int) string
	// Rand breaks ties when the sequence has to be rebuilt. Nil picks the
	// lowest key.
	Rand   *rand.Rand
	Name   string
	Gap    int
	Budget int
}

// Violations returns every position that repeats a key seen fewer than Gap
// positions earlier.
func (s Spacing) Violations(keys []int) []int {
	var out []int
	for i := range keys {
		if s.conflictsBefore(keys, i) {
			out = append(out, i)
		}
	}
	return out
}

// Repair swaps offending positions with partners that leave both positions
// conflict-free, preferring later positions. When a pass can no longer move
// any offender, the keys are rebuilt position by position and permuted into
// the new order, with those swaps counted against the budget. swap mirrors
// each exchange onto the caller's parallel data and may be nil. Repair
// returns the number of swaps made, or a ConstraintUnsatisfiableError when
// the counts cannot fit or the budget runs out.
func (s Spacing) Repair(keys []int, swap func(i, j int)) (int, error) {
	if s.Gap <= 1 {
		return 0, nil
	}
	if err := s.feasible(keys); err != nil {
		return 0, err
	}

	swaps := 0
	for {
		clean := true
		progressed := false
		stuck := -1

		for i := range keys {
			if !s.conflictsBefore(keys, i) {
				continue
			}
			clean = false
			if swaps >= s.Budget {
				return swaps, &common.ConstraintUnsatisfiableError{
					Constraint: s.Name,
					Detail:     fmt.Sprintf("repair budget of %d swaps exhausted", s.Budget),
					Attempts:   swaps,
				}
			}

			j := s.partner(keys, i)
			if j < 0 {
				stuck = i
				continue
			}
			keys[i], keys[j] = keys[j], keys[i]
			if swap != nil {
				swap(i, j)
			}
			swaps++
			progressed = true
		}

		if clean {
			return swaps, nil
		}
		if progressed {
			continue
		}

		target, ok := s.rebuild(keys)
		if !ok {
			return swaps, &common.ConstraintUnsatisfiableError{
				Constraint: s.Name,
				Detail:     fmt.Sprintf("no arrangement keeps equal keys %d apart (stuck at position %d)", s.Gap, stuck),
				Attempts:   swaps,
			}
		}
		return s.apply(keys, target, swaps, swap)
	}
}

// rebuildAttempts bounds the randomized orderings tried before falling back
// to the most-remaining-first ordering.
const rebuildAttempts = 20

// rebuild returns a conflict-free ordering of keys, first drawing positions
// at random in proportion to the occurrences left and then, if every draw
// dead-ends, placing the admissible key with the most occurrences left.
func (s Spacing) rebuild(keys []int) ([]int, bool) {
	if s.Rand != nil {
		for range rebuildAttempts {
			if out, ok := s.arrange(keys, true); ok {
				return out, true
			}
		}
	}
	return s.arrange(keys, false)
}

// arrange fills positions one at a time from the admissible keys. Negative
// keys form a pool that is always admissible and counts as one occurrence
// each. With weighted set, a key is drawn in proportion to its remaining
// occurrences; otherwise the key with the most remaining wins and ties are
// broken by Rand.
func (s Spacing) arrange(keys []int, weighted bool) ([]int, bool) {
	remaining := make(map[int]int)
	var free []int
	for _, k := range keys {
		if k < 0 {
			free = append(free, k)
			continue
		}
		remaining[k]++
	}
	distinct := make([]int, 0, len(remaining))
	last := make(map[int]int, len(remaining))
	for k := range remaining {
		distinct = append(distinct, k)
		last[k] = -s.Gap
	}
	sort.Ints(distinct)

	out := make([]int, 0, len(keys))
	for p := range keys {
		var pick int
		if weighted {
			pick = s.draw(distinct, remaining, last, p, len(free))
		} else {
			pick = s.most(distinct, remaining, last, p, len(free))
		}

		switch {
		case pick == pickFree:
			out = append(out, free[0])
			free = free[1:]
		case pick >= 0:
			out = append(out, pick)
			remaining[pick]--
			last[pick] = p
		default:
			return nil, false
		}
	}
	return out, true
}

const (
	pickNone = -1
	pickFree = -2
)

func (s Spacing) admissible(k int, remaining, last map[int]int, p int) bool {
	return remaining[k] > 0 && p-last[k] >= s.Gap
}

// most picks the admissible key with the most occurrences left. Unconstrained
// keys win when no constrained key has more than one occurrence left.
func (s Spacing) most(distinct []int, remaining, last map[int]int, p, free int) int {
	best, top, ties := pickNone, 0, 0
	for _, k := range distinct {
		if !s.admissible(k, remaining, last, p) {
			continue
		}
		switch n := remaining[k]; {
		case n > top:
			best, top, ties = k, n, 1
		case n == top:
			ties++
			if s.Rand != nil && s.Rand.IntN(ties) == 0 {
				best = k
			}
		}
	}
	if free > 0 && top <= 1 {
		return pickFree
	}
	return best
}

// draw picks an admissible key, or the unconstrained pool, in proportion to
// the occurrences left.
func (s Spacing) draw(distinct []int, remaining, last map[int]int, p, free int) int {
	total := free
	for _, k := range distinct {
		if s.admissible(k, remaining, last, p) {
			total += remaining[k]
		}
	}
	if total == 0 {
		return pickNone
	}

	r := s.Rand.IntN(total)
	for _, k := range distinct {
		if !s.admissible(k, remaining, last, p) {
			continue
		}
		if r < remaining[k] {
			return k
		}
		r -= remaining[k]
	}
	return pickFree
}

// apply permutes keys into target, continuing the swap count from swaps.
func (s Spacing) apply(keys, target []int, swaps int, swap func(i, j int)) (int, error) {
	for p := range keys {
		if keys[p] == target[p] {
			continue
		}
		if swaps >= s.Budget {
			return swaps, &common.ConstraintUnsatisfiableError{
				Constraint: s.Name,
				Detail:     fmt.Sprintf("repair budget of %d swaps exhausted", s.Budget),
				Attempts:   swaps,
			}
		}
		q := p + 1
		for keys[q] != target[p] {
			q++
		}
		keys[p], keys[q] = keys[q], keys[p]
		if swap != nil {
			swap(p, q)
		}
		swaps++
	}
	return swaps, nil
}

// partner finds a position whose exchange with i leaves both positions free
// of conflicts, searching forward first and then backward.
func (s Spacing) partner(keys []int, i int) int {
	try := func(j int) bool {
		if keys[j] == keys[i] {
			return false
		}
		keys[i], keys[j] = keys[j], keys[i]
		ok := !s.conflicts(keys, i) && !s.conflicts(keys, j)
		keys[i], keys[j] = keys[j], keys[i]
		return ok
	}

	for j := i + 1; j < len(keys); j++ {
		if try(j) {
			return j
		}
	}
	for j := i - 1; j >= 0; j-- {
		if try(j) {
			return j
		}
	}
	return -1
}

// conflicts reports whether position p shares its key with any position
// within Gap-1 on either side.
func (s Spacing) conflicts(keys []int, p int) bool {
	k := keys[p]
	if k < 0 {
		return false
	}
	lo := max(0, p-s.Gap+1)
	hi := min(len(keys)-1, p+s.Gap-1)
	for q := lo; q <= hi; q++ {
		if q != p && keys[q] == k {
			return true
		}
	}
	return false
}

func (s Spacing) conflictsBefore(keys []int, p int) bool {
	k := keys[p]
	if k < 0 || s.Gap <= 1 {
		return false
	}
	for q := max(0, p-s.Gap+1); q < p; q++ {
		if keys[q] == k {
			return true
		}
	}
	return false
}

// feasible rejects key counts that cannot fit: c occurrences need at least
// (c-1)*Gap+1 positions.
func (s Spacing) feasible(keys []int) error {
	counts := make(map[int]int)
	for _, k := range keys {
		if k >= 0 {
			counts[k]++
		}
	}

	distinct := make([]int, 0, len(counts))
	for k := range counts {
		distinct = append(distinct, k)
	}
	sort.Ints(distinct)

	for _, k := range distinct {
		c := counts[k]
		if need := (c-1)*s.Gap + 1; need > len(keys) {
			return &common.ConstraintUnsatisfiableError{
				Constraint: s.Name,
				Detail:     fmt.Sprintf("%s occurs %d times, needs %d positions with gap %d but sequence has %d", s.label(k), c, need, s.Gap, len(keys)),
			}
		}
	}
	return nil
}

func (s Spacing) label(k int) string {
	if s.Label != nil {
		return s.Label(k)
	}
	return fmt.Sprintf("key %d", k)
}
