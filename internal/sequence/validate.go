package sequence

import (
	"fmt"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
)

// Expectations are the contracts a generated sequence must satisfy.
type Expectations struct {
	Counts                  map[string]int
	Views                   map[string][]string
	MinGap                  int
	Targets                 int
	BlockSize               int
	AvoidConsecutiveTargets bool
}

// Validate checks repetition counts, view balance, object spacing, the exact
// target count and block numbering. Violations are reported as
// ConstraintUnsatisfiableError since a sequence breaking them must not be used.
func Validate(trials []model.Trial, exp Expectations) error {
	fail := func(constraint, format string, args ...any) error {
		return &common.ConstraintUnsatisfiableError{Constraint: constraint, Detail: fmt.Sprintf(format, args...)}
	}

	want := 0
	for _, n := range exp.Counts {
		want += n
	}
	if len(trials) != want {
		return fail("length", "sequence has %d trials, expected %d", len(trials), want)
	}

	objectCounts := make(map[string]int)
	viewCounts := make(map[string]map[string]int)
	lastSeen := make(map[string]int)
	targets := 0

	for i, t := range trials {
		objectCounts[t.S1Object]++
		if viewCounts[t.S1Object] == nil {
			viewCounts[t.S1Object] = make(map[string]int)
		}
		viewCounts[t.S1Object][t.S1View]++

		if prev, ok := lastSeen[t.S1Object]; ok && exp.MinGap > 1 && i-prev < exp.MinGap {
			return fail("object spacing", "object %s at trials %d and %d, minimum gap %d", t.S1Object, prev+1, i+1, exp.MinGap)
		}
		lastSeen[t.S1Object] = i

		if t.S2Category == model.CategoryTarget {
			targets++
			if exp.AvoidConsecutiveTargets && i > 0 && trials[i-1].S2Category == model.CategoryTarget {
				return fail("S2 target spacing", "consecutive targets at trials %d and %d", i, i+1)
			}
		}

		if t.TrialIndex != i+1 {
			return fail("numbering", "trial at position %d has index %d", i+1, t.TrialIndex)
		}
		if exp.BlockSize > 0 && t.BlockIndex != i/exp.BlockSize+1 {
			return fail("blocks", "trial %d is in block %d, expected %d", i+1, t.BlockIndex, i/exp.BlockSize+1)
		}
	}

	for name, n := range exp.Counts {
		if objectCounts[name] != n {
			return fail("repetitions", "object %s shown %d times, expected %d", name, objectCounts[name], n)
		}
		ids := exp.Views[name]
		if len(ids) == 0 {
			continue
		}
		lo, hi := n/len(ids), (n+len(ids)-1)/len(ids)
		for _, id := range ids {
			if c := viewCounts[name][id]; c < lo || c > hi {
				return fail("view rotation", "view %s of %s used %d times, expected %d..%d", id, name, c, lo, hi)
			}
		}
	}

	if targets != exp.Targets {
		return fail("target ratio", "%d targets, expected %d", targets, exp.Targets)
	}
	return nil
}
