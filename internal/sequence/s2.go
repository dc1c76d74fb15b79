package sequence

import (
	"math"
	"math/rand/v2"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
)

// S2 is the secondary-task stimulus of one trial.
type S2 struct {
	String   string
	Category model.Category
}

// S2Options configures S2 assignment.
type S2Options struct {
	Target     string
	Nontargets []string
	Ratio      float64
	// RepairBudget bounds the swaps spent keeping targets apart.
	RepairBudget     int
	AvoidConsecutive bool
}

// TargetCount is the exact number of targets for n trials.
func TargetCount(n int, ratio float64) int {
	return int(math.Round(ratio * float64(n)))
}

// AssignS2 builds a multiset holding exactly TargetCount targets and
// nontargets rotating evenly through the nontarget strings, then shuffles it.
// Shuffling a constructed multiset rather than sampling each trial
// guarantees the exact target count.
func AssignS2(n int, opts S2Options, rng *rand.Rand) ([]S2, error) {
	if opts.Ratio < 0 || opts.Ratio > 1 {
		return nil, common.NewConfigurationError("trials.target_ratio", "must be within [0,1], got %v", opts.Ratio)
	}
	targets := TargetCount(n, opts.Ratio)
	if targets < n && len(opts.Nontargets) == 0 {
		return nil, common.NewConfigurationError("stimuli.s2_nontargets", "no nontarget strings configured")
	}

	out := make([]S2, n)
	for i := range out {
		if i < targets {
			out[i] = S2{String: opts.Target, Category: model.CategoryTarget}
			continue
		}
		k := (i - targets) % len(opts.Nontargets)
		out[i] = S2{String: opts.Nontargets[k], Category: model.CategoryNontarget}
	}

	rng.Shuffle(n, func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	if !opts.AvoidConsecutive {
		return out, nil
	}

	keys := make([]int, n)
	for i, s := range out {
		keys[i] = -1
		if s.Category == model.CategoryTarget {
			keys[i] = 0
		}
	}
	spacing := Spacing{
		Name:   "S2 target spacing",
		Gap:    2,
		Budget: opts.RepairBudget,
		Rand:   rng,
		Label:  func(int) string { return "target" },
	}
	if _, err := spacing.Repair(keys, func(i, j int) { out[i], out[j] = out[j], out[i] }); err != nil {
		return nil, err
	}
	return out, nil
}
