package sequence

import (
	"math/rand/v2"

	"github.com/Veraticus/p300-cit/internal/catalog"
	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/config"
	"github.com/Veraticus/p300-cit/internal/model"
)

// Generator produces trial sequences for one protocol and catalog.
type Generator struct {
	counts  map[string]int
	stimuli config.Stimuli
	objects []model.StimulusObject
	timing  config.Timing
	trials  config.Trials
	total   int
}

// New validates the configuration up front so generation never starts on
// contradictory input.
func New(p config.Protocol, c *catalog.Catalog) (*Generator, error) {
	if c == nil {
		return nil, common.NewConfigurationError("objects", "no stimulus catalog")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	counts := c.RepetitionCounts(p.Trials)
	total := 0
	for name, n := range counts {
		if n <= 0 {
			return nil, common.NewConfigurationError("trials", "object %q has %d repetitions", name, n)
		}
		total += n
	}

	if p.Trials.NumBlocks > 0 {
		if blocks := NumBlocks(total, p.Trials.BlockSize); blocks != p.Trials.NumBlocks {
			return nil, common.NewConfigurationError("trials.num_blocks",
				"%d trials in blocks of %d make %d blocks, configured %d", total, p.Trials.BlockSize, blocks, p.Trials.NumBlocks)
		}
	}
	if total%p.Trials.BlockSize != 0 {
		common.LogInfo("Final block is shorter than block size", common.Fields{
			"total_trials": total,
			"block_size":   p.Trials.BlockSize,
		})
	}

	return &Generator{
		counts:  counts,
		stimuli: p.Stimuli,
		objects: c.Objects(),
		timing:  p.Timing,
		trials:  p.Trials,
		total:   total,
	}, nil
}

// Total is the number of trials every generated sequence contains.
func (g *Generator) Total() int {
	return g.total
}

// Counts returns the per-object repetition counts.
func (g *Generator) Counts() map[string]int {
	out := make(map[string]int, len(g.counts))
	for k, v := range g.counts {
		out[k] = v
	}
	return out
}

// Generate builds one complete sequence. The same rng state always yields
// the same sequence.
func (g *Generator) Generate(rng *rand.Rand) ([]model.Trial, error) {
	if rng == nil {
		return nil, common.NewConfigurationError("seed", "a random source is required")
	}

	groups := make([][]Slot, len(g.objects))
	for i, obj := range g.objects {
		groups[i] = Expand(obj, g.counts[obj.Name], rng)
	}
	slots := Interleave(groups, rng)

	index := make(map[string]int, len(g.objects))
	for i, obj := range g.objects {
		index[obj.Name] = i
	}
	keys := make([]int, len(slots))
	for i, s := range slots {
		keys[i] = index[s.Object]
	}

	spacing := Spacing{
		Name:   "object spacing",
		Gap:    g.trials.MinGap,
		Budget: g.trials.RepairBudget,
		Rand:   rng,
		Label:  func(k int) string { return "object " + g.objects[k].Name },
	}
	swaps, err := spacing.Repair(keys, func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
	if err != nil {
		return nil, err
	}

	s2, err := AssignS2(len(slots), S2Options{
		Target:           g.stimuli.S2Target,
		Nontargets:       g.stimuli.S2Nontargets,
		Ratio:            g.trials.TargetRatio,
		RepairBudget:     g.trials.RepairBudget,
		AvoidConsecutive: g.trials.AvoidConsecutiveTargets,
	}, rng)
	if err != nil {
		return nil, err
	}

	trials := make([]model.Trial, len(slots))
	for i, s := range slots {
		trials[i] = model.Trial{
			S1Object:   s.Object,
			S1View:     s.View,
			S1Category: s.Category,
			S2String:   s2[i].String,
			S2Category: s2[i].Category,
		}
	}

	isiLo, isiHi := g.timing.ISIRange()
	itiLo, itiHi := g.timing.ITIRange()
	AssignTiming(trials, isiLo, isiHi, itiLo, itiHi, rng)
	Partition(trials, g.trials.BlockSize)

	if err := g.Check(trials); err != nil {
		return nil, err
	}

	common.LogDebug("Spacing repair finished", common.Fields{"swaps": swaps})
	return trials, nil
}

// Check verifies a sequence against this generator's contracts.
func (g *Generator) Check(trials []model.Trial) error {
	views := make(map[string][]string, len(g.objects))
	for _, obj := range g.objects {
		views[obj.Name] = obj.ViewIDs()
	}

	return Validate(trials, Expectations{
		Counts:                  g.counts,
		Views:                   views,
		MinGap:                  g.trials.MinGap,
		Targets:                 TargetCount(g.total, g.trials.TargetRatio),
		BlockSize:               g.trials.BlockSize,
		AvoidConsecutiveTargets: g.trials.AvoidConsecutiveTargets,
	})
}
